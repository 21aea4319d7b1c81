// ABOUTME: Serve command running the tracking daemon
// ABOUTME: Exposes the HTTP API that start, stop, and status talk to

package main

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/fatih/color"
	"github.com/harper/tracker/internal/httpapi"
	"github.com/harper/tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracking daemon",
	Long: `Run the tracking daemon in the foreground. Tracking is controlled over the
HTTP API with 'tracker start' and 'tracker stop'.

Examples:
  tracker serve
  tracker serve --start
  tracker serve --listen 0.0.0.0:8765`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			c.ListenAddr = listen
		}

		d, err := newDaemon(c, os.Stdout)
		if err != nil {
			return err
		}
		defer func() {
			if err := d.Close(); err != nil {
				getLogger().Error("shutdown failed", "err", err)
			}
		}()

		opts := []httpapi.Option{
			httpapi.WithLogger(getLogger()),
			httpapi.WithGatherer(d.registry),
		}
		if d.push != nil {
			opts = append(opts, httpapi.WithFixSink(d.push))
		}
		server := httpapi.NewServer(d.service, d.repo, opts...)

		ln, err := net.Listen("tcp", c.GetListenAddr())
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", c.GetListenAddr(), err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		color.Green("✓ Serving on http://%s", ln.Addr())
		fmt.Printf("  source: %s\n", d.describe())

		if start, _ := cmd.Flags().GetBool("start"); start {
			if err := d.service.Handle(ctx, tracker.Start); err != nil {
				_ = ln.Close()
				return err
			}
		}

		if err := server.Serve(ctx, ln); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (default from config, 127.0.0.1:8765)")
	serveCmd.Flags().Bool("start", false, "start tracking immediately")

	rootCmd.AddCommand(serveCmd)
}
