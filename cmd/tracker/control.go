// ABOUTME: Start, stop, and status commands
// ABOUTME: Send tracking commands to a running daemon over its HTTP API

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harper/tracker/internal/httpapi"
	"github.com/harper/tracker/internal/tracker"
	"github.com/harper/tracker/internal/ui"
	"github.com/spf13/cobra"
)

const controlTimeout = 10 * time.Second

func daemonClient(cmd *cobra.Command) *httpapi.Client {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = settings().GetListenAddr()
	}
	return httpapi.NewClient(addr)
}

// explainDaemonError adds a hint when nothing is listening.
func explainDaemonError(err error) error {
	if errors.Is(err, httpapi.ErrDaemonUnavailable) {
		return fmt.Errorf("%w (is 'tracker serve' running?)", err)
	}
	return err
}

func controlCommand(action tracker.Action) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(commandContext(cmd), controlTimeout)
		defer cancel()

		client := daemonClient(cmd)
		var (
			st  *tracker.Status
			err error
		)
		switch action {
		case tracker.Start:
			st, err = client.Start(ctx)
		case tracker.Stop:
			st, err = client.Stop(ctx)
		}
		if err != nil {
			return explainDaemonError(err)
		}

		if action == tracker.Start {
			color.Green("✓ Tracking started")
		} else {
			color.Green("✓ Tracking stopped")
		}
		fmt.Println(ui.FormatStatus(*st))
		return nil
	}
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start tracking in the daemon",
	Args:  cobra.NoArgs,
	RunE:  controlCommand(tracker.Start),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop tracking in the daemon",
	Args:  cobra.NoArgs,
	RunE:  controlCommand(tracker.Stop),
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"st"},
	Short:   "Show whether the daemon is tracking",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(commandContext(cmd), controlTimeout)
		defer cancel()

		st, err := daemonClient(cmd).Status(ctx)
		if err != nil {
			return explainDaemonError(err)
		}
		fmt.Println(ui.FormatStatus(*st))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{startCmd, stopCmd, statusCmd} {
		c.Flags().String("addr", "", "daemon address (default from config)")
		rootCmd.AddCommand(c)
	}
}
