// ABOUTME: Run command for foreground tracking
// ABOUTME: Records samples until interrupted, without the HTTP API

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harper/tracker/internal/config"
	"github.com/harper/tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track in the foreground until interrupted",
	Long: `Start tracking right away and record samples until Ctrl-C.
Nothing else can control this process; use 'tracker serve' for that.

Examples:
  tracker run
  TRACKER_SOURCE=replay TRACKER_REPLAY_FILE=walk.geojson tracker run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		if c.GetSource() == config.SourcePush {
			return fmt.Errorf("source %q needs the HTTP API; use 'tracker serve'", config.SourcePush)
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

		ctx, cancel := signalContext()
		defer cancel()

		if err := d.service.Handle(ctx, tracker.Start); err != nil {
			return err
		}
		color.Green("✓ Tracking with %s", d.describe())

		<-ctx.Done()

		if err := d.service.Handle(context.Background(), tracker.Stop); err != nil {
			return err
		}
		st := d.service.Status()
		fmt.Printf("  recorded %d samples\n", st.Recorded)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
