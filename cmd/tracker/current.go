// ABOUTME: Current location command
// ABOUTME: Fetches one location from the configured source without recording it

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harper/tracker/internal/config"
	"github.com/harper/tracker/internal/httpapi"
	"github.com/harper/tracker/internal/location"
	"github.com/harper/tracker/internal/ui"
	"github.com/spf13/cobra"
)

var currentCmd = &cobra.Command{
	Use:     "current",
	Aliases: []string{"c", "get"},
	Short:   "Fetch the current location once",
	Long: `Ask the configured location source for its best-known position and print it.
Nothing is stored; use 'tracker add' or tracking for that. With the push
source the running daemon is asked instead.

Examples:
  tracker current
  tracker current --timeout 30s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
		defer cancel()

		// Pushed fixes only reach the daemon, so ask it.
		if settings().GetSource() == config.SourcePush {
			fix, err := daemonLocation(ctx, daemonClient(cmd))
			if err != nil {
				return err
			}
			printFix(fix, "daemon")
			return nil
		}

		provider, _, err := newProvider(settings())
		if err != nil {
			return err
		}
		manager := location.NewManager(provider, location.WithLogger(getLogger()))

		fix, err := manager.GetLocation(ctx)
		if err != nil {
			if errors.Is(err, location.ErrNoLocation) {
				return fmt.Errorf("%s has no location yet", provider.Name())
			}
			return err
		}
		printFix(fix, provider.Name())
		return nil
	},
}

// daemonLocation returns the daemon's last tracked fix, or its newest
// stored sample when tracking has not produced one.
func daemonLocation(ctx context.Context, client *httpapi.Client) (*location.Fix, error) {
	st, err := client.Status(ctx)
	if err != nil {
		return nil, explainDaemonError(err)
	}
	if st.LastFix != nil {
		return st.LastFix, nil
	}

	latest, err := client.Latest(ctx)
	if errors.Is(err, httpapi.ErrNotFound) {
		return nil, fmt.Errorf("daemon has no location yet")
	}
	if err != nil {
		return nil, explainDaemonError(err)
	}
	return &location.Fix{Latitude: latest.Latitude, Longitude: latest.Longitude, Time: latest.Time()}, nil
}

func printFix(fix *location.Fix, from string) {
	fmt.Println(ui.FormatLocation(fix.Latitude, fix.Longitude))
	fmt.Println(color.New(color.Faint).Sprintf("  from %s, %s", from, ui.FormatRelativeTime(fix.Time)))
}

func init() {
	currentCmd.Flags().String("addr", "", "daemon address for the push source (default from config)")
	currentCmd.Flags().Duration("timeout", 10*time.Second, "how long to wait for a fix")

	rootCmd.AddCommand(currentCmd)
}
