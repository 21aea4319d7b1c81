// ABOUTME: Location list command
// ABOUTME: Prints recorded samples newest first, optionally following new ones

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harper/tracker/internal/models"
	"github.com/harper/tracker/internal/storage"
	"github.com/harper/tracker/internal/ui"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recorded locations",
	Long: `List every recorded location, newest first.

Examples:
  tracker list
  tracker list --limit 10
  tracker list --json
  tracker list --follow`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		asJSON, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")

		var opts []storage.Option
		if follow {
			opts = append(opts, storage.WithFileWatch())
		}
		store, err := openDB(opts...)
		if err != nil {
			return err
		}

		if !follow {
			samples, err := store.ListLocations(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("failed to list locations: %w", err)
			}
			return printSamples(truncate(samples, limit), asJSON)
		}

		ctx, cancel := signalContext()
		defer cancel()

		updates, err := store.WatchLocations(ctx)
		if err != nil {
			return fmt.Errorf("failed to watch locations: %w", err)
		}
		for samples := range updates {
			if !asJSON {
				fmt.Println(color.New(color.Faint).Sprintf("%s  %d locations", time.Now().Format("15:04:05"), len(samples)))
			}
			if err := printSamples(truncate(samples, limit), asJSON); err != nil {
				return err
			}
		}
		return nil
	},
}

func truncate(samples []*models.Sample, limit int) []*models.Sample {
	if limit > 0 && len(samples) > limit {
		return samples[:limit]
	}
	return samples
}

func printSamples(samples []*models.Sample, asJSON bool) error {
	if asJSON {
		if samples == nil {
			samples = []*models.Sample{}
		}
		data, err := json.Marshal(samples)
		if err != nil {
			return fmt.Errorf("failed to encode locations: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(ui.FormatSampleList(samples))
	return nil
}

func init() {
	listCmd.Flags().BoolP("follow", "f", false, "keep printing as locations are recorded")
	listCmd.Flags().Bool("json", false, "print JSON instead of text")
	listCmd.Flags().IntP("limit", "n", 0, "show at most n locations (0 for all)")

	rootCmd.AddCommand(listCmd)
}
