// ABOUTME: Location add command
// ABOUTME: Stores a sample by hand with an optional timestamp

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/harper/tracker/internal/models"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:     "add <latitude> <longitude>",
	Aliases: []string{"a"},
	Short:   "Record a location by hand",
	Long: `Record a location sample without a location source.

Examples:
  tracker add 41.8781 -87.6298
  tracker add --at 2024-12-14T15:00:00Z 41.8781 -87.6298
  tracker add -- -33.8688 151.2093`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude: %w", err)
		}
		lng, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude: %w", err)
		}
		if err := models.ValidateCoordinates(lat, lng); err != nil {
			return err
		}

		at := time.Now()
		if atStr, _ := cmd.Flags().GetString("at"); atStr != "" {
			at, err = time.Parse(time.RFC3339, atStr)
			if err != nil {
				return fmt.Errorf("invalid timestamp format (use RFC3339, e.g., 2024-12-14T15:00:00Z): %w", err)
			}
		}

		repo, err := openRepository()
		if err != nil {
			return err
		}

		sample := models.NewSample(lat, lng, at)
		if err := repo.InsertLocation(commandContext(cmd), sample); err != nil {
			return fmt.Errorf("failed to add location: %w", err)
		}

		color.Green("✓ Added location")
		fmt.Printf("  %s @ (%.4f, %.4f)\n",
			color.New(color.Faint).Sprint(sample.ID.String()[:6]),
			lat, lng)
		return nil
	},
}

func init() {
	addCmd.Flags().String("at", "", "recorded time (RFC3339, e.g., 2024-12-14T15:00:00Z)")
	addCmd.Flags().SetInterspersed(false)

	rootCmd.AddCommand(addCmd)
}
