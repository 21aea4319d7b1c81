// ABOUTME: Clear command
// ABOUTME: Deletes every recorded location after confirmation

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded locations",
	Long: `Delete every recorded location. The Charm mirror is cleared too when enabled.

Examples:
  tracker clear
  tracker clear --confirm`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if confirm, _ := cmd.Flags().GetBool("confirm"); !confirm {
			if !ask("Delete all recorded locations?") {
				fmt.Println("Canceled.")
				return nil
			}
		}

		repo, err := openRepository()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		count, err := repo.CountLocations(ctx)
		if err != nil {
			return fmt.Errorf("failed to count locations: %w", err)
		}
		if err := repo.ClearLocations(ctx); err != nil {
			return fmt.Errorf("failed to clear locations: %w", err)
		}

		color.Green("✓ Deleted %d locations", count)
		return nil
	},
}

func init() {
	clearCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(clearCmd)
}
