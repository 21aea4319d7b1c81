// ABOUTME: Import command for restoring locations from a YAML backup
// ABOUTME: Accepts files written by 'tracker export --format yaml'

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/harper/tracker/internal/storage"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import locations from a YAML backup",
	Long: `Import locations from a YAML backup file.

This restores data from a backup created with 'tracker export --format yaml'.
Samples whose ID already exists are replaced; everything else is kept.

Examples:
  tracker import backup.yaml
  tracker import ~/backups/tracker-20241214.yaml --confirm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename) //nolint:gosec // user-supplied backup path
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		if confirm, _ := cmd.Flags().GetBool("confirm"); !confirm {
			if !ask(fmt.Sprintf("Import locations from '%s'?", filename)) {
				fmt.Println("Canceled.")
				return nil
			}
		}

		repo, err := openRepository()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		imported, err := storage.ImportFromYAML(ctx, repo, data)
		if err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}
		total, _ := repo.CountLocations(ctx)

		color.Green("✓ Import complete")
		fmt.Printf("  %d imported, %d locations in database\n", imported, total)
		return nil
	},
}

// ask reads a yes/no answer from stdin; anything but y/yes is no.
func ask(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func init() {
	importCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(importCmd)
}
