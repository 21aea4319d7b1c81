// ABOUTME: Sync subcommand for the Charm cloud mirror
// ABOUTME: Provides status, push, pull, now, and repair commands

package main

import (
	"fmt"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/fatih/color"
	"github.com/harper/tracker/internal/charm"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy locations between this machine and Charm Cloud",
	Long: `Mirror recorded locations to Charm Cloud using SSH key authentication.

Commands:
  status  - Show sync status and user info
  push    - Copy local locations missing from the cloud
  pull    - Copy cloud locations into the local database
  now     - Pull then push
  repair  - Repair the local Charm database (checkpoint WAL, check integrity, vacuum)

Set "mirror": true in the config to copy every new sample as it is recorded.

Examples:
  tracker sync status
  tracker sync now
  tracker sync repair --force`,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	Long:  `Display current sync configuration, user ID, and connection status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		charmCfg := charm.DefaultConfig()
		if host := settings().CharmHost; host != "" {
			charmCfg.CharmHost = host
		}

		fmt.Printf("Charm Host: %s\n", charmCfg.CharmHost)
		fmt.Printf("Database:   %s\n", charm.DBName)
		fmt.Printf("Mirror:     %t\n", settings().Mirror)

		cc, err := client.NewClientWithDefaults()
		if err != nil {
			color.Yellow("\nStatus: Not connected")
			fmt.Println("Run 'charm link' to connect your account.")
			return nil
		}

		user, err := cc.ID()
		if err != nil {
			color.Yellow("\nStatus: Not linked")
			fmt.Println("Run 'charm link' to connect your account.")
			return nil
		}

		fmt.Printf("\nUser ID: %s\n", user)
		color.Green("Status: Connected")
		return nil
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Copy local locations to the cloud",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDB()
		if err != nil {
			return err
		}
		cc, err := newCharmClient()
		if err != nil {
			return err
		}

		pushed, err := cc.Push(commandContext(cmd), store)
		if err != nil {
			return fmt.Errorf("failed to push: %w", err)
		}
		color.Green("✓ Pushed %d locations", pushed)
		return nil
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Copy cloud locations into the local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDB()
		if err != nil {
			return err
		}
		cc, err := newCharmClient()
		if err != nil {
			return err
		}
		if err := cc.Sync(); err != nil {
			return fmt.Errorf("failed to sync with charm: %w", err)
		}

		// Writes go straight to SQLite so they are not mirrored back.
		pulled, err := cc.Pull(commandContext(cmd), store)
		if err != nil {
			return fmt.Errorf("failed to pull: %w", err)
		}
		color.Green("✓ Pulled %d locations", pulled)
		return nil
	},
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Pull then push",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDB()
		if err != nil {
			return err
		}
		cc, err := newCharmClient()
		if err != nil {
			return err
		}
		if err := cc.Sync(); err != nil {
			return fmt.Errorf("failed to sync with charm: %w", err)
		}

		summary, err := cc.SyncNow(commandContext(cmd), store)
		if err != nil {
			return fmt.Errorf("failed to sync: %w", err)
		}
		color.Green("✓ Synced")
		fmt.Printf("  pulled %d, pushed %d\n", summary.Pulled, summary.Pushed)
		return nil
	},
}

var (
	repairForce bool
)

var syncRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair the local Charm database",
	Long: `Attempt to repair a corrupted local Charm database.

Steps performed:
  1. Checkpoint WAL (merge pending writes)
  2. Remove stale SHM file
  3. Run integrity check
  4. Vacuum database

If --force is specified and integrity check fails:
  5. Attempt REINDEX recovery
  6. Reset from cloud as last resort

The SQLite location database is not touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Repairing charm database...")
		fmt.Println()

		result, err := kv.Repair(charm.DBName, repairForce)
		if err != nil && !repairForce {
			color.Red("✗ Repair failed: %v", err)
			fmt.Println("\nRun with --force to attempt recovery:")
			fmt.Println("  tracker sync repair --force")
			return err
		} else if err != nil {
			color.Red("✗ Repair failed even with --force: %v", err)
			return err
		}

		fmt.Println("Repair results:")
		if result.WalCheckpointed {
			color.Green("  ✓ WAL checkpointed")
		}
		if result.ShmRemoved {
			color.Green("  ✓ SHM file removed")
		}
		if result.IntegrityOK {
			color.Green("  ✓ Integrity check passed")
		} else {
			color.Red("  ✗ Integrity check failed")
		}
		if result.Vacuumed {
			color.Green("  ✓ Database vacuumed")
		}
		if result.RecoveryAttempted {
			color.Yellow("  ⚠ Recovery attempted (REINDEX)")
		}
		if result.ResetFromCloud {
			color.Yellow("  ⚠ Reset from cloud")
		}
		if result.Error != nil {
			color.Yellow("  ⚠ Warning: %v", result.Error)
		}

		fmt.Println()
		color.Green("✓ Repair completed")
		return nil
	},
}

func init() {
	syncRepairCmd.Flags().BoolVarP(&repairForce, "force", "f", false, "Force recovery even if integrity check fails")

	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncPullCmd)
	syncCmd.AddCommand(syncNowCmd)
	syncCmd.AddCommand(syncRepairCmd)

	rootCmd.AddCommand(syncCmd)
}
