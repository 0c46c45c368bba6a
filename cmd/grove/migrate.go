package main

import (
	"context"
	"fmt"
	"os"

	"github.com/grove-app/grove/internal/migrate"
	"github.com/grove-app/grove/internal/ui"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	GroupID: "sync",
	Short:   "Migrate existing local data to the remote store",
	Long: `Push all pre-existing local collections and the profile to the
remote document store in one shot.

Intended for the first run after configuring sync. The migration is
idempotent: re-running after a partial failure only fills in what is
missing. Each collection migrates independently; one failing does not
stop the others.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if !cfg.SyncEnabled {
			fmt.Fprintf(os.Stderr, "Error: sync is not configured\n")
			fmt.Fprintf(os.Stderr, "Set remote.database in %s/config.yaml\n", cfg.DataDir)
			os.Exit(1)
		}

		stack := mustSyncStack(cfg, nil)
		defer stack.Close()

		ctx := context.Background()
		if err := stack.status.InitializeSync(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error signing in: %v\n", err)
			os.Exit(1)
		}

		m := migrate.New(cfg.DataDir, cfg.ProfilePath(), stack.auth, stack.svc, nil)
		result, err := m.ToRemote(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println()
		if result.Success {
			fmt.Printf("%s Migration complete: %d items\n", ui.Good.Render("✓"), result.TotalItems)
		} else {
			fmt.Printf("%s Migration finished with errors: %d items migrated\n", ui.IconWarn, result.TotalItems)
		}
		for collection, count := range result.Counts {
			fmt.Printf("   %s: %d\n", collection, count)
		}
		for collection, msg := range result.Errors {
			fmt.Printf("   %s %s: %s\n", ui.Bad.Render("✗"), collection, msg)
		}
		fmt.Println()

		if !result.Success {
			os.Exit(1)
		}
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what a migration would push",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if !cfg.SyncEnabled {
			fmt.Printf("\n%s Sync is not configured; nothing to migrate\n\n", ui.IconWarn)
			return
		}

		stack := mustSyncStack(cfg, nil)
		defer stack.Close()

		m := migrate.New(cfg.DataDir, cfg.ProfilePath(), stack.auth, stack.svc, nil)
		status, err := m.CheckStatus()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println()
		fmt.Println(ui.Heading(ui.IconCloud, "Migration Status"))
		fmt.Println(ui.LabelValue("Local data", status.HasLocalData))
		fmt.Println(ui.LabelValue("Can migrate", status.CanMigrate))
		fmt.Println(ui.LabelValue("Total items", status.TotalItems))
		for collection, count := range status.Counts {
			fmt.Printf("   %s: %d\n", collection, count)
		}
		fmt.Println()
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
