package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grove-app/grove/internal/daemon"
	"github.com/grove-app/grove/internal/ui"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Push all local collections to the remote store",
	Long: `Perform a one-shot full sync of every local collection and the
profile to the remote document store.

Requires sync to be configured (remote.database in config.yaml). Signs
in anonymously on first use; the identity persists across runs.`,
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

		d, err := daemon.New(cfg.DataDir, stack.svc, stack.status, &daemon.Config{
			DebounceInterval: cfg.DebounceInterval,
			Logger:           daemon.NewLogger(""),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Syncing %s...\n", ui.IconCloud, cfg.DataDir)
		start := time.Now()

		if err := d.PerformFullSync(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
			os.Exit(1)
		}

		elapsed := time.Since(start)
		fmt.Printf("%s Sync complete in %v\n", ui.Good.Render("✓"), elapsed.Round(time.Millisecond))
	},
}

var syncAutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Toggle the auto-sync preference",
	Long: `Flip the persisted auto-sync preference.

While auto-sync is off the daemon queues local changes instead of
pushing them; turning it back on flushes the queue.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		stack := mustSyncStack(cfg, nil)
		defer stack.Close()

		if stack.status.ToggleAutoSync() {
			fmt.Printf("%s Auto-sync %s\n", ui.Good.Render("✓"), ui.Good.Render("on"))
		} else {
			fmt.Printf("%s Auto-sync %s\n", ui.Good.Render("✓"), ui.Warn.Render("off"))
		}
	},
}

func init() {
	syncCmd.AddCommand(syncAutoCmd)
	rootCmd.AddCommand(syncCmd)
}
