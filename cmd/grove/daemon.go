package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grove-app/grove/internal/daemon"
	"github.com/grove-app/grove/internal/ui"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Start the auto-sync daemon (foreground)",
	Long: `Watch the local collection directories and push changes to the
remote document store as they happen.

The daemon:
  1. Performs an initial full sync
  2. Watches each collection directory for record file changes
  3. Debounces rapid changes and syncs affected records
  4. Queues changes while the auto-sync preference is off

Runs in the foreground; use a process manager for background use.
Set daemon.logfile in config.yaml to log to a rotating file.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if !cfg.SyncEnabled {
			fmt.Fprintf(os.Stderr, "Error: sync is not configured\n")
			fmt.Fprintf(os.Stderr, "Set remote.database in %s/config.yaml\n", cfg.DataDir)
			os.Exit(1)
		}

		logger := daemon.NewLogger(cfg.DaemonLogFile)
		stack := mustSyncStack(cfg, logger)
		defer stack.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := stack.status.InitializeSync(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error signing in: %v\n", err)
			os.Exit(1)
		}
		defer stack.status.SubscribeToAuth()()

		d, err := daemon.New(cfg.DataDir, stack.svc, stack.status, &daemon.Config{
			DebounceInterval: cfg.DebounceInterval,
			Logger:           logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Starting auto-sync daemon...\n", ui.IconCloud)
		fmt.Printf("   Data dir: %s\n", cfg.DataDir)
		fmt.Printf("   Remote: %s\n", cfg.RemoteDatabase)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon stopped with error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
