package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/grove-app/grove/internal/dashboard"
	"github.com/grove-app/grove/internal/store"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Start the real-time WebSocket sync dashboard",
	Long: `Start a WebSocket server that broadcasts sync activity to connected
clients.

WebSocket messages include:
- sync_state: sync status store transitions (syncing, errors, identity)
- collection_update: a record was synced or deleted
- migration_complete: a migration run finished
- stats: local collection statistics

Example usage:
  grove dashboard                # Start on the configured port
  grove dashboard --port 9000    # Start on a custom port

Connect with a WebSocket client:
  ws://localhost:8337/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.DashboardPort
		}

		logger := log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: logger,
		})

		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
			os.Exit(1)
		}

		handler := dashboard.NewHandler(server, logger)

		// Seed stats from the local snapshot.
		counts := make(map[string]int)
		for _, name := range store.Collections {
			if count, err := store.OpenCollection(cfg.DataDir, name).Count(); err == nil {
				counts[name] = count
			}
		}
		handler.UpdateStats(counts)

		// Stream sync state transitions when sync is configured.
		stack := mustSyncStack(cfg, logger)
		defer stack.Close()
		defer handler.WatchSyncState(stack.status)()

		fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Printf("Health check: http://localhost:%d/health\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Dashboard server stopped")
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 0, "Port to listen on (default: config dashboard.port)")
	rootCmd.AddCommand(dashboardCmd)
}
