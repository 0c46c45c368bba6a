package main

import (
	"context"
	"fmt"
	"os"

	"github.com/grove-app/grove/internal/store"
	"github.com/grove-app/grove/internal/ui"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "garden",
	Short:   "Show garden and sync status",
	Long: `Display local collection counts and the current sync status.

Shows:
  - Item counts per collection
  - Whether sync is configured and enabled
  - Identity, reachability, and last sync time when sync is on`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		fmt.Println()
		fmt.Println(ui.Heading(ui.IconTree, "Garden Status"))
		fmt.Println(ui.LabelValue("Data dir", cfg.DataDir))

		total := 0
		for _, name := range store.Collections {
			count, err := store.OpenCollection(cfg.DataDir, name).Count()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error counting %s: %v\n", name, err)
				os.Exit(1)
			}
			fmt.Printf("   %s: %d\n", name, count)
			total += count
		}
		fmt.Println(ui.LabelValue("Total items", total))

		fmt.Println()
		if !cfg.SyncEnabled {
			fmt.Printf("%s Sync: %s\n", ui.IconCloud, ui.SyncStatusText("not configured"))
			fmt.Println(ui.Muted.Render("   Set remote.database in config.yaml to enable sync"))
			fmt.Println()
			return
		}

		stack := mustSyncStack(cfg, nil)
		defer stack.Close()

		ctx := context.Background()
		status := stack.status.Status(ctx)
		st := stack.status.State()

		word := "offline"
		if status.Online {
			word = "online"
		}
		fmt.Printf("%s Sync: %s\n", ui.IconCloud, ui.SyncStatusText(word))

		if status.Authenticated {
			fmt.Println(ui.LabelValue("Identity", status.UID))
		} else {
			fmt.Println(ui.LabelValue("Identity", ui.Muted.Render("not signed in")))
		}
		fmt.Println(ui.LabelValue("Can sync", status.CanSync))
		fmt.Println(ui.LabelValue("Auto-sync", st.AutoSync))

		if st.LastSyncAt != nil {
			fmt.Println(ui.LabelValue("Last sync", st.LastSyncAt.Format("2006-01-02 15:04:05")))
		} else {
			fmt.Println(ui.LabelValue("Last sync", ui.Muted.Render("never")))
		}
		if st.Err != "" {
			fmt.Printf("%s %s\n", ui.IconWarn, ui.Bad.Render(st.Err))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
