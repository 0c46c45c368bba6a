package main

import (
	"fmt"
	"os"

	"github.com/grove-app/grove/internal/store"
	"github.com/grove-app/grove/internal/ui"
	"github.com/grove-app/grove/internal/xp"
	"github.com/spf13/cobra"
)

var levelCmd = &cobra.Command{
	Use:     "level",
	GroupID: "garden",
	Short:   "Show your level and XP progress",
	Long: `Display the current level, total XP, and progress toward the next
level, derived from the profile's XP total.

Levels 2 through 5 cost 100 XP each; every level after that costs an
extra 20 XP per level.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		profile, err := store.LoadProfile(cfg.ProfilePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading profile: %v\n", err)
			os.Exit(1)
		}

		info := xp.FromTotal(profile.XPTotal)
		bar := ui.ProgressBar(xp.Progress(profile.XPTotal), 30)

		name := profile.DisplayName
		if name == "" {
			name = "gardener"
		}

		fmt.Println()
		fmt.Println(ui.Heading(ui.IconTree, name))
		fmt.Println(ui.LabelValue("Level", info.Level))
		fmt.Println(ui.LabelValue("Total XP", formatXP(profile.XPTotal)))
		fmt.Printf("%s %s\n", ui.Key.Render("Progress:"), bar)
		fmt.Printf("%s %s XP to level %d\n", ui.IconSprout, formatXP(info.ToNext), info.Level+1)
		fmt.Println()
	},
}

// formatXP prints whole totals without a decimal point.
func formatXP(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func init() {
	rootCmd.AddCommand(levelCmd)
}
