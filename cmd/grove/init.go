package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grove-app/grove/internal/config"
	"github.com/grove-app/grove/internal/store"
	"github.com/grove-app/grove/internal/ui"
	"github.com/spf13/cobra"
)

const configTemplate = `# Grove configuration.
#
# Sync stays off until remote.database points at a writable file path.
# Environment variables override: GROVE_REMOTE_DATABASE, GROVE_SYNC_DISABLED.
remote:
  database: ""
sync:
  disabled: false
dashboard:
  port: 8337
daemon:
  debounce: 500ms
  logfile: ""
`

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "garden",
	Short:   "Create a .grove data directory here",
	Long: `Initialize a Grove garden in the current directory.

Creates .grove/ with one subdirectory per collection and a commented
config.yaml. Running init in an already-initialized directory is safe;
existing files are left alone.`,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		dataDir := filepath.Join(cwd, config.DirName)
		for _, name := range store.Collections {
			if err := os.MkdirAll(filepath.Join(dataDir, name), 0755); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", name, err)
				os.Exit(1)
			}
		}

		configPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := os.WriteFile(configPath, []byte(configTemplate), 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
				os.Exit(1)
			}
		}

		fmt.Printf("%s Initialized garden at %s\n", ui.Good.Render("✓"), dataDir)
		fmt.Printf("   Collections: %v\n", store.Collections)
		fmt.Printf("   Config: %s\n", configPath)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
