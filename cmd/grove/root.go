package main

import (
	"fmt"
	"log"
	"os"

	"github.com/grove-app/grove/internal/config"
	"github.com/grove-app/grove/internal/remote/docdb"
	"github.com/grove-app/grove/internal/remote/localauth"
	"github.com/grove-app/grove/internal/syncstate"
	"github.com/grove-app/grove/internal/syncsvc"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grove",
	Short: "Grove digital garden",
	Long: `Grove is a local-first digital garden: tasks, books, journals, and
habits stored as plain JSON files, with XP-based leveling and optional
background sync to a remote document store.

All data lives under a .grove directory found by walking up from the
current directory (or set GROVE_DIR). Sync is off unless a remote
database is configured in .grove/config.yaml.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "garden", Title: "Garden Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "advanced", Title: "Advanced Commands:"},
	)
}

// loadConfig resolves configuration or exits with a hint.
func loadConfig() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// syncStack holds the wired sync collaborators for one CLI invocation.
type syncStack struct {
	auth   *localauth.Provider
	docs   *docdb.DB
	svc    *syncsvc.Service
	status *syncstate.Store
}

func (s *syncStack) Close() {
	if s.status != nil {
		s.status.Close()
	}
	if s.docs != nil {
		s.docs.Close()
	}
}

// buildSyncStack wires auth, document store, sync service, and status
// store from configuration. With sync not configured the service comes
// back disabled and every sync operation is a silent no-op.
func buildSyncStack(cfg *config.Config, logger *log.Logger) (*syncStack, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[grove] ", log.LstdFlags)
	}

	if !cfg.SyncEnabled {
		status, err := syncstate.New(syncstate.Options{Logger: logger})
		if err != nil {
			return nil, err
		}
		return &syncStack{
			svc:    syncsvc.NewDisabled(logger),
			status: status,
		}, nil
	}

	auth, err := localauth.New(cfg.IdentityPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	docs, err := docdb.Open(cfg.RemoteDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote database: %w", err)
	}

	status, err := syncstate.New(syncstate.Options{
		Auth:        auth,
		Probe:       docs,
		PrefsPath:   cfg.PrefsPath(),
		SyncEnabled: true,
		Logger:      logger,
	})
	if err != nil {
		docs.Close()
		return nil, err
	}

	return &syncStack{
		auth:   auth,
		docs:   docs,
		svc:    syncsvc.New(auth, docs, logger),
		status: status,
	}, nil
}

// mustSyncStack builds the sync stack or exits.
func mustSyncStack(cfg *config.Config, logger *log.Logger) *syncStack {
	stack, err := buildSyncStack(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return stack
}
