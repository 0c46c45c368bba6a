// Package migrate pushes existing local collections to the remote
// document store, one shot, after a user first authenticates.
//
// Collections migrate independently: a failure in one is recorded in the
// result and does not stop the others. The whole operation is idempotent
// because every write is a merge-write keyed on the record's stable local
// id; re-running after a partial or full success cannot duplicate remote
// documents or clobber store-owned fields.
package migrate

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/grove-app/grove/internal/remote"
	"github.com/grove-app/grove/internal/store"
	"github.com/grove-app/grove/internal/syncsvc"
)

// profileKey is the pseudo-collection name used for the user profile in
// result counts.
const profileKey = "profile"

// Result reports a migration run.
type Result struct {
	// Success is true only when every attempted collection migrated.
	Success bool

	// Counts holds items written per collection (plus "profile").
	Counts map[string]int

	// TotalItems is the sum of Counts.
	TotalItems int

	// Errors holds the failure message per collection that failed.
	Errors map[string]string
}

// Status is the read-only migration inspection. Safe to call on every
// render; it has no side effects.
type Status struct {
	// HasLocalData is true when any local collection or the profile is
	// non-empty.
	HasLocalData bool

	// CanMigrate is true when authenticated and local data exists.
	CanMigrate bool

	// Counts holds local item counts per collection.
	Counts map[string]int

	// TotalItems is the sum of Counts.
	TotalItems int
}

// Migrator orchestrates the one-shot local-to-remote migration.
type Migrator struct {
	collections []*store.Collection
	profilePath string
	auth        remote.AuthProvider
	svc         *syncsvc.Service
	logger      *log.Logger
}

// New creates a Migrator over the standard collections under dataDir.
//
// If logger is nil, a default logger writing to stderr is used.
func New(dataDir, profilePath string, auth remote.AuthProvider, svc *syncsvc.Service, logger *log.Logger) *Migrator {
	if logger == nil {
		logger = log.New(os.Stderr, "[migrate] ", log.LstdFlags)
	}

	collections := make([]*store.Collection, 0, len(store.Collections))
	for _, name := range store.Collections {
		collections = append(collections, store.OpenCollection(dataDir, name))
	}

	return &Migrator{
		collections: collections,
		profilePath: profilePath,
		auth:        auth,
		svc:         svc,
		logger:      logger,
	}
}

// ToRemote migrates every non-empty local collection plus the profile.
//
// Preconditions are checked before any write: sync must be configured and
// an identity resolved, otherwise remote.ErrNotConfigured or
// remote.ErrNotAuthenticated is returned and no work happens.
func (m *Migrator) ToRemote(ctx context.Context) (*Result, error) {
	if !m.svc.Enabled() {
		return nil, remote.ErrNotConfigured
	}
	if m.auth.CurrentIdentity() == nil {
		return nil, remote.ErrNotAuthenticated
	}

	result := &Result{
		Counts: make(map[string]int),
		Errors: make(map[string]string),
	}

	for _, c := range m.collections {
		records, err := c.Snapshot()
		if err != nil {
			m.logger.Printf("Failed to read local %s: %v", c.Name(), err)
			result.Errors[c.Name()] = err.Error()
			continue
		}
		if len(records) == 0 {
			continue
		}

		if err := m.svc.UpsertCollection(ctx, c.Name(), records); err != nil {
			m.logger.Printf("Failed to migrate %s: %v", c.Name(), err)
			result.Errors[c.Name()] = err.Error()
			continue
		}

		m.logger.Printf("Migrated %s: %d items", c.Name(), len(records))
		result.Counts[c.Name()] = len(records)
		result.TotalItems += len(records)
	}

	if err := m.migrateProfile(ctx, result); err != nil {
		result.Errors[profileKey] = err.Error()
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// migrateProfile pushes the profile blob when it carries data.
func (m *Migrator) migrateProfile(ctx context.Context, result *Result) error {
	profile, err := store.LoadProfile(m.profilePath)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if profile.IsZero() {
		return nil
	}

	if err := m.svc.SyncProfile(ctx, profile.Fields()); err != nil {
		return err
	}

	m.logger.Println("Migrated profile")
	result.Counts[profileKey] = 1
	result.TotalItems++
	return nil
}

// CheckStatus inspects local snapshots and auth state without side
// effects.
func (m *Migrator) CheckStatus() (*Status, error) {
	status := &Status{Counts: make(map[string]int)}

	for _, c := range m.collections {
		count, err := c.Count()
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.Name(), err)
		}
		status.Counts[c.Name()] = count
		status.TotalItems += count
	}

	profile, err := store.LoadProfile(m.profilePath)
	if err != nil {
		return nil, err
	}
	if !profile.IsZero() {
		status.Counts[profileKey] = 1
		status.TotalItems++
	}

	status.HasLocalData = status.TotalItems > 0
	status.CanMigrate = status.HasLocalData && m.auth.CurrentIdentity() != nil
	return status, nil
}
