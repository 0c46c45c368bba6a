// Package syncsvc translates local collection snapshots into remote
// document operations, scoped under the authenticated user's namespace.
//
// The service is stateless: every operation resolves the current identity
// on entry and fails with remote.ErrNotAuthenticated when none exists.
// When sync is not configured the service is built disabled and every
// operation returns its degraded value (nil error, empty list, no-op
// unsubscribe) without contacting the remote, so the rest of the app runs
// fully offline without special-casing.
//
// Error contract: write operations return an explicit error after logging
// it; read operations degrade to "no remote data" on transient remote
// failures and only raise authentication violations.
package syncsvc

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/grove-app/grove/internal/remote"
)

// Service performs remote document operations for local records.
type Service struct {
	auth    remote.AuthProvider
	docs    remote.DocumentStore
	enabled bool
	logger  *log.Logger
}

// New creates a Service over the given auth provider and document store.
//
// If logger is nil, a default logger writing to stderr is used.
func New(auth remote.AuthProvider, docs remote.DocumentStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Service{
		auth:    auth,
		docs:    docs,
		enabled: true,
		logger:  logger,
	}
}

// NewDisabled creates a Service in not-configured mode: every operation
// is a silent no-op returning its degraded value.
func NewDisabled(logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Service{logger: logger}
}

// Enabled reports whether the service has a configured remote.
func (s *Service) Enabled() bool {
	return s.enabled
}

// uid resolves the current identity or fails.
func (s *Service) uid() (string, error) {
	id := s.auth.CurrentIdentity()
	if id == nil {
		return "", remote.ErrNotAuthenticated
	}
	return id.UID, nil
}

// UpsertRecord merge-writes one record at users/{uid}/{collection}/{id}.
func (s *Service) UpsertRecord(ctx context.Context, collection string, rec remote.Record) error {
	if !s.enabled {
		return nil
	}

	uid, err := s.uid()
	if err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	path := remote.RecordPath(uid, collection, rec.ID)
	if err := s.docs.UpsertMerge(ctx, path, rec.Fields); err != nil {
		s.logger.Printf("Failed to upsert %s: %v", path, err)
		return fmt.Errorf("failed to sync record %s/%s: %w", collection, rec.ID, err)
	}

	return nil
}

// DeleteRecord removes the remote document for one record.
func (s *Service) DeleteRecord(ctx context.Context, collection, recordID string) error {
	if !s.enabled {
		return nil
	}

	uid, err := s.uid()
	if err != nil {
		return err
	}

	path := remote.RecordPath(uid, collection, recordID)
	if err := s.docs.Delete(ctx, path); err != nil {
		s.logger.Printf("Failed to delete %s: %v", path, err)
		return fmt.Errorf("failed to delete record %s/%s: %w", collection, recordID, err)
	}

	return nil
}

// UpsertCollection batch merge-writes every record in one atomic remote
// transaction. An empty slice is a no-op with no remote call.
func (s *Service) UpsertCollection(ctx context.Context, collection string, records []remote.Record) error {
	if !s.enabled {
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	uid, err := s.uid()
	if err != nil {
		return err
	}

	paths := make([]string, len(records))
	fields := make([]map[string]any, len(records))
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("collection %s: %w", collection, err)
		}
		paths[i] = remote.RecordPath(uid, collection, rec.ID)
		fields[i] = rec.Fields
	}

	if err := s.docs.BatchUpsertMerge(ctx, paths, fields); err != nil {
		s.logger.Printf("Failed to batch upsert %d records to %s: %v", len(records), collection, err)
		return fmt.Errorf("failed to sync collection %s: %w", collection, err)
	}

	s.logger.Printf("Synced %d records to %s", len(records), collection)
	return nil
}

// FetchCollection reads every remote document in the collection.
//
// Transient remote failures are logged and degrade to an empty list;
// only a missing identity is raised as an error.
func (s *Service) FetchCollection(ctx context.Context, collection string) ([]remote.Record, error) {
	if !s.enabled {
		return []remote.Record{}, nil
	}

	uid, err := s.uid()
	if err != nil {
		return nil, err
	}

	docs, err := s.docs.ReadCollection(ctx, remote.CollectionPath(uid, collection))
	if err != nil {
		s.logger.Printf("Failed to fetch collection %s: %v", collection, err)
		return []remote.Record{}, nil
	}

	return documentsToRecords(docs), nil
}

// SubscribeToCollection registers a live listener invoked with the full
// record list on every remote change. Returns a no-op unsubscribe when
// sync is disabled or no identity is resolved.
func (s *Service) SubscribeToCollection(collection string, fn func([]remote.Record)) (unsubscribe func()) {
	if !s.enabled {
		return func() {}
	}

	uid, err := s.uid()
	if err != nil {
		s.logger.Printf("Cannot subscribe to %s: %v", collection, err)
		return func() {}
	}

	return s.docs.Subscribe(remote.CollectionPath(uid, collection), func(docs []remote.Document) {
		fn(documentsToRecords(docs))
	})
}

// SyncProfile merge-writes user-level fields into the document at
// users/{uid} (the namespace root, not nested under a collection).
func (s *Service) SyncProfile(ctx context.Context, fields map[string]any) error {
	if !s.enabled {
		return nil
	}

	uid, err := s.uid()
	if err != nil {
		return err
	}

	path := remote.UserPath(uid)
	if err := s.docs.UpsertMerge(ctx, path, fields); err != nil {
		s.logger.Printf("Failed to sync profile: %v", err)
		return fmt.Errorf("failed to sync profile: %w", err)
	}

	return nil
}

// FetchProfile reads the user-level document. Degrades to nil on
// transient remote failure; nil with no error also means "no profile".
func (s *Service) FetchProfile(ctx context.Context) (map[string]any, error) {
	if !s.enabled {
		return nil, nil
	}

	uid, err := s.uid()
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.ReadDocument(ctx, remote.UserPath(uid))
	if err != nil {
		s.logger.Printf("Failed to fetch profile: %v", err)
		return nil, nil
	}
	if doc == nil {
		return nil, nil
	}

	return doc.Fields, nil
}

func documentsToRecords(docs []remote.Document) []remote.Record {
	records := make([]remote.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, remote.Record{ID: doc.ID, Fields: doc.Fields})
	}
	return records
}
