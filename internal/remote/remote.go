// Package remote defines the abstract interfaces Grove's sync layer is
// written against: an auth provider issuing identities and a per-user
// document store with merge-write, batch, and subscription primitives.
//
// Conflict resolution is last-write-wins per document: concurrent writers
// to the same path are ordered by the store itself (typically receipt
// time), with no field-level conflict detection. This is a deliberate
// limitation, acceptable for a single user syncing across devices; it is
// NOT safe for multi-user collaboration on shared documents.
package remote

import (
	"context"
	"fmt"
	"time"
)

// Identity is an opaque user reference issued by an auth provider.
type Identity struct {
	UID       string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous"`
}

// AuthProvider issues and tracks user identities.
type AuthProvider interface {
	// SignInAnonymously creates or resumes an anonymous identity.
	SignInAnonymously(ctx context.Context) (Identity, error)

	// SignOut clears the current identity.
	SignOut(ctx context.Context) error

	// CurrentIdentity returns the resolved identity, or nil if signed out.
	CurrentIdentity() *Identity

	// OnIdentityChange registers a callback invoked with the new identity
	// on every sign-in (non-nil) and sign-out (nil). The returned function
	// unregisters the callback; callers must invoke it on teardown.
	OnIdentityChange(fn func(*Identity)) (unsubscribe func())
}

// Document is a stored document plus the identifier it was stored under.
type Document struct {
	ID        string
	Fields    map[string]any
	UpdatedAt time.Time
}

// DocumentStore is a per-user document/collection store.
//
// Paths follow the grammar built by UserPath/CollectionPath/RecordPath.
// All methods are safe for concurrent use.
type DocumentStore interface {
	// UpsertMerge writes fields into the document at path, creating it if
	// absent. Existing fields not named in the write are preserved, and
	// the store stamps its own updated-at time on every write.
	UpsertMerge(ctx context.Context, path string, fields map[string]any) error

	// Delete removes the document at path. Deleting a missing document
	// is not an error.
	Delete(ctx context.Context, path string) error

	// BatchUpsertMerge applies one merge-write per path atomically:
	// either every write commits or none do. paths and fields must be
	// the same length.
	BatchUpsertMerge(ctx context.Context, paths []string, fields []map[string]any) error

	// ReadCollection returns every document directly under the given
	// collection path, ordered by id.
	ReadCollection(ctx context.Context, path string) ([]Document, error)

	// ReadDocument returns the document at path, or nil if it does not exist.
	ReadDocument(ctx context.Context, path string) (*Document, error)

	// Subscribe registers a listener invoked with the full collection
	// contents after every committed change under path. The returned
	// function cancels the subscription.
	Subscribe(path string, fn func([]Document)) (unsubscribe func())

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// Record is one local record bound for the remote store. The sync layer
// never interprets Fields beyond requiring a stable, non-empty ID.
type Record struct {
	ID     string
	Fields map[string]any
}

// Validate rejects records that cannot be addressed remotely.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record is missing an id")
	}
	return nil
}

// UserPath returns the namespace root for a user: users/{uid}.
// The profile document lives at this path directly.
func UserPath(uid string) string {
	return "users/" + uid
}

// CollectionPath returns users/{uid}/{collection}.
func CollectionPath(uid, collection string) string {
	return UserPath(uid) + "/" + collection
}

// RecordPath returns users/{uid}/{collection}/{recordID}.
func RecordPath(uid, collection, recordID string) string {
	return CollectionPath(uid, collection) + "/" + recordID
}
