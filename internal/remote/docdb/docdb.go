// Package docdb provides an embedded SQLite implementation of the
// remote.DocumentStore interface.
//
// The store runs in embedded mode with WAL for concurrent reads. Documents
// are rows keyed by their full path ("users/{uid}/tasks/{id}"), with a JSON
// fields column and a store-assigned updated_at stamp. Merge writes use
// SQLite's json_patch so fields absent from an incoming write survive,
// matching the merge-write contract of a hosted document database.
//
// Subscriptions are in-process: listeners registered on a collection path
// receive the full collection contents after every committed write or
// delete under that path.
package docdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/grove-app/grove/internal/remote"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB implements remote.DocumentStore over an embedded SQLite database.
type DB struct {
	conn *sql.DB
	path string

	listenersMu sync.Mutex
	listeners   map[string]map[int]func([]remote.Document)
	nextToken   int
}

// Open creates or opens a document store at the given file path.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	store, err := docdb.Open(".grove/remote.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn:      conn,
		path:      path,
		listeners: make(map[string]map[int]func([]remote.Document)),
	}

	// WAL mode for concurrent reads
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database connection after checkpointing the WAL.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// initSchema creates the documents table. Idempotent.
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		path TEXT PRIMARY KEY,
		parent TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		fields TEXT NOT NULL DEFAULT '{}',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(parent);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// splitPath separates a document path into its parent collection path
// and trailing document id.
func splitPath(path string) (parent, id string, err error) {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", fmt.Errorf("invalid document path %q", path)
	}
	return path[:idx], path[idx+1:], nil
}

// UpsertMerge implements remote.DocumentStore.UpsertMerge.
func (db *DB) UpsertMerge(ctx context.Context, path string, fields map[string]any) error {
	parent, id, err := splitPath(path)
	if err != nil {
		return err
	}

	if err := db.execUpsert(ctx, db.conn, path, parent, id, fields); err != nil {
		return err
	}

	db.notify(parent)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execUpsert runs one merge-write against conn, which may be a transaction.
// json_patch preserves existing fields the incoming write does not name.
func (db *DB) execUpsert(ctx context.Context, conn execer, path, parent, id string, fields map[string]any) error {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields for %s: %w", path, err)
	}

	query := `
	INSERT INTO documents (path, parent, doc_id, fields, updated_at)
	VALUES (?, ?, ?, json(?), ?)
	ON CONFLICT(path) DO UPDATE SET
		fields = json_patch(documents.fields, excluded.fields),
		updated_at = excluded.updated_at
	`

	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := conn.ExecContext(ctx, query, path, parent, id, string(fieldsJSON), stamp); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", path, err)
	}
	return nil
}

// Delete implements remote.DocumentStore.Delete.
// Deleting a missing document is not an error (idempotent).
func (db *DB) Delete(ctx context.Context, path string) error {
	parent, _, err := splitPath(path)
	if err != nil {
		return err
	}

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}

	db.notify(parent)
	return nil
}

// BatchUpsertMerge implements remote.DocumentStore.BatchUpsertMerge.
// All writes commit in one transaction: either every document lands or
// none do.
func (db *DB) BatchUpsertMerge(ctx context.Context, paths []string, fields []map[string]any) error {
	if len(paths) != len(fields) {
		return fmt.Errorf("batch upsert: %d paths but %d field sets", len(paths), len(fields))
	}
	if len(paths) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	parents := make(map[string]struct{})
	for i, path := range paths {
		parent, id, err := splitPath(path)
		if err != nil {
			return err
		}
		if err := db.execUpsert(ctx, tx, path, parent, id, fields[i]); err != nil {
			return err
		}
		parents[parent] = struct{}{}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	for parent := range parents {
		db.notify(parent)
	}
	return nil
}

// ReadCollection implements remote.DocumentStore.ReadCollection.
func (db *DB) ReadCollection(ctx context.Context, path string) ([]remote.Document, error) {
	query := `
	SELECT doc_id, fields, updated_at
	FROM documents
	WHERE parent = ?
	ORDER BY doc_id ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", path, err)
	}
	defer rows.Close()

	var docs []remote.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection %s: %w", path, err)
	}

	return docs, nil
}

// ReadDocument implements remote.DocumentStore.ReadDocument.
// Returns nil (not an error) when the document does not exist.
func (db *DB) ReadDocument(ctx context.Context, path string) (*remote.Document, error) {
	query := `SELECT doc_id, fields, updated_at FROM documents WHERE path = ?`

	row := db.conn.QueryRowContext(ctx, query, path)

	var doc remote.Document
	var fieldsJSON, updatedAt string
	if err := row.Scan(&doc.ID, &fieldsJSON, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &doc.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", path, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		doc.UpdatedAt = t
	}

	return &doc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (remote.Document, error) {
	var doc remote.Document
	var fieldsJSON, updatedAt string

	if err := row.Scan(&doc.ID, &fieldsJSON, &updatedAt); err != nil {
		return remote.Document{}, fmt.Errorf("failed to scan document: %w", err)
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &doc.Fields); err != nil {
		return remote.Document{}, fmt.Errorf("failed to unmarshal document fields: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		doc.UpdatedAt = t
	}

	return doc, nil
}

// Subscribe implements remote.DocumentStore.Subscribe.
//
// The listener fires after every committed write or delete under path,
// with the full collection contents at that point. Listener callbacks run
// on the writer's goroutine; slow listeners slow writers down.
func (db *DB) Subscribe(path string, fn func([]remote.Document)) (unsubscribe func()) {
	db.listenersMu.Lock()
	token := db.nextToken
	db.nextToken++
	if db.listeners[path] == nil {
		db.listeners[path] = make(map[int]func([]remote.Document))
	}
	db.listeners[path][token] = fn
	db.listenersMu.Unlock()

	return func() {
		db.listenersMu.Lock()
		defer db.listenersMu.Unlock()
		delete(db.listeners[path], token)
		if len(db.listeners[path]) == 0 {
			delete(db.listeners, path)
		}
	}
}

// notify delivers the current collection contents to listeners on parent.
func (db *DB) notify(parent string) {
	db.listenersMu.Lock()
	fns := make([]func([]remote.Document), 0, len(db.listeners[parent]))
	for _, fn := range db.listeners[parent] {
		fns = append(fns, fn)
	}
	db.listenersMu.Unlock()

	if len(fns) == 0 {
		return
	}

	docs, err := db.ReadCollection(context.Background(), parent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to read collection for notify: %v\n", err)
		return
	}

	for _, fn := range fns {
		fn(docs)
	}
}

// Ping implements remote.DocumentStore.Ping.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return remote.ErrRemoteUnavailable
	}
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", remote.ErrRemoteUnavailable, err)
	}
	return nil
}

// CountCollection returns the number of documents directly under path.
// Used by status displays and tests.
func (db *DB) CountCollection(ctx context.Context, path string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE parent = ?`, path).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", path, err)
	}
	return count, nil
}
