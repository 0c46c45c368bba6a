// Package store implements Grove's local persistence: per-domain record
// collections, the user profile blob, and sync preferences.
//
// Each collection is a directory of JSON files, one file per record
// ({dataDir}/tasks/{id}.json and so on). Fields beyond the id are opaque
// to this layer; the sync machinery ships them to the remote store as-is.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grove-app/grove/internal/remote"
)

// Collections are the record collections Grove syncs.
var Collections = []string{"tasks", "books", "journals", "habits"}

// Collection is a directory-backed record collection.
type Collection struct {
	name string
	dir  string
}

// OpenCollection returns the collection with the given name under dataDir.
// The directory is created lazily on first write.
func OpenCollection(dataDir, name string) *Collection {
	return &Collection{
		name: name,
		dir:  filepath.Join(dataDir, name),
	}
}

// Name returns the collection name ("tasks", "books", ...).
func (c *Collection) Name() string {
	return c.name
}

// Put writes a record to disk, replacing any existing record with the
// same id. Records without an id are rejected.
func (c *Collection) Put(rec remote.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("cannot store record in %s: %w", c.name, err)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", c.name, err)
	}

	fields := make(map[string]any, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		fields[k] = v
	}
	fields["id"] = rec.ID

	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
	}

	// Atomic write via temp file
	path := c.recordPath(rec.ID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write record file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename record file: %w", err)
	}

	return nil
}

// Get reads one record by id. The second return is false when the record
// does not exist.
func (c *Collection) Get(id string) (remote.Record, bool, error) {
	rec, err := readRecordFile(c.recordPath(id))
	if os.IsNotExist(err) {
		return remote.Record{}, false, nil
	}
	if err != nil {
		return remote.Record{}, false, err
	}
	return rec, true, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (c *Collection) Delete(id string) error {
	if err := os.Remove(c.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// Snapshot returns every record in the collection, ordered by id.
// Invalid files are skipped with a warning to stderr, matching the
// resilient-read policy of the rest of the app.
func (c *Collection) Snapshot() ([]remote.Record, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []remote.Record{}, nil
		}
		return nil, fmt.Errorf("failed to read %s directory: %w", c.name, err)
	}

	records := make([]remote.Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		rec, err := readRecordFile(filepath.Join(c.dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping invalid record file %s: %v\n", entry.Name(), err)
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// Count returns the number of valid records in the collection.
func (c *Collection) Count() (int, error) {
	records, err := c.Snapshot()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (c *Collection) recordPath(id string) string {
	return filepath.Join(c.dir, id+".json")
}

// readRecordFile parses one record file. The id comes from the stored
// "id" field, falling back to the filename stem.
func readRecordFile(path string) (remote.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return remote.Record{}, err
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return remote.Record{}, fmt.Errorf("failed to parse record file %s: %w", path, err)
	}

	id, _ := fields["id"].(string)
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), ".json")
	}

	rec := remote.Record{ID: id, Fields: fields}
	if err := rec.Validate(); err != nil {
		return remote.Record{}, fmt.Errorf("invalid record file %s: %w", path, err)
	}
	return rec, nil
}
