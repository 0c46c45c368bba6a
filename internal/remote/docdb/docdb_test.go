package docdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grove-app/grove/internal/remote"
)

// setupTestDB creates a temporary document store for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestUpsertAndRead(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	path := remote.RecordPath("u1", "tasks", "a")
	err := db.UpsertMerge(ctx, path, map[string]any{"title": "Water the plants", "done": false})
	if err != nil {
		t.Fatalf("UpsertMerge failed: %v", err)
	}

	doc, err := db.ReadDocument(ctx, path)
	if err != nil {
		t.Fatalf("ReadDocument failed: %v", err)
	}
	if doc == nil {
		t.Fatal("expected document, got nil")
	}
	if doc.ID != "a" {
		t.Errorf("ID = %q, want %q", doc.ID, "a")
	}
	if doc.Fields["title"] != "Water the plants" {
		t.Errorf("title = %v", doc.Fields["title"])
	}
	if doc.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped")
	}
}

func TestUpsertMergePreservesExistingFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	path := remote.RecordPath("u1", "tasks", "a")
	if err := db.UpsertMerge(ctx, path, map[string]any{"title": "First", "color": "green"}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	// Second write names only title; color must survive.
	if err := db.UpsertMerge(ctx, path, map[string]any{"title": "Second"}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	doc, err := db.ReadDocument(ctx, path)
	if err != nil {
		t.Fatalf("ReadDocument failed: %v", err)
	}
	if doc.Fields["title"] != "Second" {
		t.Errorf("title = %v, want Second", doc.Fields["title"])
	}
	if doc.Fields["color"] != "green" {
		t.Errorf("color = %v, want green (remote-only field lost)", doc.Fields["color"])
	}
}

func TestReadDocument_Missing(t *testing.T) {
	db := setupTestDB(t)

	doc, err := db.ReadDocument(context.Background(), remote.RecordPath("u1", "tasks", "nope"))
	if err != nil {
		t.Fatalf("ReadDocument failed: %v", err)
	}
	if doc != nil {
		t.Errorf("expected nil for missing document, got %+v", doc)
	}
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	path := remote.RecordPath("u1", "tasks", "a")
	if err := db.UpsertMerge(ctx, path, map[string]any{"title": "x"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := db.Delete(ctx, path); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	doc, err := db.ReadDocument(ctx, path)
	if err != nil {
		t.Fatalf("ReadDocument failed: %v", err)
	}
	if doc != nil {
		t.Error("document still present after delete")
	}

	// Deleting again is idempotent.
	if err := db.Delete(ctx, path); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
}

func TestBatchUpsertMerge(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	paths := []string{
		remote.RecordPath("u1", "tasks", "a"),
		remote.RecordPath("u1", "tasks", "b"),
		remote.RecordPath("u1", "habits", "h1"),
	}
	fields := []map[string]any{
		{"title": "one"},
		{"title": "two"},
		{"name": "stretch"},
	}

	if err := db.BatchUpsertMerge(ctx, paths, fields); err != nil {
		t.Fatalf("BatchUpsertMerge failed: %v", err)
	}

	tasks, err := db.ReadCollection(ctx, remote.CollectionPath("u1", "tasks"))
	if err != nil {
		t.Fatalf("ReadCollection failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "a" || tasks[1].ID != "b" {
		t.Errorf("ids = %s, %s; want a, b", tasks[0].ID, tasks[1].ID)
	}

	count, err := db.CountCollection(ctx, remote.CollectionPath("u1", "habits"))
	if err != nil {
		t.Fatalf("CountCollection failed: %v", err)
	}
	if count != 1 {
		t.Errorf("habits count = %d, want 1", count)
	}
}

func TestBatchUpsertMerge_Empty(t *testing.T) {
	db := setupTestDB(t)
	if err := db.BatchUpsertMerge(context.Background(), nil, nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

func TestBatchUpsertMerge_MismatchedLengths(t *testing.T) {
	db := setupTestDB(t)
	err := db.BatchUpsertMerge(context.Background(), []string{"users/u1/tasks/a"}, nil)
	if err == nil {
		t.Error("expected error for mismatched paths/fields lengths")
	}
}

func TestBatchUpsertMerge_AtomicOnBadPath(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	paths := []string{
		remote.RecordPath("u1", "tasks", "a"),
		"no-slash-path", // invalid, forces rollback
	}
	fields := []map[string]any{{"title": "one"}, {"title": "two"}}

	if err := db.BatchUpsertMerge(ctx, paths, fields); err == nil {
		t.Fatal("expected error from invalid path")
	}

	count, err := db.CountCollection(ctx, remote.CollectionPath("u1", "tasks"))
	if err != nil {
		t.Fatalf("CountCollection failed: %v", err)
	}
	if count != 0 {
		t.Errorf("partial batch visible: %d documents written", count)
	}
}

func TestSubscribe(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	collection := remote.CollectionPath("u1", "tasks")

	var snapshots [][]remote.Document
	unsubscribe := db.Subscribe(collection, func(docs []remote.Document) {
		snapshots = append(snapshots, docs)
	})

	if err := db.UpsertMerge(ctx, remote.RecordPath("u1", "tasks", "a"), map[string]any{"title": "x"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := db.Delete(ctx, remote.RecordPath("u1", "tasks", "a")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snapshots))
	}
	if len(snapshots[0]) != 1 || len(snapshots[1]) != 0 {
		t.Errorf("snapshot sizes = %d, %d; want 1, 0", len(snapshots[0]), len(snapshots[1]))
	}

	// After unsubscribe no further deliveries.
	unsubscribe()
	if err := db.UpsertMerge(ctx, remote.RecordPath("u1", "tasks", "b"), map[string]any{"title": "y"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if len(snapshots) != 2 {
		t.Errorf("listener fired after unsubscribe: %d snapshots", len(snapshots))
	}
}

func TestSubscribe_ScopedToCollection(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	fired := 0
	unsub := db.Subscribe(remote.CollectionPath("u1", "tasks"), func([]remote.Document) { fired++ })
	defer unsub()

	// A write to another user's tasks must not fire the listener.
	if err := db.UpsertMerge(ctx, remote.RecordPath("u2", "tasks", "a"), map[string]any{"title": "x"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if fired != 0 {
		t.Errorf("listener fired %d times for unrelated collection", fired)
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
