package daemon

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grove-app/grove/internal/remote"
	"github.com/grove-app/grove/internal/remote/docdb"
	"github.com/grove-app/grove/internal/store"
	"github.com/grove-app/grove/internal/syncstate"
	"github.com/grove-app/grove/internal/syncsvc"
)

type fakeAuth struct {
	identity *remote.Identity
}

func (f *fakeAuth) SignInAnonymously(ctx context.Context) (remote.Identity, error) {
	return *f.identity, nil
}
func (f *fakeAuth) SignOut(ctx context.Context) error                  { return nil }
func (f *fakeAuth) CurrentIdentity() *remote.Identity                  { return f.identity }
func (f *fakeAuth) OnIdentityChange(fn func(*remote.Identity)) func() { return func() {} }

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[test] ", 0)
}

func setupDaemon(t *testing.T) (*Daemon, *docdb.DB, *syncstate.Store, string) {
	t.Helper()

	dataDir := t.TempDir()
	db, err := docdb.Open(filepath.Join(t.TempDir(), "remote.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	auth := &fakeAuth{identity: &remote.Identity{UID: "u1"}}
	svc := syncsvc.New(auth, db, testLogger())

	status, err := syncstate.New(syncstate.Options{
		Auth:        auth,
		Probe:       db,
		SyncEnabled: true,
		Logger:      testLogger(),
	})
	if err != nil {
		t.Fatalf("syncstate.New failed: %v", err)
	}
	t.Cleanup(status.Close)

	cfg := DefaultConfig()
	cfg.DebounceInterval = time.Nanosecond
	cfg.Logger = testLogger()

	d, err := New(dataDir, svc, status, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { d.watcher.Close() })

	return d, db, status, dataDir
}

func TestNew_RejectsUnconfiguredSync(t *testing.T) {
	status, err := syncstate.New(syncstate.Options{Logger: testLogger()})
	if err != nil {
		t.Fatalf("syncstate.New failed: %v", err)
	}
	defer status.Close()

	_, err = New(t.TempDir(), syncsvc.NewDisabled(testLogger()), status, nil)
	if !errors.Is(err, remote.ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestPerformFullSync(t *testing.T) {
	d, db, status, dataDir := setupDaemon(t)
	ctx := context.Background()

	c := store.OpenCollection(dataDir, "tasks")
	for _, id := range []string{"a", "b"} {
		if err := c.Put(remote.Record{ID: id, Fields: map[string]any{"title": id}}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	if err := d.PerformFullSync(ctx); err != nil {
		t.Fatalf("PerformFullSync failed: %v", err)
	}

	count, err := db.CountCollection(ctx, remote.CollectionPath("u1", "tasks"))
	if err != nil {
		t.Fatalf("CountCollection failed: %v", err)
	}
	if count != 2 {
		t.Errorf("remote tasks = %d, want 2", count)
	}

	st := status.State()
	if st.LastSyncAt == nil {
		t.Error("LastSyncAt not stamped after full sync")
	}
	if st.Syncing {
		t.Error("Syncing still true after full sync")
	}
}

func TestPerformFullSync_SkipsWhileInFlight(t *testing.T) {
	d, db, status, dataDir := setupDaemon(t)
	ctx := context.Background()

	c := store.OpenCollection(dataDir, "tasks")
	if err := c.Put(remote.Record{ID: "a", Fields: map[string]any{}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	status.SetSyncing(true)
	if err := d.PerformFullSync(ctx); err != nil {
		t.Fatalf("PerformFullSync failed: %v", err)
	}
	status.SetSyncing(false)

	count, err := db.CountCollection(ctx, remote.CollectionPath("u1", "tasks"))
	if err != nil {
		t.Fatalf("CountCollection failed: %v", err)
	}
	if count != 0 {
		t.Errorf("overlapping sync was not skipped: %d records pushed", count)
	}
}

func TestProcessPendingChanges(t *testing.T) {
	d, db, status, dataDir := setupDaemon(t)
	ctx := context.Background()

	c := store.OpenCollection(dataDir, "tasks")
	if err := c.Put(remote.Record{ID: "a", Fields: map[string]any{"title": "x"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	path := filepath.Join(dataDir, "tasks", "a.json")

	// Auto-sync off: the change stays queued.
	d.queueChange(path)
	time.Sleep(time.Millisecond)
	d.processPendingChanges()
	count, _ := db.CountCollection(ctx, remote.CollectionPath("u1", "tasks"))
	if count != 0 {
		t.Errorf("change synced while auto-sync off: %d records", count)
	}

	// Toggle on and flush.
	status.ToggleAutoSync()
	d.processPendingChanges()
	count, err := db.CountCollection(ctx, remote.CollectionPath("u1", "tasks"))
	if err != nil {
		t.Fatalf("CountCollection failed: %v", err)
	}
	if count != 1 {
		t.Errorf("queued change not synced: %d records", count)
	}
	if status.State().LastSyncAt == nil {
		t.Error("LastSyncAt not stamped after change sync")
	}
}

func TestSyncRecordFile_DeletedFile(t *testing.T) {
	d, db, status, dataDir := setupDaemon(t)
	ctx := context.Background()
	status.ToggleAutoSync()

	c := store.OpenCollection(dataDir, "tasks")
	if err := c.Put(remote.Record{ID: "a", Fields: map[string]any{"title": "x"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	path := filepath.Join(dataDir, "tasks", "a.json")

	d.queueChange(path)
	time.Sleep(time.Millisecond)
	d.processPendingChanges()

	// Delete the local file; the queued change must remove the remote doc.
	if err := c.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	d.queueChange(path)
	time.Sleep(time.Millisecond)
	d.processPendingChanges()

	count, err := db.CountCollection(ctx, remote.CollectionPath("u1", "tasks"))
	if err != nil {
		t.Fatalf("CountCollection failed: %v", err)
	}
	if count != 0 {
		t.Errorf("remote doc survived local delete: %d records", count)
	}
}
