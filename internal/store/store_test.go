package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grove-app/grove/internal/remote"
)

func TestCollectionPutGetDelete(t *testing.T) {
	c := OpenCollection(t.TempDir(), "tasks")

	rec := remote.Record{ID: "a", Fields: map[string]any{"title": "Water ferns", "done": false}}
	if err := c.Put(rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := c.Get("a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("record not found")
	}
	if got.ID != "a" || got.Fields["title"] != "Water ferns" {
		t.Errorf("got %+v", got)
	}

	if err := c.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := c.Get("a"); ok {
		t.Error("record still present after delete")
	}

	// Idempotent delete.
	if err := c.Delete("a"); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
}

func TestCollectionRejectsMissingID(t *testing.T) {
	c := OpenCollection(t.TempDir(), "tasks")
	if err := c.Put(remote.Record{Fields: map[string]any{"title": "x"}}); err == nil {
		t.Error("record without id accepted")
	}
}

func TestCollectionSnapshot(t *testing.T) {
	dir := t.TempDir()
	c := OpenCollection(dir, "tasks")

	for _, id := range []string{"b", "a", "c"} {
		if err := c.Put(remote.Record{ID: id, Fields: map[string]any{"title": id}}); err != nil {
			t.Fatalf("Put %s failed: %v", id, err)
		}
	}

	// Drop an invalid file in the directory; it must be skipped.
	if err := os.WriteFile(filepath.Join(dir, "tasks", "bad.json"), []byte("not json"), 0644); err != nil {
		t.Fatalf("failed to write bad file: %v", err)
	}

	records, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"a", "b", "c"} {
		if records[i].ID != want {
			t.Errorf("records[%d].ID = %s, want %s", i, records[i].ID, want)
		}
	}
}

func TestCollectionSnapshot_EmptyDir(t *testing.T) {
	c := OpenCollection(t.TempDir(), "journals")
	records, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty snapshot, got %d records", len(records))
	}
}

func TestProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile on missing file failed: %v", err)
	}
	if !p.IsZero() {
		t.Errorf("fresh profile not zero: %+v", p)
	}

	p.DisplayName = "Fern"
	p.XPTotal = 450
	if err := SaveProfile(path, p); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	loaded, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if loaded.DisplayName != "Fern" || loaded.XPTotal != 450 {
		t.Errorf("loaded %+v", loaded)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped on save")
	}

	fields := loaded.Fields()
	if fields["xp_total"] != 450.0 || fields["display_name"] != "Fern" {
		t.Errorf("Fields() = %v", fields)
	}
}

func TestPrefsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncprefs.json")

	p, err := LoadPrefs(path)
	if err != nil {
		t.Fatalf("LoadPrefs on missing file failed: %v", err)
	}
	if p.AutoSync || p.LastSyncAt != nil {
		t.Errorf("fresh prefs not default: %+v", p)
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.AutoSync = true
	p.LastSyncAt = &now
	if err := SavePrefs(path, p); err != nil {
		t.Fatalf("SavePrefs failed: %v", err)
	}

	loaded, err := LoadPrefs(path)
	if err != nil {
		t.Fatalf("LoadPrefs failed: %v", err)
	}
	if !loaded.AutoSync {
		t.Error("AutoSync not persisted")
	}
	if loaded.LastSyncAt == nil || !loaded.LastSyncAt.Equal(now) {
		t.Errorf("LastSyncAt = %v, want %v", loaded.LastSyncAt, now)
	}
}
