package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Prefs is the persisted subset of sync state: the auto-sync toggle and
// the last successful sync time. Identity and transient flags are never
// persisted; they are re-derived from the auth provider on every load.
type Prefs struct {
	AutoSync   bool       `json:"autoSync"`
	LastSyncAt *time.Time `json:"lastSyncAt"`
}

// LoadPrefs reads sync preferences. A missing file yields defaults.
func LoadPrefs(path string) (*Prefs, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Prefs{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync prefs: %w", err)
	}

	var p Prefs
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse sync prefs %s: %w", path, err)
	}
	return &p, nil
}

// SavePrefs writes sync preferences atomically.
func SavePrefs(path string, p *Prefs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create prefs directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync prefs: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write sync prefs: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename sync prefs: %w", err)
	}

	return nil
}
