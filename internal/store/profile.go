package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Profile holds the coarse-grained user-level fields synced to the root
// of the user's remote namespace.
type Profile struct {
	DisplayName string    `json:"display_name,omitempty"`
	XPTotal     float64   `json:"xp_total"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LoadProfile reads the profile blob. A missing file yields a zero
// profile, not an error.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return &p, nil
}

// SaveProfile writes the profile blob atomically, stamping UpdatedAt.
func SaveProfile(path string, p *Profile) error {
	p.UpdatedAt = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename profile: %w", err)
	}

	return nil
}

// Fields returns the profile as a field map for remote merge-writes.
func (p *Profile) Fields() map[string]any {
	fields := map[string]any{
		"xp_total": p.XPTotal,
	}
	if p.DisplayName != "" {
		fields["display_name"] = p.DisplayName
	}
	return fields
}

// IsZero reports whether the profile carries no data worth syncing.
func (p *Profile) IsZero() bool {
	return p.DisplayName == "" && p.XPTotal == 0
}
