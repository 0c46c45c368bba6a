// Package localauth implements remote.AuthProvider with anonymous
// identities minted locally and persisted on disk.
//
// The uid is generated once and stored at {dataDir}/identity.json, so the
// same identity is adopted across restarts (a "pre-existing session").
// Signing out deletes the file; the next anonymous sign-in mints a fresh
// uid, which namespaces remote data under a new user.
package localauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/grove-app/grove/internal/remote"
)

// Provider implements remote.AuthProvider.
type Provider struct {
	path string

	mu        sync.Mutex
	current   *remote.Identity
	listeners map[int]func(*remote.Identity)
	nextToken int
}

// New creates a Provider persisting its identity at path. If an identity
// file already exists it is adopted immediately, so CurrentIdentity
// resolves without a sign-in call.
func New(path string) (*Provider, error) {
	p := &Provider{
		path:      path,
		listeners: make(map[int]func(*remote.Identity)),
	}

	id, err := readIdentityFile(path)
	if err != nil {
		return nil, err
	}
	p.current = id

	return p, nil
}

// readIdentityFile loads a persisted identity, returning nil when the
// file does not exist.
func readIdentityFile(path string) (*remote.Identity, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}

	var id remote.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("failed to parse identity file %s: %w", path, err)
	}
	if id.UID == "" {
		return nil, fmt.Errorf("identity file %s has no uid", path)
	}

	return &id, nil
}

// SignInAnonymously implements remote.AuthProvider.SignInAnonymously.
// A persisted session is adopted if present; otherwise a fresh anonymous
// identity is minted and persisted.
func (p *Provider) SignInAnonymously(ctx context.Context) (remote.Identity, error) {
	p.mu.Lock()

	if p.current != nil {
		id := *p.current
		p.mu.Unlock()
		return id, nil
	}

	uid, err := mintUID()
	if err != nil {
		p.mu.Unlock()
		return remote.Identity{}, err
	}

	id := remote.Identity{UID: uid, Anonymous: true}
	if err := p.persist(id); err != nil {
		p.mu.Unlock()
		return remote.Identity{}, err
	}

	p.current = &id
	fns := p.snapshotListeners()
	p.mu.Unlock()

	for _, fn := range fns {
		fn(&id)
	}
	return id, nil
}

// SignOut implements remote.AuthProvider.SignOut.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		p.mu.Unlock()
		return fmt.Errorf("failed to remove identity file: %w", err)
	}

	p.current = nil
	fns := p.snapshotListeners()
	p.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
	return nil
}

// CurrentIdentity implements remote.AuthProvider.CurrentIdentity.
func (p *Provider) CurrentIdentity() *remote.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	id := *p.current
	return &id
}

// OnIdentityChange implements remote.AuthProvider.OnIdentityChange.
func (p *Provider) OnIdentityChange(fn func(*remote.Identity)) (unsubscribe func()) {
	p.mu.Lock()
	token := p.nextToken
	p.nextToken++
	p.listeners[token] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, token)
	}
}

// snapshotListeners copies the listener set. Callers must hold p.mu.
func (p *Provider) snapshotListeners() []func(*remote.Identity) {
	fns := make([]func(*remote.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	return fns
}

// persist writes the identity file atomically via a temp file.
func (p *Provider) persist(id remote.Identity) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create identity directory: %w", err)
	}

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename identity file: %w", err)
	}

	return nil
}

// mintUID generates an opaque anonymous uid.
func mintUID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate uid: %w", err)
	}
	return "anon-" + hex.EncodeToString(buf), nil
}
