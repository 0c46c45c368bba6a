// Package syncstate tracks authentication and sync-activity state for the
// whole app.
//
// The store is an explicit, injectable object with a defined lifecycle
// (New / Close) rather than package-level state, so tests and callers can
// run isolated instances. Identity and sync-activity are independent
// axes: sign-in events can arrive at any time via the auth provider's
// subscription, while Syncing is toggled by callers bracketing a sync
// operation.
//
// The store does not serialize overlapping sync attempts; callers are
// expected to skip a new attempt while State().Syncing is true.
package syncstate

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/grove-app/grove/internal/remote"
	"github.com/grove-app/grove/internal/store"
)

// State is a snapshot of sync status. Identity is nil iff Authenticated
// is false.
type State struct {
	Syncing       bool
	LastSyncAt    *time.Time
	Err           string
	Identity      *remote.Identity
	Authenticated bool
	AutoSync      bool
	SyncEnabled   bool
}

// Status is the merged live view returned by Status(): persistent state
// plus a freshly probed reachability check.
type Status struct {
	Authenticated bool
	UID           string
	Online        bool
	CanSync       bool
}

// Prober reports remote store reachability. The document store itself
// satisfies this via Ping.
type Prober interface {
	Ping(ctx context.Context) error
}

// Options configures a Store.
type Options struct {
	// Auth resolves and tracks identities. Required when SyncEnabled.
	Auth remote.AuthProvider

	// Probe checks remote reachability for Status(). May be nil, in
	// which case the store is treated as unreachable.
	Probe Prober

	// PrefsPath persists {autoSync, lastSyncAt}. Empty disables
	// persistence (tests).
	PrefsPath string

	// SyncEnabled is the feature flag computed once at process start.
	SyncEnabled bool

	// Logger for store activity. Nil means stderr.
	Logger *log.Logger
}

// Store owns process-wide sync status.
type Store struct {
	auth      remote.AuthProvider
	probe     Prober
	prefsPath string
	logger    *log.Logger

	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextToken int
	authUnsub func()
}

// New creates a Store, loading persisted preferences. Identity is not
// resolved here; call InitializeSync for the bootstrap sequence.
func New(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[syncstate] ", log.LstdFlags)
	}

	s := &Store{
		auth:      opts.Auth,
		probe:     opts.Probe,
		prefsPath: opts.PrefsPath,
		logger:    logger,
		listeners: make(map[int]func(State)),
		state:     State{SyncEnabled: opts.SyncEnabled},
	}

	if opts.PrefsPath != "" {
		prefs, err := store.LoadPrefs(opts.PrefsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load sync prefs: %w", err)
		}
		s.state.AutoSync = prefs.AutoSync
		s.state.LastSyncAt = prefs.LastSyncAt
	}

	return s, nil
}

// Close cancels the auth subscription if one is active.
func (s *Store) Close() {
	s.mu.Lock()
	unsub := s.authUnsub
	s.authUnsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a listener invoked with the new state after every
// mutation. The returned function unregisters it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	token := s.nextToken
	s.nextToken++
	s.listeners[token] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, token)
	}
}

// InitializeSync runs the authentication bootstrap: adopt an existing
// session if one is present, otherwise sign in anonymously.
//
// A no-op when sync is disabled. On failure the error message is recorded
// in state and the store stays unauthenticated; the error is also
// returned for callers that want it. Safe to call repeatedly: the current
// session is re-checked on each call.
func (s *Store) InitializeSync(ctx context.Context) error {
	if !s.State().SyncEnabled {
		s.logger.Println("Sync disabled, skipping initialization")
		return nil
	}

	if id := s.auth.CurrentIdentity(); id != nil {
		s.logger.Printf("Adopted existing session: %s", id.UID)
		s.setIdentity(id)
		return nil
	}

	id, err := s.auth.SignInAnonymously(ctx)
	if err != nil {
		s.logger.Printf("Anonymous sign-in failed: %v", err)
		s.mutate(func(st *State) {
			st.Identity = nil
			st.Authenticated = false
			st.Err = err.Error()
		})
		return fmt.Errorf("failed to initialize sync: %w", err)
	}

	s.logger.Printf("Signed in anonymously: %s", id.UID)
	s.setIdentity(&id)
	return nil
}

// SubscribeToAuth registers with the auth provider so out-of-band
// sign-in/out events update the store. Returns the unsubscribe handle;
// when sync is disabled a no-op handle is returned without registering.
func (s *Store) SubscribeToAuth() (unsubscribe func()) {
	if !s.State().SyncEnabled {
		return func() {}
	}

	unsub := s.auth.OnIdentityChange(func(id *remote.Identity) {
		s.setIdentity(id)
	})

	s.mu.Lock()
	s.authUnsub = unsub
	s.mu.Unlock()

	return unsub
}

// setIdentity updates identity and authenticated together, clearing any
// sync error on a successful sign-in.
func (s *Store) setIdentity(id *remote.Identity) {
	s.mutate(func(st *State) {
		st.Identity = id
		st.Authenticated = id != nil
		st.Err = ""
	})
}

// SetSyncing toggles the in-flight flag.
func (s *Store) SetSyncing(syncing bool) {
	s.mutate(func(st *State) { st.Syncing = syncing })
}

// UpdateLastSync stamps the current time as the last successful sync and
// persists it.
func (s *Store) UpdateLastSync() {
	now := time.Now()
	s.mutate(func(st *State) { st.LastSyncAt = &now })
	s.persistPrefs()
}

// SetError records a sync error message. An empty string clears it.
func (s *Store) SetError(msg string) {
	s.mutate(func(st *State) { st.Err = msg })
}

// ClearError clears any recorded sync error.
func (s *Store) ClearError() {
	s.SetError("")
}

// ToggleAutoSync flips the auto-sync preference, persists it, and
// returns the new value.
func (s *Store) ToggleAutoSync() bool {
	var enabled bool
	s.mutate(func(st *State) {
		st.AutoSync = !st.AutoSync
		enabled = st.AutoSync
	})
	s.persistPrefs()
	return enabled
}

// Status merges live state with a fresh reachability probe.
// CanSync requires a resolved identity and a reachable remote store.
func (s *Store) Status(ctx context.Context) Status {
	st := s.State()

	online := false
	if st.SyncEnabled && s.probe != nil {
		online = s.probe.Ping(ctx) == nil
	}

	uid := ""
	if st.Identity != nil {
		uid = st.Identity.UID
	}

	return Status{
		Authenticated: st.Authenticated,
		UID:           uid,
		Online:        online,
		CanSync:       st.Authenticated && online,
	}
}

// mutate applies fn under the lock and notifies listeners with the new
// state outside it.
func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	st := s.state
	fns := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		fns = append(fns, l)
	}
	s.mu.Unlock()

	for _, l := range fns {
		l(st)
	}
}

// persistPrefs writes the persisted subset. Failures are logged, never
// raised: preference persistence must not break sync itself.
func (s *Store) persistPrefs() {
	if s.prefsPath == "" {
		return
	}

	st := s.State()
	prefs := &store.Prefs{AutoSync: st.AutoSync, LastSyncAt: st.LastSyncAt}
	if err := store.SavePrefs(s.prefsPath, prefs); err != nil {
		s.logger.Printf("Failed to persist sync prefs: %v", err)
	}
}
