package localauth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grove-app/grove/internal/remote"
)

func newTestProvider(t *testing.T) (*Provider, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "identity.json")
	p, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, path
}

func TestSignInAnonymously(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	if p.CurrentIdentity() != nil {
		t.Fatal("expected no identity before sign-in")
	}

	id, err := p.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("SignInAnonymously failed: %v", err)
	}
	if id.UID == "" {
		t.Error("uid is empty")
	}
	if !id.Anonymous {
		t.Error("identity not marked anonymous")
	}

	current := p.CurrentIdentity()
	if current == nil || current.UID != id.UID {
		t.Errorf("CurrentIdentity = %+v, want uid %s", current, id.UID)
	}
}

func TestSignInAnonymously_Idempotent(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	first, err := p.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("first sign-in failed: %v", err)
	}
	second, err := p.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("second sign-in failed: %v", err)
	}
	if first.UID != second.UID {
		t.Errorf("uid changed across sign-ins: %s then %s", first.UID, second.UID)
	}
}

func TestSessionAdoptedAcrossRestarts(t *testing.T) {
	p, path := newTestProvider(t)
	ctx := context.Background()

	id, err := p.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	// A new provider over the same file adopts the session without sign-in.
	p2, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	current := p2.CurrentIdentity()
	if current == nil {
		t.Fatal("persisted session not adopted")
	}
	if current.UID != id.UID {
		t.Errorf("adopted uid = %s, want %s", current.UID, id.UID)
	}
}

func TestSignOut(t *testing.T) {
	p, path := newTestProvider(t)
	ctx := context.Background()

	if _, err := p.SignInAnonymously(ctx); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if p.CurrentIdentity() != nil {
		t.Error("identity still resolved after sign-out")
	}

	// File is gone, so a fresh provider has no session.
	p2, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if p2.CurrentIdentity() != nil {
		t.Error("session survived sign-out")
	}
}

func TestOnIdentityChange(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	var events []*remote.Identity
	unsubscribe := p.OnIdentityChange(func(id *remote.Identity) {
		events = append(events, id)
	})

	if _, err := p.SignInAnonymously(ctx); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("sign-out failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0] == nil {
		t.Error("sign-in event delivered nil identity")
	}
	if events[1] != nil {
		t.Error("sign-out event delivered non-nil identity")
	}

	unsubscribe()
	if _, err := p.SignInAnonymously(ctx); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("listener fired after unsubscribe: %d events", len(events))
	}
}
