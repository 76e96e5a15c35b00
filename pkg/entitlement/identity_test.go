package entitlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"leafwise/internal/domain"
)

func newTestIdentity(backend *fakeBackend, sessions SessionStore) (*Identity, *Resolver) {
	resolver := NewResolver(backend)
	return NewIdentity(backend, sessions, resolver, zerolog.Nop()), resolver
}

func TestBootstrapCreatesSingleGuest(t *testing.T) {
	backend := newFakeBackend()
	identity, _ := newTestIdentity(backend, &memSessionStore{})

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := identity.Bootstrap(context.Background())
			if err != nil {
				t.Errorf("bootstrap %d: %v", i, err)
				return
			}
			ids[i] = p.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("caller %d got principal %s, caller 0 got %s", i, ids[i], ids[0])
		}
	}
	if got := backend.guests(); got != 1 {
		t.Fatalf("guests created = %d, want 1", got)
	}
}

func TestBootstrapPrefersPersistedSession(t *testing.T) {
	backend := newFakeBackend()
	sessions := &memSessionStore{}
	persisted := Session{
		Token:     "tok-persisted",
		Principal: domain.Principal{ID: "p-persisted", Kind: domain.PrincipalRegistered, Email: "a@b.c"},
	}
	if err := sessions.Save(persisted); err != nil {
		t.Fatal(err)
	}
	identity, _ := newTestIdentity(backend, sessions)

	p, err := identity.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if p.ID != "p-persisted" {
		t.Fatalf("principal = %s, want persisted one", p.ID)
	}
	if backend.guests() != 0 {
		t.Fatal("no guest should be created when a session is persisted")
	}
}

func TestBootstrapDegradedWhenBackendUnreachable(t *testing.T) {
	backend := newFakeBackend()
	backend.failNetwork = true
	identity, _ := newTestIdentity(backend, &memSessionStore{})

	_, err := identity.Bootstrap(context.Background())
	if !errors.Is(err, domain.ErrNetworkUnavailable) {
		t.Fatalf("err = %v, want ErrNetworkUnavailable", err)
	}
	if !identity.Degraded() {
		t.Fatal("identity should report degraded mode")
	}

	// Recovery: the backend comes back and a retry succeeds.
	backend.mu.Lock()
	backend.failNetwork = false
	backend.mu.Unlock()
	if _, err := identity.Bootstrap(context.Background()); err != nil {
		t.Fatalf("retry bootstrap: %v", err)
	}
	if identity.Degraded() {
		t.Fatal("degraded flag should clear after a successful bootstrap")
	}
}

func TestPromoteKeepsPrincipalID(t *testing.T) {
	backend := newFakeBackend()
	identity, _ := newTestIdentity(backend, &memSessionStore{})

	guest, err := identity.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	p, err := identity.Promote(context.Background(), "keep@example.com", "password123")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if p.ID != guest.ID {
		t.Fatalf("promoted id = %s, want guest id %s", p.ID, guest.ID)
	}
	if p.Kind != domain.PrincipalRegistered {
		t.Fatalf("kind = %s, want registered", p.Kind)
	}
}

func TestPromoteRejectsIdentitySwap(t *testing.T) {
	backend := newFakeBackend()
	backend.promoteSwapID = true
	identity, _ := newTestIdentity(backend, &memSessionStore{})

	guest, err := identity.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := identity.Promote(context.Background(), "swap@example.com", "password123"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	current, ok := identity.Current()
	if !ok || current.Principal.ID != guest.ID {
		t.Fatal("current session should still be the original guest")
	}
}

func TestPromoteEmailTakenKeepsGuestSession(t *testing.T) {
	backend := newFakeBackend()
	if _, err := backend.SignUp(context.Background(), "taken@example.com", "password123"); err != nil {
		t.Fatal(err)
	}
	identity, _ := newTestIdentity(backend, &memSessionStore{})

	guest, err := identity.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := identity.Promote(context.Background(), "taken@example.com", "password123"); !errors.Is(err, domain.ErrEmailAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrEmailAlreadyRegistered", err)
	}
	current, ok := identity.Current()
	if !ok || !current.Principal.IsGuest() || current.Principal.ID != guest.ID {
		t.Fatal("guest session should survive a rejected promotion")
	}
}

func TestSignOutBootstrapsFreshGuest(t *testing.T) {
	backend := newFakeBackend()
	sessions := &memSessionStore{}
	identity, resolver := newTestIdentity(backend, sessions)

	if _, err := backend.SignUp(context.Background(), "out@example.com", "password123"); err != nil {
		t.Fatal(err)
	}
	signedIn, err := identity.SignIn(context.Background(), "out@example.com", "password123")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if _, err := resolver.Fetch(context.Background(), mustCurrent(t, identity)); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	guest, err := identity.SignOut(context.Background())
	if err != nil {
		t.Fatalf("signout: %v", err)
	}
	if guest.ID == signedIn.ID {
		t.Fatal("sign-out should produce a new principal")
	}
	if !guest.IsGuest() {
		t.Fatalf("kind = %s, want guest", guest.Kind)
	}
	if _, ok := resolver.Cached(); ok {
		t.Fatal("sign-out must drop the previous principal's snapshot")
	}
	if s, ok, _ := sessions.Load(); !ok || s.Principal.ID != guest.ID {
		t.Fatal("session store should hold the fresh guest session")
	}
}

func mustCurrent(t *testing.T, identity *Identity) Session {
	t.Helper()
	s, ok := identity.Current()
	if !ok {
		t.Fatal("no current session")
	}
	return s
}
