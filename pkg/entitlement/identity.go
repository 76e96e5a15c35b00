package entitlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"leafwise/internal/domain"
)

// Identity owns the current principal and its session lifecycle. Every
// successful transition invalidates the entitlement resolver so no component
// keeps authorizing against the previous identity's snapshot.
type Identity struct {
	auth     AuthBackend
	sessions SessionStore
	resolver *Resolver
	logger   zerolog.Logger
	flight   singleflight.Group

	mu       sync.Mutex
	session  *Session
	degraded bool
}

// NewIdentity constructs an Identity manager.
func NewIdentity(auth AuthBackend, sessions SessionStore, resolver *Resolver, logger zerolog.Logger) *Identity {
	return &Identity{auth: auth, sessions: sessions, resolver: resolver, logger: logger}
}

// Bootstrap establishes the active principal: a persisted session when one
// exists, otherwise a server-issued guest. Concurrent calls share one flight,
// so an app instance can never end up with two guest principals. When the
// backend is unreachable the app enters degraded mode instead of blocking:
// the error is returned, plan-gated features stay closed, and local guest
// counters remain usable.
func (m *Identity) Bootstrap(ctx context.Context) (domain.Principal, error) {
	v, err, _ := m.flight.Do("bootstrap", func() (any, error) {
		m.mu.Lock()
		if m.session != nil {
			s := *m.session
			m.mu.Unlock()
			return s, nil
		}
		m.mu.Unlock()

		if m.sessions != nil {
			if s, ok, err := m.sessions.Load(); err != nil {
				m.logger.Warn().Err(err).Msg("session load failed")
			} else if ok {
				m.adopt(s, false)
				return s, nil
			}
		}

		s, err := m.auth.CreateGuestSession(ctx)
		if err != nil {
			m.mu.Lock()
			m.degraded = true
			m.mu.Unlock()
			return Session{}, fmt.Errorf("guest bootstrap: %w", domain.ErrNetworkUnavailable)
		}
		m.adopt(s, true)
		return s, nil
	})
	if err != nil {
		return domain.Principal{}, err
	}
	return v.(Session).Principal, nil
}

// SignIn exchanges credentials for a session and makes it current.
func (m *Identity) SignIn(ctx context.Context, email, password string) (domain.Principal, error) {
	s, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		return domain.Principal{}, err
	}
	m.adopt(s, true)
	return s.Principal, nil
}

// SignUp registers a fresh credentialed principal. Guests that want to keep
// their history should use Promote.
func (m *Identity) SignUp(ctx context.Context, email, password string) (domain.Principal, error) {
	s, err := m.auth.SignUp(ctx, email, password)
	if err != nil {
		return domain.Principal{}, err
	}
	m.adopt(s, true)
	return s.Principal, nil
}

// Promote attaches credentials to the current guest principal in place. The
// principal id is unchanged so history and usage rows stay attached. On
// EmailAlreadyRegistered the current guest session is kept as-is.
func (m *Identity) Promote(ctx context.Context, email, password string) (domain.Principal, error) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return domain.Principal{}, domain.ErrUnauthorized
	}
	current := *m.session
	m.mu.Unlock()

	if !current.Principal.IsGuest() {
		return domain.Principal{}, fmt.Errorf("promote: principal is already registered")
	}
	s, err := m.auth.Promote(ctx, current, email, password)
	if err != nil {
		return domain.Principal{}, err
	}
	if s.Principal.ID != current.Principal.ID {
		// The backend must keep the id stable; refuse to adopt a session
		// that silently swapped identities.
		return domain.Principal{}, domain.ErrConflict
	}
	m.adopt(s, true)
	return s.Principal, nil
}

// SignOut discards the current session and bootstraps a fresh guest.
func (m *Identity) SignOut(ctx context.Context) (domain.Principal, error) {
	m.mu.Lock()
	current := m.session
	m.session = nil
	m.degraded = false
	m.mu.Unlock()

	if current != nil {
		if err := m.auth.SignOut(ctx, *current); err != nil {
			m.logger.Warn().Err(err).Msg("remote sign-out failed")
		}
	}
	if m.sessions != nil {
		if err := m.sessions.Clear(); err != nil {
			m.logger.Warn().Err(err).Msg("session clear failed")
		}
	}
	if m.resolver != nil {
		m.resolver.Invalidate()
	}
	return m.Bootstrap(ctx)
}

// Current returns the active session, if any.
func (m *Identity) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Degraded reports whether the last bootstrap failed to reach the backend.
func (m *Identity) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

func (m *Identity) adopt(s Session, persist bool) {
	m.mu.Lock()
	copied := s
	m.session = &copied
	m.degraded = false
	m.mu.Unlock()

	if persist && m.sessions != nil {
		if err := m.sessions.Save(s); err != nil {
			m.logger.Warn().Err(err).Msg("session persist failed")
		}
	}
	if m.resolver != nil {
		m.resolver.Invalidate()
	}
}
