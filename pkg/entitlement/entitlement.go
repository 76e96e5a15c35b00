// Package entitlement is the client-side half of the entitlement and
// usage-metering system: identity lifecycle, the advisory usage ledger, the
// cached entitlement resolver, feature gating and the paywall flow. All
// collaborators (auth backend, entitlement store, payment processor, session
// storage) are injected interfaces so every component is testable against
// fakes and nothing reaches for ambient state.
package entitlement

import (
	"context"

	"leafwise/internal/domain"
)

// Session binds a bearer token to the principal it authenticates.
type Session struct {
	Token     string           `json:"token"`
	Principal domain.Principal `json:"principal"`
}

// AuthBackend is the authentication collaborator.
type AuthBackend interface {
	CreateGuestSession(ctx context.Context) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, email, password string) (Session, error)
	// Promote attaches credentials to the session's guest principal without
	// changing its id.
	Promote(ctx context.Context, session Session, email, password string) (Session, error)
	SignOut(ctx context.Context, session Session) error
}

// Store is the authoritative entitlement store collaborator.
type Store interface {
	GetEntitlements(ctx context.Context, session Session) (domain.EntitlementSnapshot, error)
	// DecrementScanCredit performs the atomic decrement-if-positive on the
	// server and returns the remaining balance. It must never be emulated
	// with a read followed by a write.
	DecrementScanCredit(ctx context.Context, session Session) (int, error)
	// ApplyLoginBonus is idempotent server-side.
	ApplyLoginBonus(ctx context.Context, session Session) (applied bool, credits int, err error)
	// SetPlan activates a purchased plan for the session principal.
	SetPlan(ctx context.Context, session Session, plan domain.Plan) (domain.EntitlementSnapshot, error)
}

// PaymentProcessor is the opaque checkout collaborator. Charge blocks until
// the purchase definitively succeeds or fails.
type PaymentProcessor interface {
	Charge(ctx context.Context, plan domain.Plan) (confirmation string, err error)
}

// SessionStore persists the session token between launches (secure storage on
// device). The persisted snapshot of entitlements is display-only and lives
// in the resolver, not here.
type SessionStore interface {
	Load() (Session, bool, error)
	Save(Session) error
	Clear() error
}
