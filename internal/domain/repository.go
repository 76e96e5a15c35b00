package domain

import "context"

// PrincipalRepository defines persistence for principals.
type PrincipalRepository interface {
	CreateGuest(ctx context.Context) (*Principal, error)
	GetByID(ctx context.Context, id string) (*Principal, error)
	// GetCredentials returns the principal and stored password hash for an
	// email, for sign-in verification.
	GetCredentials(ctx context.Context, email string) (*Principal, string, error)
	Register(ctx context.Context, email, passwordHash string) (*Principal, error)
	// Promote attaches credentials to an existing guest principal, keeping
	// the id unchanged. Returns ErrEmailAlreadyRegistered when the email is
	// taken and ErrNotFound when the principal is missing or not a guest.
	Promote(ctx context.Context, id, email, passwordHash string) (*Principal, error)
}

// EntitlementRepository is the authoritative store for plans, credits and the
// login-bonus flag. ConsumeScanCredit is the only path that may decrement
// scan credits.
type EntitlementRepository interface {
	Get(ctx context.Context, principalID string) (*EntitlementSnapshot, error)
	// ConsumeScanCredit performs the atomic decrement-if-positive. It returns
	// the remaining credits (UnlimitedScans for unmetered plans),
	// ErrQuotaExceeded when no credit is available, or ErrNotFound for an
	// unknown principal.
	ConsumeScanCredit(ctx context.Context, principalID string) (int, error)
	// ApplyLoginBonus grants the one-time credit bonus. It is idempotent:
	// applied reports whether this call performed the grant.
	ApplyLoginBonus(ctx context.Context, principalID string) (applied bool, credits int, err error)
	// SetPlan updates the plan and resets guest-origin usage counters in the
	// same statement.
	SetPlan(ctx context.Context, principalID string, plan Plan) (*EntitlementSnapshot, error)
}

// SubscriptionRepository records plan purchases.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
}

// UsageEventRepository appends audit events for credit consumption.
type UsageEventRepository interface {
	Insert(ctx context.Context, principalID, requestID, eventType string, success bool, remaining int) error
}

// PaymentProcessor is the opaque external payment collaborator. Charge
// returns a confirmation id on success.
type PaymentProcessor interface {
	Charge(ctx context.Context, principalID string, plan Plan) (string, error)
}
