package domain

import "time"

// PrincipalKind enumerates the two identity states of an actor.
type PrincipalKind string

const (
	PrincipalGuest      PrincipalKind = "guest"
	PrincipalRegistered PrincipalKind = "registered"
)

// Plan enumerates billing plans.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
	PlanPro     Plan = "pro"
)

// KnownPlan reports whether p is one of the supported plans.
func KnownPlan(p Plan) bool {
	switch p {
	case PlanFree, PlanPremium, PlanPro:
		return true
	}
	return false
}

// Principal represents the current actor: a server-issued anonymous guest or a
// credentialed account. A principal is exactly one of the two at any time;
// promotion flips the kind in place without changing the id so history rows
// stay attached.
type Principal struct {
	ID        string
	Kind      PrincipalKind
	Email     string
	CreatedAt time.Time
}

// IsGuest reports whether the principal is an anonymous guest.
func (p Principal) IsGuest() bool {
	return p.Kind == PrincipalGuest
}

// SubscriptionStatus enumerates subscription lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription records a plan purchase for a principal.
type Subscription struct {
	ID          string
	PrincipalID string
	Plan        Plan
	Status      SubscriptionStatus
	RenewedAt   time.Time
}
