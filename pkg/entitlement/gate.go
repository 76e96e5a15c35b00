package entitlement

import (
	"context"

	"leafwise/internal/domain"
)

// GateState is the render decision for a protected capability.
type GateState int

const (
	// GateLoading means the entitlement fetch is still in flight; render
	// nothing rather than flash a wrong state.
	GateLoading GateState = iota
	// GateUnauthenticated means there is no principal to decide for.
	GateUnauthenticated
	// GateLocked means the snapshot denies access; offer the paywall.
	GateLocked
	// GateUnlocked means the protected content may render.
	GateUnlocked
)

func (s GateState) String() string {
	switch s {
	case GateLoading:
		return "loading"
	case GateUnauthenticated:
		return "unauthenticated"
	case GateLocked:
		return "locked"
	case GateUnlocked:
		return "unlocked"
	}
	return "unknown"
}

// Gate turns an entitlement snapshot into an allow/deny decision for a
// capability. For the scan capability a positive decision is necessary but
// not sufficient: the action must still pass the consume call.
type Gate struct {
	identity *Identity
	resolver *Resolver
}

// NewGate creates a Gate over the identity manager and resolver.
func NewGate(identity *Identity, resolver *Resolver) *Gate {
	return &Gate{identity: identity, resolver: resolver}
}

// State derives the render state from the cached snapshot only; it never
// blocks. A principal without a snapshot reads as Loading.
func (g *Gate) State(key domain.FeatureKey) GateState {
	if _, ok := g.identity.Current(); !ok {
		return GateUnauthenticated
	}
	snap, ok := g.resolver.Cached()
	if !ok {
		return GateLoading
	}
	return decide(snap, key)
}

// Evaluate refreshes the snapshot and decides. Fetch errors read as Locked:
// plan-gated features fail closed when the authority cannot be reached.
func (g *Gate) Evaluate(ctx context.Context, key domain.FeatureKey) GateState {
	session, ok := g.identity.Current()
	if !ok {
		return GateUnauthenticated
	}
	snap, err := g.resolver.Fetch(ctx, session)
	if err != nil {
		return GateLocked
	}
	return decide(snap, key)
}

// decide implements the access rule: a named feature key is looked up on the
// snapshot; an empty key asks only for "any paid plan".
func decide(snap domain.EntitlementSnapshot, key domain.FeatureKey) GateState {
	if key == "" {
		if snap.Plan != domain.PlanFree {
			return GateUnlocked
		}
		return GateLocked
	}
	if snap.Feature(key) {
		return GateUnlocked
	}
	return GateLocked
}
