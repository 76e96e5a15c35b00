package domain

import "time"

// UnlimitedScans marks a snapshot whose plan does not meter scans.
const UnlimitedScans = -1

// LoginBonusCredits is the one-time credit grant applied when a guest attaches
// credentials to their account.
const LoginBonusCredits = 5

// FeatureKey identifies a plan-gated capability in an entitlement snapshot.
type FeatureKey string

const (
	FeatureTipsUnlimited  FeatureKey = "tips_unlimited"
	FeatureAdvancedAI     FeatureKey = "advanced_ai"
	FeatureTreatmentPlans FeatureKey = "treatment_plans"
	FeatureOfflineFull    FeatureKey = "offline_full"
)

// EntitlementSnapshot is the single authoritative view of what a principal may
// do: resolved plan, remaining scan credits, and the derived feature flags.
// Clients cache it with an explicit staleness marker; a stale snapshot may be
// displayed but never authorizes a new credit consumption.
type EntitlementSnapshot struct {
	PrincipalID    string
	Plan           Plan
	ScanCredits    int
	TipsUnlimited  bool
	AdvancedAI     bool
	TreatmentPlans bool
	OfflineFull    bool
	LoginBonus     bool
	FetchedAt      time.Time
	Stale          bool
}

// Feature reports whether the named capability is enabled. Unrecognized keys
// return false so an outdated client fails closed.
func (s EntitlementSnapshot) Feature(key FeatureKey) bool {
	switch key {
	case FeatureTipsUnlimited:
		return s.TipsUnlimited
	case FeatureAdvancedAI:
		return s.AdvancedAI
	case FeatureTreatmentPlans:
		return s.TreatmentPlans
	case FeatureOfflineFull:
		return s.OfflineFull
	}
	return false
}

// HasScanCredit reports whether the snapshot shows at least one scan
// available. This is advisory for gating only; the authoritative check
// happens inside the consume operation.
func (s EntitlementSnapshot) HasScanCredit() bool {
	return s.ScanCredits == UnlimitedScans || s.ScanCredits > 0
}

// NewSnapshot derives the feature flags for a plan from the stored row state.
// Paid plans do not meter scans, so ScanCredits reports UnlimitedScans for
// them regardless of the persisted counter.
func NewSnapshot(principalID string, plan Plan, scanCredits int, loginBonus bool, fetchedAt time.Time) EntitlementSnapshot {
	snap := EntitlementSnapshot{
		PrincipalID: principalID,
		Plan:        plan,
		ScanCredits: scanCredits,
		LoginBonus:  loginBonus,
		FetchedAt:   fetchedAt,
	}
	switch plan {
	case PlanPremium:
		snap.ScanCredits = UnlimitedScans
		snap.TipsUnlimited = true
		snap.AdvancedAI = true
		snap.TreatmentPlans = true
	case PlanPro:
		snap.ScanCredits = UnlimitedScans
		snap.TipsUnlimited = true
		snap.AdvancedAI = true
		snap.TreatmentPlans = true
		snap.OfflineFull = true
	}
	return snap
}
