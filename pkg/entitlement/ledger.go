package entitlement

import (
	"errors"
	"sync"

	"leafwise/internal/domain"
)

// ErrScanNotRecordable is returned when a caller tries to advance the scan
// counter locally. Scan usage is only ever recorded through a successful
// consume call.
var ErrScanNotRecordable = errors.New("scan usage is recorded by the consume operation only")

// Ledger tracks the advisory, client-local usage counters for a guest. The
// counters carry no security weight: they stay usable when the network is
// down (fail-open), and the one business-critical counter, scans, is never
// advanced here directly.
type Ledger struct {
	limits   domain.GuestLimits
	resolver *Resolver

	mu       sync.Mutex
	counters domain.UsageCounters
}

// NewLedger creates a ledger with the given guest limits.
func NewLedger(limits domain.GuestLimits, resolver *Resolver) *Ledger {
	return &Ledger{limits: limits, resolver: resolver}
}

// CanPerform reports whether the principal may attempt the given action.
// Guests are capped by the local counters. Registered principals have
// unlimited history and favorites; their scan capability is delegated to the
// cached entitlement snapshot and fails closed when no snapshot is available.
// A positive answer for scan is advisory: the action still has to pass the
// consume call before proceeding.
func (l *Ledger) CanPerform(p domain.Principal, f domain.Feature) bool {
	if p.IsGuest() {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.counters.Used(f) < l.limits.Limit(f)
	}
	if f == domain.FeatureScan {
		snap, ok := l.resolver.Cached()
		return ok && snap.HasScanCredit()
	}
	return true
}

// RecordLocal advances the advisory counter for history or favorite actions.
// Counters never exceed their limit and scan is rejected outright.
func (l *Ledger) RecordLocal(f domain.Feature) error {
	if f == domain.FeatureScan {
		return ErrScanNotRecordable
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	switch f {
	case domain.FeatureHistory:
		if l.counters.History >= l.limits.MaxHistory {
			return domain.ErrQuotaExceeded
		}
		l.counters.History++
	case domain.FeatureFavorite:
		if l.counters.Favorites >= l.limits.MaxFavorites {
			return domain.ErrQuotaExceeded
		}
		l.counters.Favorites++
	default:
		return errors.New("unknown feature")
	}
	return nil
}

// RecordScanConsumed mirrors a successful consume call into the advisory scan
// counter for display. It is clamped at the limit and never used for
// authorization.
func (l *Ledger) RecordScanConsumed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counters.Scans < l.limits.MaxScans {
		l.counters.Scans++
	}
}

// Counters returns a copy of the current advisory counters.
func (l *Ledger) Counters() domain.UsageCounters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters
}

// Reset clears the counters, e.g. after a plan purchase on a guest-origin
// principal.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counters = domain.UsageCounters{}
}
