package entitlement

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"leafwise/internal/domain"
)

// Resolver caches the authoritative entitlement snapshot for the current
// principal. The cache is memoized by principal id, marked stale after a TTL,
// and discarded on every identity transition, plan change or successful
// consumption. Fetches are sequence-numbered so a slow response can never
// clobber a fresher snapshot.
type Resolver struct {
	store   Store
	ttl     time.Duration
	timeout time.Duration
	logger  zerolog.Logger

	mu        sync.Mutex
	snapshot  *domain.EntitlementSnapshot
	principal string
	issued    uint64
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithTTL sets the staleness window for cached snapshots.
func WithTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) { r.ttl = ttl }
}

// WithTimeout bounds each store round trip.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// WithLogger sets the resolver logger.
func WithLogger(l zerolog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver over the given store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:   store,
		ttl:     5 * time.Minute,
		timeout: 5 * time.Second,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch returns the snapshot for the session principal, from cache when it is
// fresh, otherwise from the store. When a newer fetch was issued while this
// one was in flight, the result is still returned to the caller but not
// cached.
func (r *Resolver) Fetch(ctx context.Context, session Session) (domain.EntitlementSnapshot, error) {
	r.mu.Lock()
	if r.snapshot != nil && r.principal == session.Principal.ID && time.Since(r.snapshot.FetchedAt) <= r.ttl {
		snap := *r.snapshot
		r.mu.Unlock()
		return snap, nil
	}
	r.issued++
	seq := r.issued
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	snap, err := r.store.GetEntitlements(ctx, session)
	if err != nil {
		return domain.EntitlementSnapshot{}, err
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}

	r.mu.Lock()
	if seq == r.issued {
		cached := snap
		r.snapshot = &cached
		r.principal = session.Principal.ID
	}
	r.mu.Unlock()
	return snap, nil
}

// Cached returns the memoized snapshot, if any, with its staleness marker
// set. Stale snapshots are fine for read-only display; they must never
// authorize a consumption.
func (r *Resolver) Cached() (domain.EntitlementSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		return domain.EntitlementSnapshot{}, false
	}
	snap := *r.snapshot
	snap.Stale = time.Since(snap.FetchedAt) > r.ttl
	return snap, true
}

// IsFeatureEnabled reports whether the cached snapshot enables the given
// capability. No snapshot, a fetch error, or an unknown key all read as
// false: plan-gated features fail closed.
func (r *Resolver) IsFeatureEnabled(key domain.FeatureKey) bool {
	snap, ok := r.Cached()
	if !ok {
		return false
	}
	return snap.Feature(key)
}

// Invalidate drops the cached snapshot. Any in-flight fetch issued before
// this call will not repopulate the cache.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.snapshot = nil
	r.principal = ""
	r.issued++
	r.mu.Unlock()
}

// ConsumeScanCredit spends one scan credit through the store's atomic
// decrement. On success the cached snapshot is optimistically patched to the
// returned balance and an authoritative refresh is scheduled. On
// ErrQuotaExceeded the cache is invalidated so the caller re-derives state
// from a fresh fetch instead of retrying blindly; nothing else changes.
func (r *Resolver) ConsumeScanCredit(ctx context.Context, session Session) (int, error) {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	remaining, err := r.store.DecrementScanCredit(cctx, session)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			r.Invalidate()
		}
		return 0, err
	}

	r.mu.Lock()
	if r.snapshot != nil && r.principal == session.Principal.ID {
		r.snapshot.ScanCredits = remaining
	}
	r.mu.Unlock()

	go r.refresh(session)
	return remaining, nil
}

// refresh re-fetches the snapshot on a background context so the optimistic
// patch is reconciled with the authority even if the caller is gone.
func (r *Resolver) refresh(session Session) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.Invalidate()
	if _, err := r.Fetch(ctx, session); err != nil {
		r.logger.Warn().Err(err).Msg("entitlement refresh failed")
	}
}
