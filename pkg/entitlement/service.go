package entitlement

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"leafwise/internal/domain"
)

// Service wires the client components together behind one entry point.
type Service struct {
	Identity *Identity
	Resolver *Resolver
	Ledger   *Ledger
	Gate     *Gate
	Paywall  *Paywall
}

// NewService assembles a Service over the injected collaborators.
func NewService(auth AuthBackend, store Store, payments PaymentProcessor, sessions SessionStore, logger zerolog.Logger, opts ...ResolverOption) *Service {
	resolver := NewResolver(store, append([]ResolverOption{WithLogger(logger)}, opts...)...)
	identity := NewIdentity(auth, sessions, resolver, logger)
	ledger := NewLedger(domain.DefaultGuestLimits(), resolver)
	return &Service{
		Identity: identity,
		Resolver: resolver,
		Ledger:   ledger,
		Gate:     NewGate(identity, resolver),
		Paywall:  NewPaywall(payments, store, identity, resolver, ledger, logger),
	}
}

// AuthorizeScan is the scan action path: a local precheck against the ledger,
// then the consume call that actually spends a credit. A guest at the local
// cap is rejected without a network round trip. The gate decision alone never
// authorizes a scan.
func (s *Service) AuthorizeScan(ctx context.Context) (int, error) {
	session, ok := s.Identity.Current()
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	if !s.Ledger.CanPerform(session.Principal, domain.FeatureScan) {
		return 0, fmt.Errorf("local scan limit: %w", domain.ErrQuotaExceeded)
	}
	remaining, err := s.Resolver.ConsumeScanCredit(ctx, session)
	if err != nil {
		return 0, err
	}
	if session.Principal.IsGuest() {
		s.Ledger.RecordScanConsumed()
	}
	return remaining, nil
}

// ClaimLoginBonus requests the one-time credit grant for the current
// principal and refreshes the cached snapshot when it was applied.
func (s *Service) ClaimLoginBonus(ctx context.Context) (bool, int, error) {
	session, ok := s.Identity.Current()
	if !ok {
		return false, 0, domain.ErrUnauthorized
	}
	applied, credits, err := s.Resolver.store.ApplyLoginBonus(ctx, session)
	if err != nil {
		return false, 0, err
	}
	if applied {
		s.Resolver.Invalidate()
		if _, err := s.Resolver.Fetch(ctx, session); err != nil {
			s.Resolver.logger.Warn().Err(err).Msg("post-bonus refresh failed")
		}
	}
	return applied, credits, nil
}
