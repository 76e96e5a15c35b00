package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"leafwise/internal/domain"
)

// Paywall drives plan purchase: checkout through the payment collaborator,
// then plan activation at the authority. The client never marks itself
// subscribed from the payment step alone.
type Paywall struct {
	payments PaymentProcessor
	store    Store
	identity *Identity
	resolver *Resolver
	ledger   *Ledger
	logger   zerolog.Logger
	timeout  time.Duration
}

// NewPaywall constructs the upgrade flow.
func NewPaywall(payments PaymentProcessor, store Store, identity *Identity, resolver *Resolver, ledger *Ledger, logger zerolog.Logger) *Paywall {
	return &Paywall{
		payments: payments,
		store:    store,
		identity: identity,
		resolver: resolver,
		ledger:   ledger,
		logger:   logger,
		timeout:  30 * time.Second,
	}
}

// ListPlans returns the purchasable catalog priced for the given country.
func (p *Paywall) ListPlans(country string) []domain.PlanOffer {
	return domain.Catalog(country)
}

// Subscribe purchases the plan for the current principal. The flow runs on a
// context detached from the caller, so dismissing the paywall UI cannot leave
// it half-applied: it always reaches a definite success or failure, and the
// resolver is always invalidated and refreshed afterwards, whatever the
// outcome.
//
// When payment succeeds but plan activation fails, ErrReconciliationPending
// is returned; the purchase is reconciled by a later entitlement refresh, not
// by assuming success.
func (p *Paywall) Subscribe(ctx context.Context, plan domain.Plan) (domain.EntitlementSnapshot, error) {
	session, ok := p.identity.Current()
	if !ok {
		return domain.EntitlementSnapshot{}, domain.ErrUnauthorized
	}
	if !domain.KnownPlan(plan) || plan == domain.PlanFree {
		return domain.EntitlementSnapshot{}, domain.ErrUnsupportedPlan
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	defer func() {
		p.resolver.Invalidate()
		go p.refresh(session)
	}()

	confirmation, err := p.payments.Charge(ctx, plan)
	if err != nil {
		return domain.EntitlementSnapshot{}, fmt.Errorf("charge: %w", err)
	}

	snap, err := p.store.SetPlan(ctx, session, plan)
	if err != nil {
		p.logger.Error().Err(err).Str("confirmation", confirmation).Msg("plan activation failed after payment")
		return domain.EntitlementSnapshot{}, fmt.Errorf("confirmation %s: %w", confirmation, domain.ErrReconciliationPending)
	}

	if session.Principal.IsGuest() && p.ledger != nil {
		p.ledger.Reset()
	}
	return snap, nil
}

func (p *Paywall) refresh(session Session) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if _, err := p.resolver.Fetch(ctx, session); err != nil {
		p.logger.Warn().Err(err).Msg("post-subscribe refresh failed")
	}
}
