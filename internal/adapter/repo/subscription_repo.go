package repo

import (
	"context"
	"fmt"

	"leafwise/internal/domain"
	"leafwise/internal/infra"
	"leafwise/internal/sqlinline"
)

// SubscriptionRepositoryPG persists plan purchases.
type SubscriptionRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewSubscriptionRepository creates a new SubscriptionRepositoryPG.
func NewSubscriptionRepository(sql infra.SQLExecutor) *SubscriptionRepositoryPG {
	return &SubscriptionRepositoryPG{sql: sql}
}

// Create records a subscription row for the principal.
func (r *SubscriptionRepositoryPG) Create(ctx context.Context, sub *domain.Subscription) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertSubscription, sub.PrincipalID, sub.Plan, sub.Status)
	if err := row.Scan(&sub.ID, &sub.RenewedAt); err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

var _ domain.SubscriptionRepository = (*SubscriptionRepositoryPG)(nil)
