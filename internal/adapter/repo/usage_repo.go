package repo

import (
	"context"
	"fmt"

	"leafwise/internal/domain"
	"leafwise/internal/infra"
	"leafwise/internal/sqlinline"
)

// UsageEventRepositoryPG appends audit events for credit-affecting calls.
type UsageEventRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUsageEventRepository creates a new UsageEventRepositoryPG.
func NewUsageEventRepository(sql infra.SQLExecutor) *UsageEventRepositoryPG {
	return &UsageEventRepositoryPG{sql: sql}
}

// Insert records one usage event. Events are append-only and never consulted
// for authorization; the principals row stays the single source of truth.
func (r *UsageEventRepositoryPG) Insert(ctx context.Context, principalID, requestID, eventType string, success bool, remaining int) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertUsageEvent, principalID, requestID, eventType, success, remaining); err != nil {
		return fmt.Errorf("insert usage event: %w", err)
	}
	return nil
}

var _ domain.UsageEventRepository = (*UsageEventRepositoryPG)(nil)
