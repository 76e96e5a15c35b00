package repo

import (
	"context"
	"fmt"
	"time"

	"leafwise/internal/domain"
	"leafwise/internal/infra"
	"leafwise/internal/sqlinline"
)

// EntitlementRepositoryPG implements domain.EntitlementRepository backed by
// PostgreSQL. All credit arithmetic happens inside single conditional
// statements; this package never reads a counter and writes it back.
type EntitlementRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewEntitlementRepository creates a new EntitlementRepositoryPG.
func NewEntitlementRepository(sql infra.SQLExecutor) *EntitlementRepositoryPG {
	return &EntitlementRepositoryPG{sql: sql}
}

// Get loads the authoritative entitlement state for a principal.
func (r *EntitlementRepositoryPG) Get(ctx context.Context, principalID string) (*domain.EntitlementSnapshot, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectEntitlements, principalID)
	var (
		id         string
		plan       domain.Plan
		credits    int
		loginBonus bool
	)
	if err := row.Scan(&id, &plan, &credits, &loginBonus); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get entitlements: %w", err)
	}
	snap := domain.NewSnapshot(id, plan, credits, loginBonus, time.Now().UTC())
	return &snap, nil
}

// ConsumeScanCredit performs the atomic decrement-if-positive. Zero affected
// rows means the principal either does not exist or has no credit left; the
// follow-up read disambiguates the two.
func (r *EntitlementRepositoryPG) ConsumeScanCredit(ctx context.Context, principalID string) (int, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QConsumeScanCredit, principalID)
	var remaining int
	if err := row.Scan(&remaining); err != nil {
		if infra.IsNoRows(err) {
			if _, getErr := r.Get(ctx, principalID); getErr != nil {
				return 0, getErr
			}
			return 0, domain.ErrQuotaExceeded
		}
		return 0, fmt.Errorf("consume scan credit: %w", err)
	}
	return remaining, nil
}

// ApplyLoginBonus grants the one-time bonus. The statement's predicate makes
// it idempotent; when it matches no row the current balance is read so the
// caller still gets the credit count.
func (r *EntitlementRepositoryPG) ApplyLoginBonus(ctx context.Context, principalID string) (bool, int, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QApplyLoginBonus, principalID, domain.LoginBonusCredits)
	var credits int
	if err := row.Scan(&credits); err != nil {
		if infra.IsNoRows(err) {
			snap, getErr := r.Get(ctx, principalID)
			if getErr != nil {
				return false, 0, getErr
			}
			return false, snap.ScanCredits, nil
		}
		return false, 0, fmt.Errorf("apply login bonus: %w", err)
	}
	return true, credits, nil
}

// SetPlan updates the plan and resets the advisory usage mirror in one
// statement, then returns the resulting snapshot.
func (r *EntitlementRepositoryPG) SetPlan(ctx context.Context, principalID string, plan domain.Plan) (*domain.EntitlementSnapshot, error) {
	if !domain.KnownPlan(plan) {
		return nil, domain.ErrUnsupportedPlan
	}
	row := r.sql.QueryRow(ctx, sqlinline.QSetPlan, principalID, plan)
	var (
		id         string
		gotPlan    domain.Plan
		credits    int
		loginBonus bool
	)
	if err := row.Scan(&id, &gotPlan, &credits, &loginBonus); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("set plan: %w", err)
	}
	snap := domain.NewSnapshot(id, gotPlan, credits, loginBonus, time.Now().UTC())
	return &snap, nil
}

var _ domain.EntitlementRepository = (*EntitlementRepositoryPG)(nil)
