package repo

import (
	"context"
	"fmt"

	"leafwise/internal/domain"
	"leafwise/internal/infra"
	"leafwise/internal/sqlinline"
)

// PrincipalRepositoryPG implements domain.PrincipalRepository backed by PostgreSQL.
type PrincipalRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewPrincipalRepository creates a new PrincipalRepositoryPG.
func NewPrincipalRepository(sql infra.SQLExecutor) *PrincipalRepositoryPG {
	return &PrincipalRepositoryPG{sql: sql}
}

// CreateGuest inserts a fresh anonymous principal with zero credits.
func (r *PrincipalRepositoryPG) CreateGuest(ctx context.Context) (*domain.Principal, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertGuestPrincipal)
	var p domain.Principal
	if err := row.Scan(&p.ID, &p.Kind, &p.Email, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("create guest: %w", err)
	}
	return &p, nil
}

// GetByID fetches a principal by UUID.
func (r *PrincipalRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectPrincipalByID, id)
	var p domain.Principal
	if err := row.Scan(&p.ID, &p.Kind, &p.Email, &p.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get principal: %w", err)
	}
	return &p, nil
}

// GetCredentials returns the principal and stored password hash for an email.
func (r *PrincipalRepositoryPG) GetCredentials(ctx context.Context, email string) (*domain.Principal, string, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectCredentialsByEmail, email)
	var p domain.Principal
	var hash string
	if err := row.Scan(&p.ID, &p.Kind, &p.Email, &hash, &p.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("get credentials: %w", err)
	}
	return &p, hash, nil
}

// Register inserts a new credentialed principal on the free plan.
func (r *PrincipalRepositoryPG) Register(ctx context.Context, email, passwordHash string) (*domain.Principal, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QRegisterPrincipal, email, passwordHash)
	var p domain.Principal
	if err := row.Scan(&p.ID, &p.Kind, &p.Email, &p.CreatedAt); err != nil {
		if infra.IsUniqueViolation(err) {
			return nil, domain.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("register principal: %w", err)
	}
	return &p, nil
}

// Promote attaches credentials to an existing guest row. The id never
// changes, so history rows keyed on it stay attached.
func (r *PrincipalRepositoryPG) Promote(ctx context.Context, id, email, passwordHash string) (*domain.Principal, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QPromotePrincipal, id, email, passwordHash)
	var p domain.Principal
	if err := row.Scan(&p.ID, &p.Kind, &p.Email, &p.CreatedAt); err != nil {
		if infra.IsUniqueViolation(err) {
			return nil, domain.ErrEmailAlreadyRegistered
		}
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("promote principal: %w", err)
	}
	return &p, nil
}

var _ domain.PrincipalRepository = (*PrincipalRepositoryPG)(nil)
