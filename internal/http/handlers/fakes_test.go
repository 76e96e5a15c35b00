package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"leafwise/internal/domain"
)

// fakeAccount backs both principal and entitlement state for handler tests.
type fakeAccount struct {
	principal  domain.Principal
	hash       string
	plan       domain.Plan
	credits    int
	loginBonus bool
}

type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount
	byEmail  map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*fakeAccount), byEmail: make(map[string]string)}
}

func (s *fakeStore) addGuest(credits int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.accounts[id] = &fakeAccount{
		principal: domain.Principal{ID: id, Kind: domain.PrincipalGuest, CreatedAt: time.Now()},
		plan:      domain.PlanFree,
		credits:   credits,
	}
	return id
}

// --- domain.PrincipalRepository ---

func (s *fakeStore) CreateGuest(ctx context.Context) (*domain.Principal, error) {
	id := s.addGuest(domain.LoginBonusCredits)
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.accounts[id].principal
	return &p, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p := acc.principal
	return &p, nil
}

func (s *fakeStore) GetCredentials(ctx context.Context, email string) (*domain.Principal, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	acc := s.accounts[id]
	p := acc.principal
	return &p, acc.hash, nil
}

func (s *fakeStore) Register(ctx context.Context, email, passwordHash string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return nil, domain.ErrEmailAlreadyRegistered
	}
	id := uuid.NewString()
	acc := &fakeAccount{
		principal: domain.Principal{ID: id, Kind: domain.PrincipalRegistered, Email: email, CreatedAt: time.Now()},
		hash:      passwordHash,
		plan:      domain.PlanFree,
	}
	s.accounts[id] = acc
	s.byEmail[email] = id
	p := acc.principal
	return &p, nil
}

func (s *fakeStore) Promote(ctx context.Context, id, email, passwordHash string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return nil, domain.ErrEmailAlreadyRegistered
	}
	acc, ok := s.accounts[id]
	if !ok || acc.principal.Kind != domain.PrincipalGuest {
		return nil, domain.ErrNotFound
	}
	acc.principal.Kind = domain.PrincipalRegistered
	acc.principal.Email = email
	acc.hash = passwordHash
	s.byEmail[email] = id
	p := acc.principal
	return &p, nil
}

// --- domain.EntitlementRepository ---

func (s *fakeStore) Get(ctx context.Context, principalID string) (*domain.EntitlementSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[principalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	snap := domain.NewSnapshot(principalID, acc.plan, acc.credits, acc.loginBonus, time.Now())
	return &snap, nil
}

func (s *fakeStore) ConsumeScanCredit(ctx context.Context, principalID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[principalID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if acc.plan != domain.PlanFree {
		return domain.UnlimitedScans, nil
	}
	if acc.credits <= 0 {
		return 0, domain.ErrQuotaExceeded
	}
	acc.credits--
	return acc.credits, nil
}

func (s *fakeStore) ApplyLoginBonus(ctx context.Context, principalID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[principalID]
	if !ok {
		return false, 0, domain.ErrNotFound
	}
	if acc.loginBonus {
		return false, acc.credits, nil
	}
	acc.loginBonus = true
	acc.credits += domain.LoginBonusCredits
	return true, acc.credits, nil
}

func (s *fakeStore) SetPlan(ctx context.Context, principalID string, plan domain.Plan) (*domain.EntitlementSnapshot, error) {
	if !domain.KnownPlan(plan) {
		return nil, domain.ErrUnsupportedPlan
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[principalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	acc.plan = plan
	snap := domain.NewSnapshot(principalID, acc.plan, acc.credits, acc.loginBonus, time.Now())
	return &snap, nil
}

type fakePayments struct {
	charge func(ctx context.Context, principalID string, plan domain.Plan) (string, error)
}

func (p *fakePayments) Charge(ctx context.Context, principalID string, plan domain.Plan) (string, error) {
	if p.charge != nil {
		return p.charge(ctx, principalID, plan)
	}
	return fmt.Sprintf("conf-%s", uuid.NewString()[:8]), nil
}
