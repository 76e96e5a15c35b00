package entitlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"leafwise/internal/domain"
)

// funcStore lets each test override just the store calls it exercises.
type funcStore struct {
	get     func(ctx context.Context, session Session) (domain.EntitlementSnapshot, error)
	dec     func(ctx context.Context, session Session) (int, error)
	bonus   func(ctx context.Context, session Session) (bool, int, error)
	setPlan func(ctx context.Context, session Session, plan domain.Plan) (domain.EntitlementSnapshot, error)
}

func (s *funcStore) GetEntitlements(ctx context.Context, session Session) (domain.EntitlementSnapshot, error) {
	if s.get == nil {
		return domain.EntitlementSnapshot{}, domain.ErrNotFound
	}
	return s.get(ctx, session)
}

func (s *funcStore) DecrementScanCredit(ctx context.Context, session Session) (int, error) {
	if s.dec == nil {
		return 0, domain.ErrNotFound
	}
	return s.dec(ctx, session)
}

func (s *funcStore) ApplyLoginBonus(ctx context.Context, session Session) (bool, int, error) {
	if s.bonus == nil {
		return false, 0, domain.ErrNotFound
	}
	return s.bonus(ctx, session)
}

func (s *funcStore) SetPlan(ctx context.Context, session Session, plan domain.Plan) (domain.EntitlementSnapshot, error) {
	if s.setPlan == nil {
		return domain.EntitlementSnapshot{}, domain.ErrNotFound
	}
	return s.setPlan(ctx, session, plan)
}

type backendAccount struct {
	principal domain.Principal
	password  string
	plan      domain.Plan
	credits   int
	bonus     bool
}

// fakeBackend is an in-memory stand-in for the whole API: AuthBackend and
// Store in one, with the same conditional-decrement and idempotent-bonus
// semantics the server has.
type fakeBackend struct {
	mu            sync.Mutex
	accounts      map[string]*backendAccount
	emails        map[string]string
	guestsCreated int
	consumeCalls  int
	failNetwork   bool
	promoteSwapID bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		accounts: make(map[string]*backendAccount),
		emails:   make(map[string]string),
	}
}

func (b *fakeBackend) CreateGuestSession(ctx context.Context) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNetwork {
		return Session{}, fmt.Errorf("dial: connection refused")
	}
	id := uuid.NewString()
	acct := &backendAccount{
		principal: domain.Principal{ID: id, Kind: domain.PrincipalGuest},
		plan:      domain.PlanFree,
		credits:   domain.LoginBonusCredits,
	}
	b.accounts[id] = acct
	b.guestsCreated++
	return Session{Token: "tok-" + id, Principal: acct.principal}, nil
}

func (b *fakeBackend) SignIn(ctx context.Context, email, password string) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.emails[email]
	if !ok || b.accounts[id].password != password {
		return Session{}, domain.ErrInvalidCredentials
	}
	return Session{Token: "tok-" + id, Principal: b.accounts[id].principal}, nil
}

func (b *fakeBackend) SignUp(ctx context.Context, email, password string) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.emails[email]; taken {
		return Session{}, domain.ErrEmailAlreadyRegistered
	}
	id := uuid.NewString()
	acct := &backendAccount{
		principal: domain.Principal{ID: id, Kind: domain.PrincipalRegistered, Email: email},
		password:  password,
		plan:      domain.PlanFree,
	}
	b.accounts[id] = acct
	b.emails[email] = id
	return Session{Token: "tok-" + id, Principal: acct.principal}, nil
}

func (b *fakeBackend) Promote(ctx context.Context, session Session, email, password string) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.emails[email]; taken {
		return Session{}, domain.ErrEmailAlreadyRegistered
	}
	acct, ok := b.accounts[session.Principal.ID]
	if !ok {
		return Session{}, domain.ErrNotFound
	}
	acct.principal.Kind = domain.PrincipalRegistered
	acct.principal.Email = email
	acct.password = password
	b.emails[email] = acct.principal.ID
	out := acct.principal
	if b.promoteSwapID {
		out.ID = uuid.NewString()
	}
	return Session{Token: "tok-" + out.ID, Principal: out}, nil
}

func (b *fakeBackend) SignOut(ctx context.Context, session Session) error { return nil }

func (b *fakeBackend) GetEntitlements(ctx context.Context, session Session) (domain.EntitlementSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[session.Principal.ID]
	if !ok {
		return domain.EntitlementSnapshot{}, domain.ErrNotFound
	}
	return domain.NewSnapshot(acct.principal.ID, acct.plan, acct.credits, acct.bonus, time.Now()), nil
}

func (b *fakeBackend) DecrementScanCredit(ctx context.Context, session Session) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumeCalls++
	acct, ok := b.accounts[session.Principal.ID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if acct.plan != domain.PlanFree {
		return domain.UnlimitedScans, nil
	}
	if acct.credits <= 0 {
		return 0, domain.ErrQuotaExceeded
	}
	acct.credits--
	return acct.credits, nil
}

func (b *fakeBackend) ApplyLoginBonus(ctx context.Context, session Session) (bool, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[session.Principal.ID]
	if !ok {
		return false, 0, domain.ErrNotFound
	}
	if acct.bonus {
		return false, acct.credits, nil
	}
	acct.bonus = true
	acct.credits += domain.LoginBonusCredits
	return true, acct.credits, nil
}

func (b *fakeBackend) SetPlan(ctx context.Context, session Session, plan domain.Plan) (domain.EntitlementSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[session.Principal.ID]
	if !ok {
		return domain.EntitlementSnapshot{}, domain.ErrNotFound
	}
	acct.plan = plan
	return domain.NewSnapshot(acct.principal.ID, acct.plan, acct.credits, acct.bonus, time.Now()), nil
}

func (b *fakeBackend) guests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.guestsCreated
}

func (b *fakeBackend) consumes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumeCalls
}

// memSessionStore is an in-memory SessionStore.
type memSessionStore struct {
	mu      sync.Mutex
	session *Session
}

func (m *memSessionStore) Load() (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false, nil
	}
	return *m.session, true, nil
}

func (m *memSessionStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := s
	m.session = &copied
	return nil
}

func (m *memSessionStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

type fakeCheckout struct {
	mu       sync.Mutex
	declined bool
	charges  int
}

func (f *fakeCheckout) Charge(ctx context.Context, plan domain.Plan) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges++
	if f.declined {
		return "", domain.ErrPaymentDeclined
	}
	return "conf-" + string(plan), nil
}
