package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"leafwise/internal/domain"
)

// Client talks to the authoritative entitlement API over HTTP. It implements
// both AuthBackend and Store. Transport failures map to
// domain.ErrNetworkUnavailable; API error codes map to their domain sentinels
// so callers branch with errors.Is, never on status codes.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

type apiPrincipal struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (p apiPrincipal) toDomain() domain.Principal {
	return domain.Principal{
		ID:        p.ID,
		Kind:      domain.PrincipalKind(p.Kind),
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
	}
}

type apiSession struct {
	Token     string       `json:"token"`
	Principal apiPrincipal `json:"principal"`
}

func (s apiSession) toSession() Session {
	return Session{Token: s.Token, Principal: s.Principal.toDomain()}
}

type apiSnapshot struct {
	PrincipalID string          `json:"principal_id"`
	Plan        string          `json:"plan"`
	ScanCredits int             `json:"scan_credits"`
	Features    map[string]bool `json:"features"`
	LoginBonus  bool            `json:"login_bonus"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

func (s apiSnapshot) toDomain() domain.EntitlementSnapshot {
	snap := domain.EntitlementSnapshot{
		PrincipalID:    s.PrincipalID,
		Plan:           domain.Plan(s.Plan),
		ScanCredits:    s.ScanCredits,
		TipsUnlimited:  s.Features[string(domain.FeatureTipsUnlimited)],
		AdvancedAI:     s.Features[string(domain.FeatureAdvancedAI)],
		TreatmentPlans: s.Features[string(domain.FeatureTreatmentPlans)],
		OfflineFull:    s.Features[string(domain.FeatureOfflineFull)],
		LoginBonus:     s.LoginBonus,
		FetchedAt:      s.FetchedAt,
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	return snap
}

// CreateGuestSession obtains a server-issued anonymous principal.
func (c *Client) CreateGuestSession(ctx context.Context) (Session, error) {
	var out apiSession
	if err := c.do(ctx, http.MethodPost, "/v1/auth/guest", "", nil, &out); err != nil {
		return Session{}, err
	}
	return out.toSession(), nil
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	var out apiSession
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signin", "", body, &out); err != nil {
		return Session{}, err
	}
	return out.toSession(), nil
}

// SignUp registers a fresh credentialed principal.
func (c *Client) SignUp(ctx context.Context, email, password string) (Session, error) {
	var out apiSession
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signup", "", body, &out); err != nil {
		return Session{}, err
	}
	return out.toSession(), nil
}

// Promote attaches credentials to the session's guest principal. The returned
// session carries the same principal id with its kind switched to registered.
func (c *Client) Promote(ctx context.Context, session Session, email, password string) (Session, error) {
	var out apiSession
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/promote", session.Token, body, &out); err != nil {
		return Session{}, err
	}
	return out.toSession(), nil
}

// SignOut invalidates the session server-side. Tokens are stateless, so this
// is advisory; the caller discards the token regardless.
func (c *Client) SignOut(ctx context.Context, session Session) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/signout", session.Token, nil, nil)
}

// GetEntitlements fetches the authoritative snapshot.
func (c *Client) GetEntitlements(ctx context.Context, session Session) (domain.EntitlementSnapshot, error) {
	var out apiSnapshot
	if err := c.do(ctx, http.MethodGet, "/v1/entitlements", session.Token, nil, &out); err != nil {
		return domain.EntitlementSnapshot{}, err
	}
	return out.toDomain(), nil
}

// DecrementScanCredit spends one credit through the server's atomic
// conditional decrement and returns the remaining balance.
func (c *Client) DecrementScanCredit(ctx context.Context, session Session) (int, error) {
	var out struct {
		Success   bool `json:"success"`
		Remaining int  `json:"remaining"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/entitlements/consume", session.Token, nil, &out); err != nil {
		return 0, err
	}
	return out.Remaining, nil
}

// ApplyLoginBonus requests the one-time credit grant. Repeat calls report
// applied=false with the current balance.
func (c *Client) ApplyLoginBonus(ctx context.Context, session Session) (bool, int, error) {
	var out struct {
		Applied     bool `json:"applied"`
		ScanCredits int  `json:"scan_credits"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/entitlements/login-bonus", session.Token, nil, &out); err != nil {
		return false, 0, err
	}
	return out.Applied, out.ScanCredits, nil
}

// SetPlan purchases and activates the plan for the session principal.
func (c *Client) SetPlan(ctx context.Context, session Session, plan domain.Plan) (domain.EntitlementSnapshot, error) {
	var out struct {
		Confirmation string      `json:"confirmation"`
		Snapshot     apiSnapshot `json:"snapshot"`
	}
	body := map[string]string{"plan": string(plan)}
	if err := c.do(ctx, http.MethodPost, "/v1/plans/subscribe", session.Token, body, &out); err != nil {
		return domain.EntitlementSnapshot{}, err
	}
	return out.Snapshot.toDomain(), nil
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("api request failed")
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// mapError translates an API error payload to a domain sentinel. The error
// code is authoritative; the status is the fallback for bodies that fail to
// parse.
func (c *Client) mapError(resp *http.Response) error {
	var payload apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &payload)
	code := payload.Error.Code

	var sentinel error
	switch {
	case code == "quota_exceeded" || resp.StatusCode == http.StatusForbidden:
		sentinel = domain.ErrQuotaExceeded
	case code == "email_taken" || resp.StatusCode == http.StatusConflict:
		sentinel = domain.ErrEmailAlreadyRegistered
	case code == "invalid_credentials":
		sentinel = domain.ErrInvalidCredentials
	case resp.StatusCode == http.StatusUnauthorized:
		sentinel = domain.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case code == "payment_declined":
		sentinel = domain.ErrPaymentDeclined
	case code == "reconciliation_pending" || code == "bonus_pending":
		sentinel = domain.ErrReconciliationPending
	case resp.StatusCode >= 500:
		sentinel = domain.ErrNetworkUnavailable
	default:
		return fmt.Errorf("api error %d: %s", resp.StatusCode, code)
	}
	if payload.Error.Message != "" {
		return fmt.Errorf("%s: %w", payload.Error.Message, sentinel)
	}
	return sentinel
}
