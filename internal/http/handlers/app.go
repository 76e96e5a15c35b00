package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"leafwise/internal/domain"
	"leafwise/internal/middleware"
)

// App is the handler container. Dependencies are constructor-injected so the
// whole surface can be exercised against fakes; nothing reaches for ambient
// state.
type App struct {
	Logger        zerolog.Logger
	JWTSecret     string
	SessionTTL    time.Duration
	Principals    domain.PrincipalRepository
	Entitlements  domain.EntitlementRepository
	Subscriptions domain.SubscriptionRepository
	Events        domain.UsageEventRepository
	Payments      domain.PaymentProcessor
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{"error": map[string]string{"code": code, "message": message}})
}

func (a *App) currentPrincipalID(r *http.Request) string {
	return middleware.PrincipalIDFromContext(r.Context())
}

func (a *App) issueToken(p *domain.Principal) (string, error) {
	return middleware.SignJWT(a.JWTSecret, middleware.TokenClaims{
		Sub:      p.ID,
		Kind:     string(p.Kind),
		Exp:      time.Now().Add(a.sessionTTL()).Unix(),
		Issuer:   "leafwise",
		Audience: "leafwise-clients",
	})
}

func (a *App) sessionTTL() time.Duration {
	if a.SessionTTL > 0 {
		return a.SessionTTL
	}
	return 30 * 24 * time.Hour
}

type principalDTO struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toPrincipalDTO(p *domain.Principal) principalDTO {
	return principalDTO{ID: p.ID, Kind: string(p.Kind), Email: p.Email, CreatedAt: p.CreatedAt}
}

type snapshotDTO struct {
	PrincipalID string          `json:"principal_id"`
	Plan        string          `json:"plan"`
	ScanCredits int             `json:"scan_credits"`
	Features    map[string]bool `json:"features"`
	LoginBonus  bool            `json:"login_bonus"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

func toSnapshotDTO(s *domain.EntitlementSnapshot) snapshotDTO {
	return snapshotDTO{
		PrincipalID: s.PrincipalID,
		Plan:        string(s.Plan),
		ScanCredits: s.ScanCredits,
		Features: map[string]bool{
			string(domain.FeatureTipsUnlimited):  s.TipsUnlimited,
			string(domain.FeatureAdvancedAI):     s.AdvancedAI,
			string(domain.FeatureTreatmentPlans): s.TreatmentPlans,
			string(domain.FeatureOfflineFull):    s.OfflineFull,
		},
		LoginBonus: s.LoginBonus,
		FetchedAt:  s.FetchedAt,
	}
}
