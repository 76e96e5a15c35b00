package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"leafwise/internal/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	Principal principalDTO `json:"principal"`
}

// AuthGuest issues a server-side anonymous principal and its session token.
// Called once per app install during bootstrap.
func (a *App) AuthGuest(w http.ResponseWriter, r *http.Request) {
	p, err := a.Principals.CreateGuest(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("create guest failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create guest session")
		return
	}
	token, err := a.issueToken(p)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusCreated, sessionResponse{Token: token, Principal: toPrincipalDTO(p)})
}

// SignUp creates a fresh registered principal. Guests that want to keep their
// history should use Promote instead.
func (a *App) SignUp(w http.ResponseWriter, r *http.Request) {
	email, password, ok := a.decodeCredentials(w, r)
	if !ok {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to hash password")
		return
	}
	p, err := a.Principals.Register(r.Context(), email, string(hash))
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			a.error(w, http.StatusConflict, "email_taken", "email already registered")
			return
		}
		a.Logger.Error().Err(err).Msg("register failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to register")
		return
	}
	token, err := a.issueToken(p)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusCreated, sessionResponse{Token: token, Principal: toPrincipalDTO(p)})
}

// SignIn verifies credentials and issues a new session token.
func (a *App) SignIn(w http.ResponseWriter, r *http.Request) {
	email, password, ok := a.decodeCredentials(w, r)
	if !ok {
		return
	}
	p, hash, err := a.Principals.GetCredentials(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
			return
		}
		a.Logger.Error().Err(err).Msg("credential lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign in")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		a.error(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	token, err := a.issueToken(p)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, sessionResponse{Token: token, Principal: toPrincipalDTO(p)})
}

// Refresh reissues a token for the authenticated principal.
func (a *App) Refresh(w http.ResponseWriter, r *http.Request) {
	principalID := a.currentPrincipalID(r)
	if principalID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing principal context")
		return
	}
	p, err := a.Principals.GetByID(r.Context(), principalID)
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "unknown principal")
		return
	}
	token, err := a.issueToken(p)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, sessionResponse{Token: token, Principal: toPrincipalDTO(p)})
}

// SignOut acknowledges the sign-out. Session tokens are stateless; the client
// discards the token and bootstraps a fresh guest.
func (a *App) SignOut(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type promoteResponse struct {
	Token        string       `json:"token"`
	Principal    principalDTO `json:"principal"`
	BonusApplied bool         `json:"bonus_applied"`
	ScanCredits  int          `json:"scan_credits"`
}

// Promote attaches credentials to the calling guest principal, keeping its id
// so history stays attached, then applies the one-time login bonus. Retries
// after a lost response are tolerated: a principal that is already registered
// with the same email is treated as promoted, and the bonus grant is
// idempotent server-side.
func (a *App) Promote(w http.ResponseWriter, r *http.Request) {
	principalID := a.currentPrincipalID(r)
	if principalID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing principal context")
		return
	}
	email, password, ok := a.decodeCredentials(w, r)
	if !ok {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to hash password")
		return
	}
	p, err := a.Principals.Promote(r.Context(), principalID, email, string(hash))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailAlreadyRegistered):
			a.error(w, http.StatusConflict, "email_taken", "email already registered")
			return
		case errors.Is(err, domain.ErrNotFound):
			existing, getErr := a.Principals.GetByID(r.Context(), principalID)
			if getErr == nil && existing.Kind == domain.PrincipalRegistered && existing.Email == email {
				p = existing
				break
			}
			a.error(w, http.StatusNotFound, "not_found", "guest principal not found")
			return
		default:
			a.Logger.Error().Err(err).Msg("promote failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to promote")
			return
		}
	}
	applied, credits, err := a.Entitlements.ApplyLoginBonus(r.Context(), p.ID)
	if err != nil {
		a.Logger.Error().Err(err).Str("principal_id", p.ID).Msg("login bonus failed")
		a.error(w, http.StatusBadGateway, "bonus_pending", "promotion applied, bonus pending retry")
		return
	}
	token, err := a.issueToken(p)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, promoteResponse{
		Token:        token,
		Principal:    toPrincipalDTO(p),
		BonusApplied: applied,
		ScanCredits:  credits,
	})
}

func (a *App) decodeCredentials(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return "", "", false
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		a.error(w, http.StatusBadRequest, "bad_request", "valid email required")
		return "", "", false
	}
	if len(req.Password) < 8 {
		a.error(w, http.StatusBadRequest, "bad_request", "password must be at least 8 characters")
		return "", "", false
	}
	return email, req.Password, true
}
