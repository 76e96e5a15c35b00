package handlers

import (
	"errors"
	"net/http"

	"leafwise/internal/domain"
	"leafwise/internal/middleware"
)

// EntitlementsGet returns the authoritative snapshot for the session
// principal.
func (a *App) EntitlementsGet(w http.ResponseWriter, r *http.Request) {
	principalID := a.currentPrincipalID(r)
	if principalID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing principal context")
		return
	}
	snap, err := a.Entitlements.Get(r.Context(), principalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "principal not found")
			return
		}
		a.Logger.Error().Err(err).Msg("entitlement fetch failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load entitlements")
		return
	}
	a.json(w, http.StatusOK, toSnapshotDTO(snap))
}

type consumeResponse struct {
	Success   bool `json:"success"`
	Remaining int  `json:"remaining,omitempty"`
}

// EntitlementsConsume is the single write path for scan credits. The
// decrement happens in one conditional statement in the store, so concurrent
// requests can never overdraw the balance. A failed call changes nothing.
func (a *App) EntitlementsConsume(w http.ResponseWriter, r *http.Request) {
	principalID := a.currentPrincipalID(r)
	if principalID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing principal context")
		return
	}
	requestID := middleware.RequestIDFromContext(r.Context())
	remaining, err := a.Entitlements.ConsumeScanCredit(r.Context(), principalID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQuotaExceeded):
			a.recordUsage(r, principalID, requestID, "scan_denied", false, 0)
			a.json(w, http.StatusForbidden, map[string]any{
				"success": false,
				"error":   map[string]string{"code": "quota_exceeded", "message": "no scan credits remaining"},
			})
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "principal not found")
		default:
			a.Logger.Error().Err(err).Msg("consume failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to consume credit")
		}
		return
	}
	a.recordUsage(r, principalID, requestID, "scan_consumed", true, remaining)
	a.json(w, http.StatusOK, consumeResponse{Success: true, Remaining: remaining})
}

type bonusResponse struct {
	Applied     bool `json:"applied"`
	ScanCredits int  `json:"scan_credits"`
}

// LoginBonus applies the one-time credit grant. Repeat calls are no-ops and
// still return 200 so client retries converge.
func (a *App) LoginBonus(w http.ResponseWriter, r *http.Request) {
	principalID := a.currentPrincipalID(r)
	if principalID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing principal context")
		return
	}
	applied, credits, err := a.Entitlements.ApplyLoginBonus(r.Context(), principalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "principal not found")
			return
		}
		a.Logger.Error().Err(err).Msg("login bonus failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to apply bonus")
		return
	}
	a.json(w, http.StatusOK, bonusResponse{Applied: applied, ScanCredits: credits})
}

// recordUsage appends an audit event. Failures are logged, never surfaced:
// the events table is observability, not state.
func (a *App) recordUsage(r *http.Request, principalID, requestID, eventType string, success bool, remaining int) {
	if a.Events == nil {
		return
	}
	if err := a.Events.Insert(r.Context(), principalID, requestID, eventType, success, remaining); err != nil {
		a.Logger.Warn().Err(err).Str("event", eventType).Msg("usage event insert failed")
	}
}
