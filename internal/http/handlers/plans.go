package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"leafwise/internal/domain"
	"leafwise/internal/middleware"
)

// PlansList returns the purchasable catalog priced for the caller's region.
func (a *App) PlansList(w http.ResponseWriter, r *http.Request) {
	country := middleware.CountryFromContext(r.Context())
	a.json(w, http.StatusOK, map[string]any{
		"items":  domain.Catalog(country),
		"locale": middleware.LocaleFromContext(r.Context()),
	})
}

type subscribeRequest struct {
	Plan string `json:"plan"`
}

type subscribeResponse struct {
	Confirmation string      `json:"confirmation"`
	Snapshot     snapshotDTO `json:"snapshot"`
}

// PlansSubscribe charges the payment collaborator and then sets the plan in
// the authoritative store. The two steps are deliberately ordered: the plan
// is never marked active from the payment result alone. When payment
// succeeds but the plan update fails the response is a retryable 502 and the
// client reconciles via a fresh entitlement fetch.
//
// The work runs on a context detached from the request so a client that
// disconnects mid-purchase cannot leave the flow half-applied.
func (a *App) PlansSubscribe(w http.ResponseWriter, r *http.Request) {
	principalID := a.currentPrincipalID(r)
	if principalID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing principal context")
		return
	}
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	plan := domain.Plan(req.Plan)
	if !domain.KnownPlan(plan) || plan == domain.PlanFree {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported plan")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 30*time.Second)
	defer cancel()

	confirmation, err := a.Payments.Charge(ctx, principalID, plan)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentDeclined) {
			a.error(w, http.StatusPaymentRequired, "payment_declined", "payment was declined")
			return
		}
		a.Logger.Error().Err(err).Msg("charge failed")
		a.error(w, http.StatusBadGateway, "payment_failed", "payment provider unavailable")
		return
	}

	snap, err := a.Entitlements.SetPlan(ctx, principalID, plan)
	if err != nil {
		// Payment went through; report retryable and let the resolver
		// reconcile on the next fetch.
		a.Logger.Error().Err(err).Str("confirmation", confirmation).Msg("plan update failed after payment")
		a.error(w, http.StatusBadGateway, "reconciliation_pending", "payment accepted, plan update pending")
		return
	}

	if a.Subscriptions != nil {
		sub := &domain.Subscription{PrincipalID: principalID, Plan: plan, Status: domain.SubscriptionActive}
		if err := a.Subscriptions.Create(ctx, sub); err != nil {
			a.Logger.Warn().Err(err).Msg("subscription record insert failed")
		}
	}

	a.json(w, http.StatusOK, subscribeResponse{Confirmation: confirmation, Snapshot: toSnapshotDTO(snap)})
}
