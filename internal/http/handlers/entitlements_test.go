package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"leafwise/internal/domain"
)

func TestConsumeDecrementsUntilExhausted(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store)
	id := store.addGuest(1)

	rec := httptest.NewRecorder()
	app.EntitlementsConsume(rec, authedRequest(http.MethodPost, "/v1/entitlements/consume", id, "guest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first consume status = %d, want 200", rec.Code)
	}
	var resp consumeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Remaining != 0 {
		t.Fatalf("first consume = %+v, want success with 0 remaining", resp)
	}

	rec = httptest.NewRecorder()
	app.EntitlementsConsume(rec, authedRequest(http.MethodPost, "/v1/entitlements/consume", id, "guest", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("exhausted consume status = %d, want 403", rec.Code)
	}
}

func TestConsumeParallelSingleCredit(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store)
	id := store.addGuest(1)

	const callers = 8
	codes := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			app.EntitlementsConsume(rec, authedRequest(http.MethodPost, "/v1/entitlements/consume", id, "guest", nil))
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			successes++
		case http.StatusForbidden:
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if successes != 1 {
		t.Fatalf("parallel consumes yielded %d successes, want exactly 1", successes)
	}
}

func TestConsumeUnmeteredPlan(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store)
	id := store.addGuest(0)
	if _, err := store.SetPlan(context.Background(), id, domain.PlanPro); err != nil {
		t.Fatalf("SetPlan: %v", err)
	}

	rec := httptest.NewRecorder()
	app.EntitlementsConsume(rec, authedRequest(http.MethodPost, "/v1/entitlements/consume", id, "registered", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pro consume status = %d, want 200", rec.Code)
	}
}

func TestLoginBonusIdempotent(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store)
	id := store.addGuest(0)

	var first, second bonusResponse
	rec := httptest.NewRecorder()
	app.LoginBonus(rec, authedRequest(http.MethodPost, "/v1/entitlements/login-bonus", id, "guest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first bonus status = %d", rec.Code)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &first)

	rec = httptest.NewRecorder()
	app.LoginBonus(rec, authedRequest(http.MethodPost, "/v1/entitlements/login-bonus", id, "guest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("second bonus status = %d", rec.Code)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &second)

	if !first.Applied || second.Applied {
		t.Fatalf("applied = (%v, %v), want (true, false)", first.Applied, second.Applied)
	}
	if first.ScanCredits != second.ScanCredits {
		t.Fatalf("repeat bonus changed balance: %d -> %d", first.ScanCredits, second.ScanCredits)
	}
}

func TestEntitlementsGetAfterSetPlan(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store)
	id := store.addGuest(2)

	rec := httptest.NewRecorder()
	app.PlansSubscribe(rec, authedRequest(http.MethodPost, "/v1/plans/subscribe", id, "registered", subscribeRequest{Plan: "premium"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("subscribe status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	app.EntitlementsGet(rec, authedRequest(http.MethodGet, "/v1/entitlements", id, "registered", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var snap snapshotDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Plan != "premium" {
		t.Fatalf("plan = %q, want premium", snap.Plan)
	}
	if !snap.Features["tips_unlimited"] || !snap.Features["advanced_ai"] {
		t.Fatalf("premium features missing: %+v", snap.Features)
	}
	if snap.ScanCredits != domain.UnlimitedScans {
		t.Fatalf("scan credits = %d, want unlimited", snap.ScanCredits)
	}
}
