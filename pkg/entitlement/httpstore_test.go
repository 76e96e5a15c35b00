package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"leafwise/internal/domain"
)

func apiErr(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": code},
	})
}

func TestClientGuestAndEntitlements(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/guest", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":     "tok-g",
			"principal": map[string]any{"id": "p-g", "kind": "guest"},
		})
	})
	mux.HandleFunc("GET /v1/entitlements", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-g" {
			apiErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"principal_id": "p-g",
			"plan":         "premium",
			"scan_credits": -1,
			"features":     map[string]bool{"advanced_ai": true, "tips_unlimited": true},
			"login_bonus":  true,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	session, err := c.CreateGuestSession(context.Background())
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	if session.Principal.ID != "p-g" || !session.Principal.IsGuest() {
		t.Fatalf("session principal = %+v", session.Principal)
	}

	snap, err := c.GetEntitlements(context.Background(), session)
	if err != nil {
		t.Fatalf("entitlements: %v", err)
	}
	if snap.Plan != domain.PlanPremium || !snap.AdvancedAI || !snap.HasScanCredit() {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.FetchedAt.IsZero() {
		t.Fatal("FetchedAt should be stamped when the server omits it")
	}
}

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   error
	}{
		{"quota", http.StatusForbidden, "quota_exceeded", domain.ErrQuotaExceeded},
		{"email taken", http.StatusConflict, "email_taken", domain.ErrEmailAlreadyRegistered},
		{"bad credentials", http.StatusUnauthorized, "invalid_credentials", domain.ErrInvalidCredentials},
		{"expired token", http.StatusUnauthorized, "unauthorized", domain.ErrUnauthorized},
		{"missing", http.StatusNotFound, "not_found", domain.ErrNotFound},
		{"declined", http.StatusPaymentRequired, "payment_declined", domain.ErrPaymentDeclined},
		{"reconciliation", http.StatusBadGateway, "reconciliation_pending", domain.ErrReconciliationPending},
		{"server down", http.StatusInternalServerError, "internal", domain.ErrNetworkUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				apiErr(w, tc.status, tc.code)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, zerolog.Nop())
			_, err := c.GetEntitlements(context.Background(), testSession())
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestClientUnreachableHostIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	_, err := c.CreateGuestSession(context.Background())
	if !errors.Is(err, domain.ErrNetworkUnavailable) {
		t.Fatalf("err = %v, want ErrNetworkUnavailable", err)
	}
}

func TestClientConsumeAndBonus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/entitlements/consume", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "remaining": 4})
	})
	mux.HandleFunc("POST /v1/entitlements/login-bonus", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"applied": true, "scan_credits": 5})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	remaining, err := c.DecrementScanCredit(context.Background(), testSession())
	if err != nil || remaining != 4 {
		t.Fatalf("consume: remaining=%d err=%v", remaining, err)
	}
	applied, credits, err := c.ApplyLoginBonus(context.Background(), testSession())
	if err != nil || !applied || credits != 5 {
		t.Fatalf("bonus: applied=%v credits=%d err=%v", applied, credits, err)
	}
}
