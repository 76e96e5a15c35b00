package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// TokenClaims is the session payload issued for both guest and registered
// principals. Kind lets handlers distinguish the two without a database read.
type TokenClaims struct {
	Sub      string `json:"sub"`
	Kind     string `json:"kind"`
	Plan     string `json:"plan"`
	Exp      int64  `json:"exp"`
	Issuer   string `json:"iss"`
	Audience string `json:"aud"`
}

type principalKey string

const (
	principalIDKey   principalKey = "principal_id"
	principalKindKey principalKey = "principal_kind"
)

func SignJWT(secret string, claims TokenClaims) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, _ := json.Marshal(header)
	payloadJSON, _ := json.Marshal(claims)
	headerEnc := base64.RawURLEncoding.EncodeToString(headerJSON)
	payloadEnc := base64.RawURLEncoding.EncodeToString(payloadJSON)
	data := headerEnc + "." + payloadEnc
	sig := hmacSign(secret, data)
	return data + "." + sig, nil
}

func hmacSign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func VerifyJWT(secret, token string) (*TokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid token")
	}
	expected := hmacSign(secret, parts[0]+"."+parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, errors.New("invalid signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, err
	}
	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, err
	}
	if claims.Exp != 0 && time.Now().Unix() > claims.Exp {
		return nil, errors.New("token expired")
	}
	return &claims, nil
}

// AuthJWT authenticates the bearer session token and stores the principal id
// and kind on the request context. Both guests and registered users carry a
// token; requests without one are rejected.
func AuthJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization", http.StatusUnauthorized)
				return
			}
			claims, err := VerifyJWT(secret, parts[1])
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), principalIDKey, claims.Sub)
			ctx = context.WithValue(ctx, principalKindKey, claims.Kind)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func PrincipalIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(principalIDKey).(string); ok {
		return v
	}
	return ""
}

func PrincipalKindFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(principalKindKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithPrincipal injects a principal id for tests and internal calls.
func ContextWithPrincipal(ctx context.Context, id, kind string) context.Context {
	if strings.TrimSpace(id) == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, principalIDKey, id)
	return context.WithValue(ctx, principalKindKey, kind)
}
