package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrNetworkUnavailable     = errors.New("network unavailable")
	ErrQuotaExceeded          = errors.New("quota exceeded")
	ErrUnsupportedPlan        = errors.New("unsupported plan")
	ErrConflict               = errors.New("entitlement conflict")
	ErrPaymentDeclined        = errors.New("payment declined")
	ErrReconciliationPending  = errors.New("plan update pending reconciliation")
)
