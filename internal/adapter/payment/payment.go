// Package payment provides the payment processor implementations behind the
// subscribe flow. The processor is deliberately opaque to the rest of the
// system: it either returns a confirmation id or an error.
package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"leafwise/internal/domain"
)

// Sandbox is the development processor. Mode "sandbox" approves every charge
// with a synthetic confirmation id; mode "declined" rejects every charge,
// which exercises the decline path end to end.
type Sandbox struct {
	mode   string
	logger zerolog.Logger
}

// NewSandbox creates a sandbox processor for the given mode.
func NewSandbox(mode string, logger zerolog.Logger) *Sandbox {
	return &Sandbox{mode: mode, logger: logger}
}

// Charge simulates a checkout.
func (s *Sandbox) Charge(ctx context.Context, principalID string, plan domain.Plan) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.mode == "declined" {
		return "", fmt.Errorf("sandbox decline for %s: %w", plan, domain.ErrPaymentDeclined)
	}
	confirmation := "sbx_" + uuid.NewString()
	s.logger.Info().
		Str("principal_id", principalID).
		Str("plan", string(plan)).
		Str("confirmation", confirmation).
		Msg("sandbox charge approved")
	return confirmation, nil
}
