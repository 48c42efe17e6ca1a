package adapter

import (
	"context"
)

// CheckoutGateway is the hex port for payment providers. The core only needs
// session creation and verification; payment processing itself stays on the
// provider side.
type CheckoutGateway interface {
	Name() string

	// CreateSession initiates a checkout and returns the provider session id
	// and the URL the user is redirected to.
	CreateSession(ctx context.Context, amountCents int64, description, callbackURL string, meta map[string]interface{}) (sessionID, payURL string, err error)

	// VerifySession verifies a completed checkout for the expected amount
	// and returns the provider reference id on success.
	VerifySession(ctx context.Context, sessionID string, expectedAmountCents int64) (refID string, err error)
}
