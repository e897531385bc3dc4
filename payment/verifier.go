// Package payment decides whether a client's claim that a checkout was paid
// holds up against the payment provider. The checkout service never trusts the
// claim itself, only a Verifier's verdict.
package payment

import (
	"context"

	"github.com/mivine/essentials-backend-go/models"
)

type Verifier interface {
	// Verify reports whether details prove payment of checkout. A false result
	// with a nil error means the proof was checked and rejected.
	Verify(ctx context.Context, checkout *models.Checkout, details models.PaymentDetails) (bool, error)
}

// VerifierFunc adapts a plain function to Verifier.
type VerifierFunc func(ctx context.Context, checkout *models.Checkout, details models.PaymentDetails) (bool, error)

func (f VerifierFunc) Verify(ctx context.Context, checkout *models.Checkout, details models.PaymentDetails) (bool, error) {
	return f(ctx, checkout, details)
}

// ManualVerifier accepts provider capture payloads whose status is COMPLETED
// (the shape PayPal returns from an order capture). It does not call the
// provider and is only meant for development setups.
type ManualVerifier struct{}

func (ManualVerifier) Verify(_ context.Context, _ *models.Checkout, details models.PaymentDetails) (bool, error) {
	status, _ := details["status"].(string)
	return status == "COMPLETED", nil
}
