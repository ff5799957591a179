package adapter

import "context"

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// RequestPayment initiates a payment intent and returns the provider reference and a checkout URL.
	RequestPayment(ctx context.Context, amount int64, description, callbackURL string, meta map[string]interface{}) (externalRef string, payURL string, err error)
	// VerifyPayment confirms a payment given its reference and expected amount; returns provider refID on success.
	VerifyPayment(ctx context.Context, externalRef string, expectedAmount int64) (refID string, err error)
}
