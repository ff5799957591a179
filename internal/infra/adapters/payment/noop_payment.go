package payment

import (
	"context"
	"fmt"
	"sync"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for dev runs and tests.
// Every requested intent verifies when the amount matches.
type NoopPaymentGateway struct {
	mu      sync.Mutex
	seq     int64
	baseURL string
	intents map[string]int64 // authority -> expected amount
}

func NewNoopPaymentGateway(baseURL string) *NoopPaymentGateway {
	if baseURL == "" {
		baseURL = "https://example.test/pay/"
	}
	return &NoopPaymentGateway{
		baseURL: baseURL,
		intents: make(map[string]int64),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopPaymentGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL string, meta map[string]interface{}) (authority string, payURL string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	authority = g.next()
	g.intents[authority] = amount
	return authority, g.baseURL + authority, nil
}

func (g *NoopPaymentGateway) VerifyPayment(ctx context.Context, authority string, expectedAmount int64) (refID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.intents[authority]
	if !ok {
		return "", fmt.Errorf("%w: noop authority %s unknown", domain.ErrPaymentNotVerified, authority)
	}
	if exp != expectedAmount {
		return "", fmt.Errorf("%w: noop amount mismatch: expected %d got %d", domain.ErrPaymentNotVerified, exp, expectedAmount)
	}
	return "ref-" + authority, nil
}
