//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/adapter"
	"vpn-subscription/internal/domain/ports/repository"
	"vpn-subscription/internal/usecase"
)

type gateRig struct {
	*rig
	orders  *MockOrderRepo
	gateway *MockGateway
	gate    *usecase.PaymentGate
}

func newGateRig(subs ...*model.Subscriber) *gateRig {
	r := newRig(subs...)
	g := &gateRig{rig: r, orders: NewMockOrderRepo(), gateway: &MockGateway{}}
	g.gate = usecase.NewPaymentGate(r.tariffs, g.orders, NewMockTxManager(), g.gateway, r.prov, r.notifier,
		usecase.PaymentGateConfig{Currency: "IRR", CallbackURL: "https://vpn.example/api/payment/callback"}, newTestLogger())
	g.gate.SetClock(r.clock.Now)
	return g
}

func TestPaymentGate_RequestSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("should compute the discounted amount and defer provisioning", func(t *testing.T) {
		cases := []struct {
			name     string
			discount float64
			want     int64
		}{
			{"no discount", 0, 900},
			{"ten percent", 0.1, 810},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				// --- Arrange ---
				sub := testSubscriber("sub-1")
				sub.Discount = tc.discount
				g := newGateRig(sub)

				// --- Act ---
				out, err := g.gate.RequestSubscription(ctx, sub, "basic", usecase.SubscriptionOptions{Devices: 2, Months: 3, PayNow: true})

				// --- Assert ---
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if !out.IsPaymentRequired() {
					t.Fatal("expected payment to be required")
				}
				if out.Payment.Amount != tc.want {
					t.Errorf("expected amount %d, got %d", tc.want, out.Payment.Amount)
				}
				if len(g.gateway.Requests) != 1 || g.gateway.Requests[0] != tc.want {
					t.Errorf("expected one gateway request for %d, got %v", tc.want, g.gateway.Requests)
				}
				if len(g.panel.Upserts) != 0 {
					t.Error("expected no provisioning before payment")
				}
				orders := g.orders.All()
				if len(orders) != 1 || orders[0].Status != model.OrderStatusPending || orders[0].ExternalRef == "" {
					t.Errorf("expected one pending order with a reference, got %+v", orders)
				}
			})
		}
	})

	t.Run("should let an explicit discount override the subscriber's", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		sub.Discount = 0.5
		g := newGateRig(sub)
		annual := 0.1

		out, err := g.gate.RequestSubscription(ctx, sub, "basic", usecase.SubscriptionOptions{Devices: 2, Months: 3, PayNow: true, Discount: &annual})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Payment.Amount != 810 {
			t.Errorf("expected 810, got %d", out.Payment.Amount)
		}
	})

	t.Run("should still create a new order while a pending one is current", func(t *testing.T) {
		// --- Arrange ---
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		opts := usecase.SubscriptionOptions{Devices: 2, Months: 3, PayNow: true}
		if _, err := g.gate.RequestSubscription(ctx, sub, "basic", opts); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		g.clock.Advance(time.Hour)

		// --- Act ---
		out, err := g.gate.RequestSubscription(ctx, sub, "basic", opts)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(g.orders.All()) != 2 {
			t.Errorf("expected two orders, got %d", len(g.orders.All()))
		}
		if out.Payment.OrderID == "" {
			t.Error("expected the new order id")
		}
	})

	t.Run("should provision a trial directly", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)

		out, err := g.gate.RequestSubscription(ctx, sub, "basic", usecase.SubscriptionOptions{PayNow: false})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.IsPaymentRequired() || out.Provisioned == nil {
			t.Fatal("expected direct provisioning")
		}
		if out.Provisioned.Subscriber.PaymentStatus != model.PaymentStatusTestPeriod {
			t.Errorf("expected test_period, got %s", out.Provisioned.Subscriber.PaymentStatus)
		}
		if len(g.orders.All()) != 0 || len(g.gateway.Requests) != 0 {
			t.Error("expected no order for a trial")
		}
	})

	t.Run("should provision a free tariff as paid without an order", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		free := testTariff()
		free.ID = "free"
		free.PricePerMonth = 0
		_ = g.tariffs.Save(ctx, nil, free)

		out, err := g.gate.RequestSubscription(ctx, sub, "free", usecase.SubscriptionOptions{PayNow: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Provisioned == nil || out.Provisioned.Subscriber.PaymentStatus != model.PaymentStatusPaid {
			t.Fatal("expected paid provisioning")
		}
		if len(g.orders.All()) != 0 {
			t.Error("expected no order")
		}
	})

	t.Run("should fail the order when the gateway is down", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		g.gateway.RequestFunc = func(ctx context.Context, amount int64, description, callbackURL string, meta map[string]interface{}) (string, string, error) {
			return "", "", domain.ErrRemoteUnavailable
		}

		_, err := g.gate.RequestSubscription(ctx, sub, "basic", usecase.SubscriptionOptions{PayNow: true})
		if !errors.Is(err, domain.ErrRemoteUnavailable) {
			t.Errorf("expected ErrRemoteUnavailable, got %v", err)
		}
		orders := g.orders.All()
		if len(orders) != 1 || orders[0].Status != model.OrderStatusFailed {
			t.Errorf("expected the order to be marked failed, got %+v", orders)
		}
	})
}

func TestPaymentGate_ConfirmPayment(t *testing.T) {
	ctx := context.Background()

	pendingOrder := func(t *testing.T, g *gateRig, sub *model.Subscriber) *usecase.PaymentRequired {
		t.Helper()
		out, err := g.gate.RequestSubscription(ctx, sub, "basic", usecase.SubscriptionOptions{Devices: 2, Months: 3, PayNow: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return out.Payment
	}

	t.Run("should complete the order and provision with paid semantics", func(t *testing.T) {
		// --- Arrange ---
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		pay := pendingOrder(t, g, sub)
		order, _ := g.orders.FindByID(ctx, nil, pay.OrderID)

		// --- Act ---
		res, err := g.gate.ConfirmPayment(ctx, order.ExternalRef, true)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Provisioned == nil {
			t.Fatal("expected provisioning")
		}
		stored, _ := g.orders.FindByID(ctx, nil, pay.OrderID)
		if stored.Status != model.OrderStatusCompleted || stored.ProvisionedAt == nil {
			t.Errorf("expected completed and provisioned order, got %+v", stored)
		}
		s := g.subs.Get("sub-1")
		if s.PaymentStatus != model.PaymentStatusPaid || s.DeviceLimit != 2 {
			t.Errorf("expected paid with 2 devices, got %s / %d", s.PaymentStatus, s.DeviceLimit)
		}
		if s.ExpiresAt == nil || !s.ExpiresAt.Equal(baseTime.Add(3*model.MonthDuration)) {
			t.Errorf("expected 3 months from now, got %v", s.ExpiresAt)
		}
	})

	t.Run("should ignore a repeated callback", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		pay := pendingOrder(t, g, sub)
		order, _ := g.orders.FindByID(ctx, nil, pay.OrderID)
		if _, err := g.gate.ConfirmPayment(ctx, order.ExternalRef, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		res, err := g.gate.ConfirmPayment(ctx, order.ExternalRef, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.AlreadyApplied {
			t.Error("expected the second callback to be a no-op")
		}
		if len(g.panel.Upserts) != 1 || len(g.gateway.Verifies) != 1 {
			t.Errorf("expected one upsert and one verify, got %d / %d", len(g.panel.Upserts), len(g.gateway.Verifies))
		}
	})

	t.Run("should fail the order on a failed status without verifying", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		pay := pendingOrder(t, g, sub)
		order, _ := g.orders.FindByID(ctx, nil, pay.OrderID)

		_, err := g.gate.ConfirmPayment(ctx, order.ExternalRef, false)
		if !errors.Is(err, domain.ErrPaymentNotVerified) {
			t.Errorf("expected ErrPaymentNotVerified, got %v", err)
		}
		stored, _ := g.orders.FindByID(ctx, nil, pay.OrderID)
		if stored.Status != model.OrderStatusFailed {
			t.Errorf("expected failed, got %s", stored.Status)
		}
		if len(g.gateway.Verifies) != 0 || len(g.panel.Upserts) != 0 {
			t.Error("expected no verification and no provisioning")
		}
	})

	t.Run("should keep the order pending when verification is retryable", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		pay := pendingOrder(t, g, sub)
		order, _ := g.orders.FindByID(ctx, nil, pay.OrderID)
		g.gateway.VerifyFunc = func(ctx context.Context, ref string, amount int64) (string, error) {
			return "", domain.ErrRemoteUnavailable
		}

		_, err := g.gate.ConfirmPayment(ctx, order.ExternalRef, true)
		if !errors.Is(err, domain.ErrRemoteUnavailable) {
			t.Errorf("expected ErrRemoteUnavailable, got %v", err)
		}
		stored, _ := g.orders.FindByID(ctx, nil, pay.OrderID)
		if stored.Status != model.OrderStatusPending {
			t.Errorf("expected pending, got %s", stored.Status)
		}
	})

	t.Run("should retry provisioning for a completed but unprovisioned order", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		pay := pendingOrder(t, g, sub)
		order, _ := g.orders.FindByID(ctx, nil, pay.OrderID)
		g.panel.UpsertFunc = func(ctx context.Context, srv *model.Server, token string, spec adapter.ClientSpec) error {
			return domain.ErrRemoteUnavailable
		}
		if _, err := g.gate.ConfirmPayment(ctx, order.ExternalRef, true); !errors.Is(err, domain.ErrRemoteUnavailable) {
			t.Fatalf("expected the first provisioning to fail, got %v", err)
		}
		g.panel.UpsertFunc = nil

		res, err := g.gate.ConfirmPayment(ctx, order.ExternalRef, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Provisioned == nil || len(g.gateway.Verifies) != 1 {
			t.Error("expected provisioning without a second verification")
		}
	})

	t.Run("should extend once when a second confirmation arrives during verification", func(t *testing.T) {
		// --- Arrange ---
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		pay := pendingOrder(t, g, sub)
		order, _ := g.orders.FindByID(ctx, nil, pay.OrderID)
		var inner *usecase.ConfirmResult
		g.gateway.VerifyFunc = func(ctx context.Context, ref string, amount int64) (string, error) {
			if inner == nil {
				inner = &usecase.ConfirmResult{}
				res, err := g.gate.ConfirmPayment(ctx, ref, true)
				if err != nil {
					t.Errorf("expected the nested confirmation to succeed, got %v", err)
				}
				inner = res
			}
			return "REF-" + ref, nil
		}

		// --- Act ---
		res, err := g.gate.ConfirmPayment(ctx, order.ExternalRef, true)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.AlreadyApplied || inner == nil || inner.Provisioned == nil {
			t.Errorf("expected the nested call to provision and the outer to be a no-op, got %+v", res)
		}
		if len(g.panel.Upserts) != 1 {
			t.Errorf("expected one upsert, got %d", len(g.panel.Upserts))
		}
		s := g.subs.Get("sub-1")
		if s.ExpiresAt == nil || !s.ExpiresAt.Equal(baseTime.Add(3*model.MonthDuration)) {
			t.Errorf("expected 3 months from now, got %v", s.ExpiresAt)
		}
	})

	t.Run("should not extend again when marking the order provisioned failed", func(t *testing.T) {
		// --- Arrange ---
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		pay := pendingOrder(t, g, sub)
		order, _ := g.orders.FindByID(ctx, nil, pay.OrderID)
		g.orders.MarkProvisionedFunc = func(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
			return domain.ErrPersistence
		}
		if _, err := g.gate.ConfirmPayment(ctx, order.ExternalRef, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		g.orders.MarkProvisionedFunc = nil

		// --- Act ---
		res, err := g.gate.ConfirmPayment(ctx, order.ExternalRef, true)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.AlreadyApplied {
			t.Error("expected the retry to recognise the applied order")
		}
		if len(g.panel.Upserts) != 1 {
			t.Errorf("expected one upsert, got %d", len(g.panel.Upserts))
		}
		s := g.subs.Get("sub-1")
		if s.ExpiresAt == nil || !s.ExpiresAt.Equal(baseTime.Add(3*model.MonthDuration)) {
			t.Errorf("expected 3 months from now, got %v", s.ExpiresAt)
		}
		stored, _ := g.orders.FindByID(ctx, nil, pay.OrderID)
		if stored.ProvisionedAt == nil {
			t.Error("expected the retry to mark the order provisioned")
		}
	})

	t.Run("should surface unknown references", func(t *testing.T) {
		g := newGateRig()
		if _, err := g.gate.ConfirmPayment(ctx, "nope", true); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPaymentGate_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("should settle stale orders and skip fresh ones", func(t *testing.T) {
		// --- Arrange ---
		sub := testSubscriber("sub-1")
		other := testSubscriber("sub-2")
		g := newGateRig(sub, other)
		if _, err := g.gate.RequestSubscription(ctx, sub, "basic", usecase.SubscriptionOptions{Devices: 1, PayNow: true}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		g.clock.Advance(2 * time.Hour)
		if _, err := g.gate.RequestSubscription(ctx, other, "basic", usecase.SubscriptionOptions{Devices: 1, PayNow: true}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		// --- Act ---
		rep, err := g.gate.Reconcile(ctx, time.Hour, 10)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rep.Scanned != 1 || rep.Provisioned != 1 {
			t.Errorf("unexpected report %+v", rep)
		}
		if !g.subs.Get("sub-1").Provisioned() || g.subs.Get("sub-2").Provisioned() {
			t.Error("expected only the stale order to be provisioned")
		}
	})

	t.Run("should count unverifiable orders as failed", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		g.gateway.VerifyFunc = func(ctx context.Context, ref string, amount int64) (string, error) {
			return "", domain.ErrPaymentNotVerified
		}
		if _, err := g.gate.RequestSubscription(ctx, sub, "basic", usecase.SubscriptionOptions{Devices: 1, PayNow: true}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		g.clock.Advance(2 * time.Hour)

		rep, err := g.gate.Reconcile(ctx, time.Hour, 10)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rep.Failed != 1 {
			t.Errorf("expected one failed order, got %+v", rep)
		}
		if g.orders.All()[0].Status != model.OrderStatusFailed {
			t.Error("expected the order to be marked failed")
		}
	})

	t.Run("should defer when the gateway is down", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		g := newGateRig(sub)
		g.gateway.VerifyFunc = func(ctx context.Context, ref string, amount int64) (string, error) {
			return "", domain.ErrRemoteUnavailable
		}
		_, _ = g.gate.RequestSubscription(ctx, sub, "basic", usecase.SubscriptionOptions{Devices: 1, PayNow: true})
		g.clock.Advance(2 * time.Hour)

		rep, _ := g.gate.Reconcile(ctx, time.Hour, 10)

		if rep.Deferred != 1 || g.orders.All()[0].Status != model.OrderStatusPending {
			t.Errorf("expected a deferred pending order, got %+v", rep)
		}
	})
}
