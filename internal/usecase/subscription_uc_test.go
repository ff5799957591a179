//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/usecase"
)

type stubQR struct{ err error }

func (s stubQR) GenerateBase64Image(content string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "data:image/png;base64,Zm9v", nil
}

func newFacade(g *gateRig, qr usecase.LinkEncoder) usecase.SubscriptionUseCase {
	lc := newLifecycle(g.rig)
	uc := usecase.NewSubscriptionUseCase(g.subs, g.servers, lc, g.gate, g.prov, qr, "https://fallback.example/sub", newTestLogger())
	uc.SetClock(g.clock.Now)
	return uc
}

func TestSubscriptionUseCase_Register(t *testing.T) {
	ctx := context.Background()
	g := newGateRig()
	uc := newFacade(g, nil)

	t.Run("should create a subscriber with a link token", func(t *testing.T) {
		sub, err := uc.Register(ctx, "sub-9", "bob", 0.2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sub.SubToken == "" || sub.Discount != 0.2 || sub.PaymentStatus != model.PaymentStatusNone {
			t.Errorf("unexpected subscriber %+v", sub)
		}
	})

	t.Run("should return the existing subscriber on repeat", func(t *testing.T) {
		first := g.subs.Get("sub-9")
		again, err := uc.Register(ctx, "sub-9", "other", 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if again.SubToken != first.SubToken || again.Label != "bob" {
			t.Error("expected registration to be idempotent")
		}
	})

	t.Run("should reject an out-of-range discount", func(t *testing.T) {
		if _, err := uc.Register(ctx, "sub-10", "eve", 1.5); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSubscriptionUseCase_Flows(t *testing.T) {
	ctx := context.Background()

	t.Run("should start a trial and issue a link with a QR image", func(t *testing.T) {
		// --- Arrange ---
		g := newGateRig(testSubscriber("sub-1"))
		uc := newFacade(g, stubQR{})

		// --- Act ---
		res, err := uc.CreateSubscription(ctx, "sub-1", "basic", usecase.SubscriptionOptions{PayNow: false})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		link, err := uc.IssueClientLink(ctx, "sub-1")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Payment != nil || res.Link == "" {
			t.Errorf("expected a provisioned result with a link, got %+v", res)
		}
		if link.Link != res.Link || link.QRImage == "" {
			t.Errorf("unexpected link %+v", link)
		}
	})

	t.Run("should not issue a link before provisioning", func(t *testing.T) {
		g := newGateRig(testSubscriber("sub-1"))
		uc := newFacade(g, nil)

		if _, err := uc.IssueClientLink(ctx, "sub-1"); !errors.Is(err, domain.ErrNotProvisioned) {
			t.Errorf("expected ErrNotProvisioned, got %v", err)
		}
	})

	t.Run("should still issue the link when QR generation fails", func(t *testing.T) {
		g := newGateRig(testSubscriber("sub-1"))
		uc := newFacade(g, stubQR{err: errors.New("boom")})
		if _, err := uc.CreateSubscription(ctx, "sub-1", "basic", usecase.SubscriptionOptions{}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		link, err := uc.IssueClientLink(ctx, "sub-1")
		if err != nil || link.Link == "" || link.QRImage != "" {
			t.Errorf("expected a link without image, got %+v, %v", link, err)
		}
	})

	t.Run("should renew through the payment gate with current terms", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		exp := baseTime.Add(48 * time.Hour)
		sub.ClientID = model.StrPtr("client-1")
		sub.ServerID = model.StrPtr("a")
		sub.TariffID = model.StrPtr("basic")
		sub.DeviceLimit = 3
		sub.ExpiresAt = &exp
		sub.PaymentStatus = model.PaymentStatusPaid
		g := newGateRig(sub)
		uc := newFacade(g, nil)

		res, err := uc.RenewSubscription(ctx, "sub-1", 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Payment == nil || res.Payment.Amount != 150*3*2 {
			t.Errorf("expected a checkout for 900, got %+v", res.Payment)
		}
	})

	t.Run("should refuse to renew without a tariff", func(t *testing.T) {
		g := newGateRig(testSubscriber("sub-1"))
		uc := newFacade(g, nil)
		if _, err := uc.RenewSubscription(ctx, "sub-1", 1); !errors.Is(err, domain.ErrNotProvisioned) {
			t.Errorf("expected ErrNotProvisioned, got %v", err)
		}
	})

	t.Run("should evaluate on read before answering", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		end := baseTime.Add(-time.Minute)
		sub.PaymentStatus = model.PaymentStatusTestPeriod
		sub.TestPeriodEnd = &end
		sub.ExpiresAt = &end
		g := newGateRig(sub)
		uc := newFacade(g, nil)

		view, err := uc.GetSubscription(ctx, "sub-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if view.Subscriber.PaymentStatus != model.PaymentStatusUnpaid || view.Active {
			t.Errorf("expected an inactive unpaid view, got %+v", view.Subscriber)
		}
	})

	t.Run("should cancel and report the warning", func(t *testing.T) {
		sub := testSubscriber("sub-1")
		sub.ClientID = model.StrPtr("client-1")
		sub.ServerID = model.StrPtr("missing")
		g := newGateRig(sub)
		uc := newFacade(g, nil)

		res, err := uc.CancelSubscription(ctx, "sub-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Warning == "" || res.Subscriber.Provisioned() {
			t.Errorf("expected a cleared subscriber with a warning, got %+v", res)
		}
	})
}
