// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/adapter"
	"vpn-subscription/internal/domain/ports/repository"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// SubscriptionOptions are the caller's choices for a purchase.
type SubscriptionOptions struct {
	Devices     int      // 0 = tariff default
	Months      int      // 0 = 1
	PayNow      bool     // false selects the trial
	Discount    *float64 // overrides the subscriber's discount, e.g. an annual-period policy
	CallbackURL string
	Description string
}

// PaymentRequired is returned instead of provisioning when checkout is needed.
type PaymentRequired struct {
	OrderID  string
	URL      string
	Amount   int64
	Currency string
}

// GateOutcome holds exactly one of Provisioned or Payment.
type GateOutcome struct {
	Provisioned *ProvisionResult
	Payment     *PaymentRequired
}

// ConfirmResult reports what a payment callback did.
type ConfirmResult struct {
	Order       *model.Order
	Provisioned *ProvisionResult
	// AlreadyApplied is true when a repeated callback found the order done.
	AlreadyApplied bool
}

type PaymentGateConfig struct {
	Currency       string
	GatewayTimeout time.Duration
	CallbackURL    string
}

// PaymentGate decides whether a subscription needs payment first, creates
// orders, and hands confirmed payments to the provisioner.
type PaymentGate struct {
	tariffs     repository.TariffRepository
	orders      repository.OrderRepository
	tm          repository.TransactionManager
	gateway     adapter.PaymentGateway
	provisioner ClientProvisioner
	notifier    adapter.Notifier

	cfg PaymentGateConfig
	log *zerolog.Logger
	now func() time.Time
}

func NewPaymentGate(
	tariffs repository.TariffRepository,
	orders repository.OrderRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	provisioner ClientProvisioner,
	notifier adapter.Notifier,
	cfg PaymentGateConfig,
	logger *zerolog.Logger,
) *PaymentGate {
	if cfg.Currency == "" {
		cfg.Currency = "IRR"
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	return &PaymentGate{
		tariffs:     tariffs,
		orders:      orders,
		tm:          tm,
		gateway:     gateway,
		provisioner: provisioner,
		notifier:    notifier,
		cfg:         cfg,
		log:         logging.Component(logger, "payment_gate"),
		now:         time.Now,
	}
}

func (g *PaymentGate) SetClock(now func() time.Time) { g.now = now }

// RequestSubscription either provisions right away (trial or free) or
// creates a pending order and returns its checkout link.
func (g *PaymentGate) RequestSubscription(ctx context.Context, sub *model.Subscriber, tariffID string, opts SubscriptionOptions) (*GateOutcome, error) {
	defer logging.TraceDuration(g.log, "PaymentGate.RequestSubscription")()

	if sub.IsZero() || tariffID == "" {
		return nil, domain.ErrInvalidArgument
	}
	tariff, err := g.tariffs.FindByID(ctx, repository.NoTX, tariffID)
	if err != nil {
		return nil, err
	}
	devices := opts.Devices
	if devices <= 0 {
		devices = tariff.DeviceLimit
	}
	months := opts.Months
	if months <= 0 {
		months = 1
	}
	discount := sub.Discount
	if opts.Discount != nil {
		discount = *opts.Discount
	}
	amount := model.ComputeAmount(tariff.PricePerMonth, devices, months, discount)

	if !opts.PayNow {
		res, err := g.provisioner.AddClient(ctx, ProvisionRequest{
			SubscriberID: sub.ID,
			TariffID:     tariff.ID,
			Devices:      devices,
			Status:       model.PaymentStatusTestPeriod,
		})
		if err != nil {
			return nil, err
		}
		metrics.IncTransition(string(model.PaymentStatusTestPeriod), "trial")
		return &GateOutcome{Provisioned: res}, nil
	}

	if amount == 0 {
		res, err := g.provisioner.AddClient(ctx, ProvisionRequest{
			SubscriberID: sub.ID,
			TariffID:     tariff.ID,
			Devices:      devices,
			Status:       model.PaymentStatusPaid,
			Months:       months,
		})
		if err != nil {
			return nil, err
		}
		metrics.IncTransition(string(model.PaymentStatusPaid), "payment")
		return &GateOutcome{Provisioned: res}, nil
	}

	pay, err := g.createOrder(ctx, sub, tariff, devices, months, discount, amount, opts)
	if err != nil {
		return nil, err
	}
	return &GateOutcome{Payment: pay}, nil
}

func (g *PaymentGate) createOrder(ctx context.Context, sub *model.Subscriber, tariff *model.Tariff, devices, months int, discount float64, amount int64, opts SubscriptionOptions) (*PaymentRequired, error) {
	log := logging.With(logging.WithSubscriberID(ctx, sub.ID), g.log)
	now := g.now()

	// Older pendings stay in place and are superseded, not blocked on.
	pending, err := g.orders.FindPendingSince(ctx, repository.NoTX, sub.ID, now.Add(-model.PendingOrderWindow))
	if err != nil {
		return nil, err
	}
	for _, o := range pending {
		if o.TariffID == tariff.ID && o.Current(now) {
			log.Warn().Str("pending_order_id", o.ID).Msg("creating order while a current pending order exists")
			metrics.IncOrderSuperseded()
			break
		}
	}

	order := &model.Order{
		ID:           newULID(now),
		SubscriberID: sub.ID,
		TariffID:     tariff.ID,
		Devices:      devices,
		Months:       months,
		Amount:       amount,
		Discount:     discount,
		Currency:     g.cfg.Currency,
		Provider:     g.gateway.Name(),
		Status:       model.OrderStatusPending,
		CreatedAt:    now,
	}
	if err := g.orders.Save(ctx, repository.NoTX, order); err != nil {
		return nil, err
	}
	metrics.IncOrder(string(model.OrderStatusPending))

	callback := opts.CallbackURL
	if callback == "" {
		callback = g.cfg.CallbackURL
	}
	desc := opts.Description
	if desc == "" {
		desc = fmt.Sprintf("%s x%d devices, %d month(s)", tariff.Name, devices, months)
	}

	gctx, cancel := context.WithTimeout(ctx, g.cfg.GatewayTimeout)
	defer cancel()
	ref, payURL, err := g.gateway.RequestPayment(gctx, amount, desc, callback, map[string]interface{}{
		"order_id":      order.ID,
		"subscriber_id": sub.ID,
	})
	if err != nil {
		if uerr := g.orders.UpdateStatus(context.WithoutCancel(ctx), repository.NoTX, order.ID, model.OrderStatusFailed, nil); uerr != nil {
			log.Error().Err(uerr).Str("order_id", order.ID).Msg("failed to mark order failed")
		}
		metrics.IncOrder(string(model.OrderStatusFailed))
		return nil, domain.WrapOp("request_payment", g.gateway.Name(), err)
	}

	order.ExternalRef = ref
	order.PayURL = payURL
	if err := g.orders.Save(ctx, repository.NoTX, order); err != nil {
		return nil, err
	}

	notify(ctx, g.notifier, log, adapter.Event{
		Category:     adapter.EventPaymentCreated,
		Outcome:      "ok",
		SubscriberID: sub.ID,
		Detail:       fmt.Sprintf("order %s amount %d %s", order.ID, amount, order.Currency),
		At:           now,
	})
	return &PaymentRequired{OrderID: order.ID, URL: payURL, Amount: amount, Currency: order.Currency}, nil
}

// ConfirmPayment handles the gateway callback. Only a verified payment
// completes the order; provisioning follows with paid semantics. Repeated
// callbacks for an already provisioned order are no-ops, and a completed
// order whose provisioning failed is provisioned again. Only the call that
// moves the order out of pending provisions it, and the provisioner skips
// an order the subscriber already carries, so one order extends once.
func (g *PaymentGate) ConfirmPayment(ctx context.Context, externalRef string, statusOK bool) (*ConfirmResult, error) {
	defer logging.TraceDuration(g.log, "PaymentGate.ConfirmPayment")()

	if externalRef == "" {
		return nil, domain.ErrInvalidArgument
	}
	order, err := g.orders.FindByExternalRef(ctx, repository.NoTX, externalRef)
	if err != nil {
		return nil, err
	}
	log := logging.With(logging.WithSubscriberID(ctx, order.SubscriberID), g.log)

	if order.ProvisionedAt != nil {
		return &ConfirmResult{Order: order, AlreadyApplied: true}, nil
	}

	switch order.Status {
	case model.OrderStatusFailed:
		return &ConfirmResult{Order: order}, domain.ErrPaymentNotVerified

	case model.OrderStatusPending:
		if !statusOK {
			g.failOrder(ctx, order, log, "gateway reported failure")
			return &ConfirmResult{Order: order}, domain.ErrPaymentNotVerified
		}
		gctx, cancel := context.WithTimeout(ctx, g.cfg.GatewayTimeout)
		refID, verr := g.gateway.VerifyPayment(gctx, externalRef, order.Amount)
		cancel()
		if verr != nil {
			if domain.IsRetryable(verr) {
				// leave pending; the gateway retries its callback
				return &ConfirmResult{Order: order}, domain.WrapOp("verify_payment", g.gateway.Name(), verr)
			}
			g.failOrder(ctx, order, log, verr.Error())
			return &ConfirmResult{Order: order}, fmt.Errorf("%w: %w", domain.ErrPaymentNotVerified, verr)
		}

		now := g.now()
		var current *model.Order
		transitioned := false
		err := g.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
			var err error
			current, err = g.orders.FindByID(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			if current.Status != model.OrderStatusPending {
				return nil
			}
			if err := g.orders.UpdateStatus(ctx, tx, order.ID, model.OrderStatusCompleted, &now); err != nil {
				return err
			}
			transitioned = true
			return nil
		})
		if err != nil {
			return nil, err
		}
		if !transitioned {
			// a concurrent confirmation settled the order first and owns provisioning
			log.Info().Str("order_id", order.ID).Str("status", string(current.Status)).Msg("order settled by another confirmation")
			if current.Status == model.OrderStatusFailed {
				return &ConfirmResult{Order: current}, domain.ErrPaymentNotVerified
			}
			return &ConfirmResult{Order: current, AlreadyApplied: true}, nil
		}
		order.Status = model.OrderStatusCompleted
		order.CompletedAt = &now
		metrics.IncOrder(string(model.OrderStatusCompleted))
		metrics.AddOrderRevenue(order.Currency, order.Amount)
		log.Info().Str("order_id", order.ID).Str("ref_id", refID).Int64("amount", order.Amount).Msg("payment verified")
	}

	res, err := g.provisioner.AddClient(ctx, ProvisionRequest{
		SubscriberID: order.SubscriberID,
		TariffID:     order.TariffID,
		Devices:      order.Devices,
		Status:       model.PaymentStatusPaid,
		Months:       order.Months,
		OrderID:      order.ID,
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("paid order not provisioned")
		return &ConfirmResult{Order: order}, err
	}

	at := g.now()
	if err := g.orders.MarkProvisioned(ctx, repository.NoTX, order.ID, at); err != nil {
		// the subscriber records the order as applied; a repeat callback only re-marks it
		log.Error().Err(err).Str("order_id", order.ID).Msg("failed to mark order provisioned")
	} else {
		order.ProvisionedAt = &at
	}
	if res.AlreadyApplied {
		return &ConfirmResult{Order: order, Provisioned: res, AlreadyApplied: true}, nil
	}
	metrics.IncTransition(string(model.PaymentStatusPaid), "payment")

	notify(ctx, g.notifier, log, adapter.Event{
		Category:     adapter.EventPaymentDone,
		Outcome:      "ok",
		SubscriberID: order.SubscriberID,
		Server:       res.ServerName,
		Detail:       fmt.Sprintf("order %s", order.ID),
		At:           at,
	})
	return &ConfirmResult{Order: order, Provisioned: res}, nil
}

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Scanned     int
	Provisioned int
	Failed      int
	Deferred    int
}

// Reconcile settles orders whose callback never arrived or whose
// provisioning failed: each one goes through ConfirmPayment as if the
// gateway had reported success, so verification still decides.
func (g *PaymentGate) Reconcile(ctx context.Context, olderThan time.Duration, limit int) (*ReconcileReport, error) {
	defer logging.TraceDuration(g.log, "PaymentGate.Reconcile")()

	orders, err := g.orders.ListUnsettled(ctx, repository.NoTX, g.now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	rep := &ReconcileReport{Scanned: len(orders)}
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if o.ExternalRef == "" {
			// the gateway never issued a reference
			g.failOrder(ctx, o, g.log, "no gateway reference")
			rep.Failed++
			continue
		}
		_, err := g.ConfirmPayment(ctx, o.ExternalRef, true)
		switch {
		case err == nil:
			rep.Provisioned++
		case errors.Is(err, domain.ErrPaymentNotVerified):
			rep.Failed++
		default:
			rep.Deferred++
			g.log.Warn().Err(err).Str("order_id", o.ID).Msg("reconcile deferred")
		}
	}
	return rep, nil
}

// OrderByRef exposes the order behind a gateway reference for callback pages.
func (g *PaymentGate) OrderByRef(ctx context.Context, externalRef string) (*model.Order, error) {
	return g.orders.FindByExternalRef(ctx, repository.NoTX, externalRef)
}

func (g *PaymentGate) failOrder(ctx context.Context, order *model.Order, log *zerolog.Logger, reason string) {
	if err := g.orders.UpdateStatus(ctx, repository.NoTX, order.ID, model.OrderStatusFailed, nil); err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("failed to mark order failed")
		return
	}
	order.Status = model.OrderStatusFailed
	metrics.IncOrder(string(model.OrderStatusFailed))
	log.Warn().Str("order_id", order.ID).Str("reason", reason).Msg("payment not verified")
}

// IsPaymentRequired reports whether o needs checkout.
func (o *GateOutcome) IsPaymentRequired() bool { return o != nil && o.Payment != nil }

var errNoOutcome = errors.New("gate returned no outcome")
