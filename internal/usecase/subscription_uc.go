// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/adapter"
	"vpn-subscription/internal/domain/ports/repository"
	"vpn-subscription/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase is what the API layer talks to.
type SubscriptionUseCase interface {
	Register(ctx context.Context, id, label string, discount float64) (*model.Subscriber, error)
	GetSubscription(ctx context.Context, subscriberID string) (*SubscriptionView, error)
	CreateSubscription(ctx context.Context, subscriberID, tariffID string, opts SubscriptionOptions) (*Result, error)
	RenewSubscription(ctx context.Context, subscriberID string, months int) (*Result, error)
	CancelSubscription(ctx context.Context, subscriberID string) (*Result, error)
	IssueClientLink(ctx context.Context, subscriberID string) (*ClientLink, error)
	ClientUsage(ctx context.Context, subscriberID string) (*adapter.ClientStats, error)
	ConfirmPayment(ctx context.Context, externalRef string, statusOK bool) (*ConfirmResult, error)
}

// LinkEncoder renders a subscription link as an image.
type LinkEncoder interface {
	GenerateBase64Image(content string) (string, error)
}

// Result is the outcome of a subscription operation. Payment is set
// instead of Subscriber when checkout is needed first.
type Result struct {
	Subscriber *model.Subscriber
	Link       string
	Payment    *PaymentRequired
	Warning    string
}

type SubscriptionView struct {
	Subscriber *model.Subscriber
	Active     bool
	Link       string
}

type ClientLink struct {
	Link      string
	QRImage   string // data URI, empty without an encoder
	ExpiresAt *time.Time
}

type subscriptionUC struct {
	subs        repository.SubscriberRepository
	servers     repository.ServerRepository
	lifecycle   *Lifecycle
	gate        *PaymentGate
	provisioner ClientProvisioner
	qr          LinkEncoder
	linkBase    string
	log         *zerolog.Logger
	now         func() time.Time
}

func NewSubscriptionUseCase(
	subs repository.SubscriberRepository,
	servers repository.ServerRepository,
	lifecycle *Lifecycle,
	gate *PaymentGate,
	provisioner ClientProvisioner,
	qr LinkEncoder,
	linkBase string,
	logger *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{
		subs:        subs,
		servers:     servers,
		lifecycle:   lifecycle,
		gate:        gate,
		provisioner: provisioner,
		qr:          qr,
		linkBase:    linkBase,
		log:         logging.Component(logger, "subscription_uc"),
		now:         time.Now,
	}
}

func (u *subscriptionUC) SetClock(now func() time.Time) { u.now = now }

// Register creates a subscriber, or returns the existing one unchanged.
func (u *subscriptionUC) Register(ctx context.Context, id, label string, discount float64) (*model.Subscriber, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Register")()

	existing, err := u.subs.FindByID(ctx, repository.NoTX, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	sub, err := model.NewSubscriber(id, label)
	if err != nil {
		return nil, err
	}
	if discount < 0 || discount > 1 {
		return nil, domain.ErrInvalidArgument
	}
	sub.Discount = discount
	sub.SubToken = NewSubToken()
	if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (u *subscriptionUC) GetSubscription(ctx context.Context, subscriberID string) (*SubscriptionView, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.GetSubscription")()

	sub, err := u.lifecycle.EvaluateByID(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	return &SubscriptionView{
		Subscriber: sub,
		Active:     sub.Active(u.now()),
		Link:       u.link(ctx, sub),
	}, nil
}

func (u *subscriptionUC) CreateSubscription(ctx context.Context, subscriberID, tariffID string, opts SubscriptionOptions) (*Result, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.CreateSubscription")()

	sub, err := u.lifecycle.EvaluateByID(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	out, err := u.gate.RequestSubscription(ctx, sub, tariffID, opts)
	if err != nil {
		return nil, err
	}
	return outcomeResult(out)
}

// RenewSubscription buys months more of the subscriber's current tariff
// and device count.
func (u *subscriptionUC) RenewSubscription(ctx context.Context, subscriberID string, months int) (*Result, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.RenewSubscription")()

	sub, err := u.lifecycle.EvaluateByID(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if sub.TariffID == nil {
		return nil, domain.ErrNotProvisioned
	}
	out, err := u.gate.RequestSubscription(ctx, sub, *sub.TariffID, SubscriptionOptions{
		Devices: sub.DeviceLimit,
		Months:  months,
		PayNow:  true,
	})
	if err != nil {
		return nil, err
	}
	return outcomeResult(out)
}

func (u *subscriptionUC) CancelSubscription(ctx context.Context, subscriberID string) (*Result, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.CancelSubscription")()

	res, err := u.provisioner.DeleteClient(ctx, subscriberID, "cancelled")
	if err != nil {
		return nil, err
	}
	return &Result{Subscriber: res.Subscriber, Warning: res.Warning}, nil
}

func (u *subscriptionUC) IssueClientLink(ctx context.Context, subscriberID string) (*ClientLink, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.IssueClientLink")()

	sub, err := u.lifecycle.EvaluateByID(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if !sub.Provisioned() {
		return nil, domain.ErrNotProvisioned
	}
	link := u.link(ctx, sub)
	if link == "" {
		return nil, domain.WrapOp("issue_client_link", "", domain.ErrConflict)
	}
	out := &ClientLink{Link: link, ExpiresAt: sub.ExpiresAt}
	if u.qr != nil {
		img, err := u.qr.GenerateBase64Image(link)
		if err != nil {
			u.log.Warn().Err(err).Str("subscriber_id", sub.ID).Msg("qr generation failed")
		} else {
			out.QRImage = img
		}
	}
	return out, nil
}

func (u *subscriptionUC) ClientUsage(ctx context.Context, subscriberID string) (*adapter.ClientStats, error) {
	return u.provisioner.ClientUsage(ctx, subscriberID)
}

func (u *subscriptionUC) ConfirmPayment(ctx context.Context, externalRef string, statusOK bool) (*ConfirmResult, error) {
	return u.gate.ConfirmPayment(ctx, externalRef, statusOK)
}

// link builds the public subscription link from the subscriber's server.
func (u *subscriptionUC) link(ctx context.Context, sub *model.Subscriber) string {
	if !sub.Provisioned() || sub.SubToken == "" {
		return ""
	}
	srv := &model.Server{}
	if sub.ServerID != nil {
		found, err := u.servers.FindByID(ctx, repository.NoTX, *sub.ServerID)
		if err == nil {
			srv = found
		} else if !errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Err(err).Str("server_id", *sub.ServerID).Msg("server lookup for link failed")
		}
	}
	return srv.SubscriptionLink(u.linkBase, sub.SubToken)
}

func outcomeResult(out *GateOutcome) (*Result, error) {
	switch {
	case out == nil:
		return nil, errNoOutcome
	case out.IsPaymentRequired():
		return &Result{Payment: out.Payment}, nil
	case out.Provisioned != nil:
		return &Result{Subscriber: out.Provisioned.Subscriber, Link: out.Provisioned.Link}, nil
	}
	return nil, errNoOutcome
}
