package usecase

import (
	"context"
	"errors"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/repository"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Transition triggers, used as metric labels.
const (
	TriggerRead  = "read"
	TriggerSweep = "sweep"
)

// Lifecycle applies the time-based subscription transitions: an ended trial
// or expired paid period demotes to unpaid, and UnpaidGrace spent unpaid
// tears the subscription down.
type Lifecycle struct {
	subs        repository.SubscriberRepository
	provisioner ClientProvisioner
	log         *zerolog.Logger
	now         func() time.Time
}

func NewLifecycle(subs repository.SubscriberRepository, provisioner ClientProvisioner, logger *zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		subs:        subs,
		provisioner: provisioner,
		log:         logging.Component(logger, "lifecycle"),
		now:         time.Now,
	}
}

func (l *Lifecycle) SetClock(now func() time.Time) { l.now = now }

// Evaluate applies whichever transition is due and returns the resulting
// subscriber. sub may be a stale read: the write itself happens under the
// subscriber lock on a fresh copy, so a payment committed in between wins.
// A subscriber busy in another operation is returned unchanged and is
// picked up by the next read or sweep.
func (l *Lifecycle) Evaluate(ctx context.Context, sub *model.Subscriber, trigger string) (*model.Subscriber, model.Transition, error) {
	defer logging.TraceDuration(l.log, "Lifecycle.Evaluate")()

	if sub.Evaluate(l.now()) == model.TransitionNone {
		return sub, model.TransitionNone, nil
	}
	from := sub.PaymentStatus
	next, tr, err := l.provisioner.ApplyDue(ctx, sub.ID)
	if errors.Is(err, domain.ErrSubscriberLocked) {
		l.log.Debug().Str("subscriber_id", sub.ID).Msg("subscriber busy; transition deferred")
		return sub, model.TransitionNone, nil
	}
	if err != nil {
		return sub, model.TransitionNone, err
	}
	switch tr {
	case model.TransitionToUnpaid:
		metrics.IncTransition(string(model.PaymentStatusUnpaid), trigger)
		ev := l.log.Info().Str("subscriber_id", sub.ID).Str("from", string(from))
		if next.UnpaidSince != nil {
			ev = ev.Time("unpaid_since", *next.UnpaidSince)
		}
		ev.Msg("subscription demoted to unpaid")
	case model.TransitionDelete:
		metrics.IncTransition("deleted", trigger)
		l.log.Info().Str("subscriber_id", sub.ID).Msg("unpaid subscription torn down")
	}
	return next, tr, nil
}

// EvaluateByID loads the subscriber and evaluates it on read.
func (l *Lifecycle) EvaluateByID(ctx context.Context, subscriberID string) (*model.Subscriber, error) {
	sub, err := l.subs.FindByID(ctx, repository.NoTX, subscriberID)
	if err != nil {
		return nil, err
	}
	sub, _, err = l.Evaluate(ctx, sub, TriggerRead)
	return sub, err
}

// SweepReport summarises one sweep pass.
type SweepReport struct {
	Scanned  int
	Demoted  int
	Deleted  int
	Failures int
}

// Sweep evaluates every subscriber whose timestamps make a transition due,
// reading them in pages of batch ordered by id. A failing subscriber is
// logged and skipped; the pass moves past it, so failures never hold back
// the subscribers after them.
func (l *Lifecycle) Sweep(ctx context.Context, batch int) (SweepReport, error) {
	defer logging.TraceDuration(l.log, "Lifecycle.Sweep")()

	if batch <= 0 {
		batch = 100
	}
	var report SweepReport
	now := l.now()
	after := ""
	for {
		due, err := l.subs.ListDue(ctx, repository.NoTX, now, after, batch)
		if err != nil {
			return report, err
		}
		for _, sub := range due {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			after = sub.ID
			report.Scanned++
			_, tr, err := l.Evaluate(ctx, sub, TriggerSweep)
			if err != nil {
				report.Failures++
				l.log.Error().Err(err).Str("subscriber_id", sub.ID).Msg("sweep evaluation failed")
				continue
			}
			switch tr {
			case model.TransitionToUnpaid:
				report.Demoted++
			case model.TransitionDelete:
				report.Deleted++
			}
		}
		if len(due) < batch {
			break
		}
	}

	if counts, err := l.subs.CountByStatus(ctx, repository.NoTX); err == nil {
		metrics.SetSubscribersTotal(counts)
	} else {
		l.log.Warn().Err(err).Msg("failed to count subscribers by status")
	}
	return report, nil
}
