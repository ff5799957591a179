// File: internal/infra/adapters/notify/dispatch.go
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"vpn-subscription/internal/domain/ports/adapter"
	"vpn-subscription/internal/infra/metrics"
	"vpn-subscription/internal/infra/worker"
)

// Sink is a named notifier.
type Sink interface {
	adapter.Notifier
	Name() string
}

// Async fans every event out to its sinks on a worker pool, off the
// caller's goroutine. Notify only fails when the pool refuses the task.
type Async struct {
	pool  *worker.Pool
	sinks []Sink
	log   *zerolog.Logger
}

var _ adapter.Notifier = (*Async)(nil)

func NewAsync(pool *worker.Pool, logger *zerolog.Logger, sinks ...Sink) *Async {
	l := logger.With().Str("component", "notifier").Logger()
	return &Async{pool: pool, sinks: sinks, log: &l}
}

func (a *Async) Notify(ctx context.Context, ev adapter.Event) error {
	if len(a.sinks) == 0 {
		return nil
	}
	err := a.pool.Submit(func(poolCtx context.Context) error {
		return a.deliver(poolCtx, ev)
	})
	if err != nil {
		metrics.IncNotification("dispatch", err)
		return fmt.Errorf("dispatch %s: %w", ev.Category, err)
	}
	return nil
}

func (a *Async) deliver(ctx context.Context, ev adapter.Event) error {
	var errs []error
	for _, s := range a.sinks {
		err := s.Notify(ctx, ev)
		metrics.IncNotification(s.Name(), err)
		if err != nil {
			a.log.Warn().Err(err).Str("sink", s.Name()).Str("category", string(ev.Category)).Msg("notification failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes events to the structured log; the sink of last resort.
type Log struct{ log *zerolog.Logger }

func NewLog(logger *zerolog.Logger) *Log {
	l := logger.With().Str("component", "events").Logger()
	return &Log{log: &l}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Notify(_ context.Context, ev adapter.Event) error {
	e := l.log.Info()
	if ev.Outcome != "ok" {
		e = l.log.Warn()
	}
	e.Str("category", string(ev.Category)).
		Str("outcome", ev.Outcome).
		Str("subscriber_id", ev.SubscriberID).
		Str("server", ev.Server).
		Str("detail", ev.Detail).
		Time("at", ev.At).
		Msg("event")
	return nil
}
