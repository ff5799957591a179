package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vpn-subscription/internal/usecase"
)

// Reconciler is the part of usecase.PaymentGate the worker drives.
type Reconciler interface {
	Reconcile(ctx context.Context, olderThan time.Duration, limit int) (*usecase.ReconcileReport, error)
}

// PaymentReconciler retries orders whose callback never arrived or whose
// provisioning failed after payment.
type PaymentReconciler struct {
	gate       Reconciler
	interval   time.Duration
	staleAfter time.Duration
	limit      int
	log        *zerolog.Logger
}

func NewPaymentReconciler(gate Reconciler, interval, staleAfter time.Duration, limit int, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	if limit <= 0 {
		limit = 200
	}
	compLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{gate: gate, interval: interval, staleAfter: staleAfter, limit: limit, log: &compLog}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	return runEvery(ctx, w.interval, w.log, w.tick)
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	rep, err := w.gate.Reconcile(ctx, w.staleAfter, w.limit)
	if err != nil {
		w.log.Error().Err(err).Msg("reconcile failed")
		return
	}
	if rep.Scanned > 0 {
		w.log.Info().
			Int("scanned", rep.Scanned).
			Int("provisioned", rep.Provisioned).
			Int("failed", rep.Failed).
			Int("deferred", rep.Deferred).
			Msg("orders reconciled")
	}
}
