package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vpn-subscription/internal/usecase"
)

// Sweeper is the part of usecase.Lifecycle the worker drives.
type Sweeper interface {
	Sweep(ctx context.Context, batch int) (usecase.SweepReport, error)
}

// SweepWorker evaluates due subscribers on a timer so lapsed clients are
// torn down even when nobody reads them.
type SweepWorker struct {
	interval time.Duration
	batch    int
	sweeper  Sweeper
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, batch int, sweeper Sweeper, logger *zerolog.Logger) *SweepWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	compLog := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{interval: interval, batch: batch, sweeper: sweeper, log: &compLog}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	return runEvery(ctx, w.interval, w.log, w.RunOnce)
}

func (w *SweepWorker) RunOnce(ctx context.Context) {
	rep, err := w.sweeper.Sweep(ctx, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("sweep failed")
		return
	}
	if rep.Demoted+rep.Deleted+rep.Failures > 0 {
		w.log.Info().
			Int("scanned", rep.Scanned).
			Int("demoted", rep.Demoted).
			Int("deleted", rep.Deleted).
			Int("failures", rep.Failures).
			Msg("sweep finished")
	}
}
