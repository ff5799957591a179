package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// runEvery calls fn once at start and then on every tick until ctx ends.
func runEvery(ctx context.Context, interval time.Duration, log *zerolog.Logger, fn func(context.Context)) error {
	log.Info().Dur("interval", interval).Msg("worker started")
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker stopped")
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}
