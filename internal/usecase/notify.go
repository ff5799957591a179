package usecase

import (
	"context"
	"strings"
	"time"

	"vpn-subscription/internal/domain/ports/adapter"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// notify sends ev without letting a notifier failure reach the caller.
func notify(ctx context.Context, n adapter.Notifier, log *zerolog.Logger, ev adapter.Event) {
	if n == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if err := n.Notify(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).Str("category", string(ev.Category)).Msg("notification dropped")
	}
}

func newULID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

// NewSubToken returns a random 16-hex-char public subscription token.
func NewSubToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
