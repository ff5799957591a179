package usecase

import (
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// ServerResolver picks the panel server for an operation. Selection keeps
// the input order so retries of one operation land on the same server.
type ServerResolver struct {
	log *zerolog.Logger
	now func() time.Time
}

func NewServerResolver(logger *zerolog.Logger) *ServerResolver {
	return &ServerResolver{log: logging.Component(logger, "server_resolver"), now: time.Now}
}

func (r *ServerResolver) SetClock(now func() time.Time) { r.now = now }

// Resolve filters servers by tariff, falling back to every active server
// when none is bound to it, then prefers a live session over mere
// credentials.
func (r *ServerResolver) Resolve(tariffID string, servers []*model.Server) (*model.Server, error) {
	active := make([]*model.Server, 0, len(servers))
	for _, s := range servers {
		if s != nil && s.Active {
			active = append(active, s)
		}
	}

	candidates := make([]*model.Server, 0, len(active))
	for _, s := range active {
		if s.Serves(tariffID) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 && len(active) > 0 {
		r.log.Warn().Str("tariff_id", tariffID).Int("servers", len(active)).Msg("no server bound to tariff; using full list")
		metrics.IncDegradedSelection()
		candidates = active
	}

	now := r.now()
	for _, s := range candidates {
		if s.HasAddress() && s.HasLiveSession(now) {
			return s, nil
		}
	}
	for _, s := range candidates {
		if s.HasAddress() && s.HasCredentials() {
			return s, nil
		}
	}
	return nil, domain.ErrNoServerAvailable
}

// Usable reports whether srv can still host an existing client.
func Usable(srv *model.Server) bool {
	return !srv.IsZero() && srv.Active && srv.HasAddress() && srv.HasCredentials()
}
