package usecase

import (
	"context"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/adapter"
	"vpn-subscription/internal/domain/ports/repository"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ SessionProvider = (*SessionCache)(nil)

// SessionProvider hands out panel session tokens.
type SessionProvider interface {
	GetSession(ctx context.Context, srv *model.Server) (string, error)
	Invalidate(ctx context.Context, srv *model.Server) error
}

// SessionCache keeps one time-bounded panel token per server on the server
// record itself. Concurrent callers may both log in; the last write wins.
type SessionCache struct {
	servers repository.ServerRepository
	panel   adapter.PanelClient
	log     *zerolog.Logger
	now     func() time.Time

	limiter     adapter.LoginLimiter
	loginLimit  int
	loginWindow time.Duration
}

func NewSessionCache(servers repository.ServerRepository, panel adapter.PanelClient, logger *zerolog.Logger) *SessionCache {
	return &SessionCache{
		servers: servers,
		panel:   panel,
		log:     logging.Component(logger, "session_cache"),
		now:     time.Now,
	}
}

// WithLoginLimit caps logins per server. A denied attempt fails with
// ErrLoginThrottled instead of reaching the panel.
func (c *SessionCache) WithLoginLimit(l adapter.LoginLimiter, limit int, window time.Duration) *SessionCache {
	c.limiter = l
	c.loginLimit = limit
	c.loginWindow = window
	return c
}

func (c *SessionCache) SetClock(now func() time.Time) { c.now = now }

// GetSession returns the cached token while it is younger than
// model.SessionTTL, otherwise logs in once and stores the new token.
// Login errors are returned untouched and never retried here.
func (c *SessionCache) GetSession(ctx context.Context, srv *model.Server) (string, error) {
	defer logging.TraceDuration(c.log, "SessionCache.GetSession")()

	if srv.IsZero() {
		return "", domain.ErrInvalidArgument
	}
	now := c.now()
	if srv.HasLiveSession(now) {
		metrics.IncCacheRequest("panel_session", "hit")
		return srv.SessionToken, nil
	}
	metrics.IncCacheRequest("panel_session", "miss")

	if !srv.HasCredentials() || !srv.HasAddress() {
		return "", domain.WrapOp("login", srv.Name, domain.ErrConflict)
	}

	if c.limiter != nil && c.loginLimit > 0 {
		ok, err := c.limiter.Allow(ctx, loginLimitKey(srv.ID), c.loginLimit, c.loginWindow)
		if err != nil {
			// limiter outage must not block provisioning
			c.log.Warn().Err(err).Str("server", srv.Name).Msg("login limiter unavailable")
		} else if !ok {
			metrics.IncPanelLogin(srv.Name, domain.ErrLoginThrottled)
			return "", domain.WrapOp("login", srv.Name, domain.ErrLoginThrottled)
		}
	}

	token, err := c.panel.Login(ctx, srv)
	metrics.IncPanelLogin(srv.Name, err)
	if err != nil {
		c.log.Warn().Err(err).Str("server", srv.Name).Msg("panel login failed")
		return "", err
	}

	issued := now
	srv.SessionToken = token
	srv.SessionIssuedAt = &issued
	if err := c.servers.UpdateSession(ctx, repository.NoTX, srv.ID, token, &issued); err != nil {
		c.log.Error().Err(err).Str("server", srv.Name).Msg("failed to persist panel session")
	}
	c.log.Debug().Str("server", srv.Name).Str("token", logging.Redact(token, false)).Msg("panel session refreshed")
	return token, nil
}

// Invalidate drops the cached token so the next GetSession logs in again.
func (c *SessionCache) Invalidate(ctx context.Context, srv *model.Server) error {
	if srv.IsZero() {
		return domain.ErrInvalidArgument
	}
	srv.SessionToken = ""
	srv.SessionIssuedAt = nil
	return c.servers.UpdateSession(ctx, repository.NoTX, srv.ID, "", nil)
}

func loginLimitKey(serverID string) string {
	return "panel_login:" + serverID
}
