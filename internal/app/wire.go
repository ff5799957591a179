// Package app assembles the service graph shared by the server and the
// operator CLI.
package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"vpn-subscription/internal/config"
	"vpn-subscription/internal/domain/ports/adapter"
	"vpn-subscription/internal/infra/adapters/notify"
	"vpn-subscription/internal/infra/adapters/panel"
	"vpn-subscription/internal/infra/adapters/payment"
	pg "vpn-subscription/internal/infra/db/postgres"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/infra/qrcode"
	red "vpn-subscription/internal/infra/redis"
	"vpn-subscription/internal/infra/security"
	"vpn-subscription/internal/infra/web"
	"vpn-subscription/internal/infra/worker"
	"vpn-subscription/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

const (
	notifyQueue = 256
	qrSize      = 256
)

// App owns every long-lived dependency. Close releases them in reverse
// order of acquisition.
type App struct {
	Cfg  *config.Config
	Log  *zerolog.Logger
	Pool *pgxpool.Pool

	Sessions      *usecase.SessionCache
	Provisioner   *usecase.Provisioner
	Lifecycle     *usecase.Lifecycle
	Gate          *usecase.PaymentGate
	Subscriptions usecase.SubscriptionUseCase
	Tariffs       *usecase.TariffUseCase
	Servers       *usecase.ServerUseCase
	Ledger        *usecase.LedgerUseCase
	Auth          *web.AuthManager

	workers *worker.Pool
	closers []func()
}

// Build connects to the store (and Redis when configured) and wires the
// use cases. Background work is started by the caller.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: logger}

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.closers = append(a.closers, pool.Close)

	box, err := security.NewSecretBox(cfg.Security.EncryptionKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("secret box: %w", err)
	}

	subs := pg.NewSubscriberRepo(pool)
	servers := pg.NewServerRepo(pool, box)
	tariffs := pg.NewTariffRepo(pool)
	orders := pg.NewOrderRepo(pool)
	ledger := pg.NewRollbackLedger(pool)
	tm := pg.NewTxManager(pool)

	locker, limiter, err := a.coordination(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := a.notifier(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	gateway, err := newGateway(cfg.Payment)
	if err != nil {
		a.Close()
		return nil, err
	}

	panelClient := panel.NewXUIClient(cfg.Panel.Timeout, cfg.Panel.InsecureTLS)
	a.Sessions = usecase.NewSessionCache(servers, panelClient, logger).
		WithLoginLimit(limiter, cfg.Panel.LoginLimit, cfg.Panel.LoginWindow)

	a.Provisioner = usecase.NewProvisioner(usecase.ProvisionerDeps{
		Subscribers: subs,
		Servers:     servers,
		Tariffs:     tariffs,
		Ledger:      ledger,
		Panel:       panelClient,
		Sessions:    a.Sessions,
		Resolver:    usecase.NewServerResolver(logger),
		Locker:      locker,
		Notifier:    notifier,
	}, usecase.ProvisionerConfig{
		PanelTimeout: cfg.Panel.Timeout,
		LockTTL:      cfg.Redis.LockTTL,
		LinkBaseURL:  cfg.Links.FallbackBaseURL,
	}, logger)

	a.Lifecycle = usecase.NewLifecycle(subs, a.Provisioner, logger)
	a.Gate = usecase.NewPaymentGate(tariffs, orders, tm, gateway, a.Provisioner, notifier, usecase.PaymentGateConfig{
		Currency:    cfg.Payment.Currency,
		CallbackURL: cfg.Payment.ZarinPal.CallbackURL,
	}, logger)
	a.Subscriptions = usecase.NewSubscriptionUseCase(subs, servers, a.Lifecycle, a.Gate, a.Provisioner,
		qrcode.NewEncoder(qrSize), cfg.Links.FallbackBaseURL, logger)

	a.Tariffs = usecase.NewTariffUseCase(tariffs, logger)
	a.Servers = usecase.NewServerUseCase(servers, a.Sessions, logger)
	a.Ledger = usecase.NewLedgerUseCase(ledger, tm, logger)
	a.Auth = web.NewAuthManager(web.AuthConfig{
		Username:     cfg.Admin.Username,
		PasswordHash: []byte(cfg.Admin.PasswordHash),
		HMACSecret:   []byte(cfg.Admin.JWTSecret),
		SecureCookie: !cfg.Runtime.Dev,
		TTL:          cfg.Admin.SessionTTL,
	})
	return a, nil
}

// coordination picks Redis for the per-subscriber lock and the login limiter,
// or in-process fallbacks for a single replica.
func (a *App) coordination(ctx context.Context) (adapter.Locker, adapter.LoginLimiter, error) {
	if a.Cfg.Redis.URL == "" {
		a.Log.Warn().Msg("redis not configured; using in-process lock and login limiter (single replica only)")
		return red.NewMemoryLocker(), red.NewMemoryRateLimiter(), nil
	}
	rc, err := red.NewClient(ctx, &a.Cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = rc.Close() })
	return red.NewLocker(rc), red.NewRateLimiter(rc), nil
}

func (a *App) notifier(ctx context.Context) (adapter.Notifier, error) {
	cfg := a.Cfg.Notify
	sinks := []notify.Sink{notify.NewLog(a.Log)}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.WebhookURL, cfg.WebhookSecret, 5*time.Second))
	}
	if cfg.TelegramToken != "" {
		bot, err := notify.NewTelegramBot(cfg.TelegramToken)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		sinks = append(sinks, notify.NewTelegram(bot, cfg.TelegramAdminIDs,
			adapter.EventRollbackFailed, adapter.EventDivergence, adapter.EventPaymentDone))
	}

	a.workers = worker.NewPool(cfg.Workers, notifyQueue, a.Log)
	a.workers.Start(ctx)
	a.closers = append(a.closers, a.workers.Stop)
	return notify.NewAsync(a.workers, a.Log, sinks...), nil
}

func newGateway(cfg config.PaymentConfig) (adapter.PaymentGateway, error) {
	switch cfg.Provider {
	case "zarinpal":
		zp := cfg.ZarinPal
		gw, err := payment.NewZarinPalGateway(zp.MerchantID, zp.CallbackURL, zp.BaseURL, zp.Sandbox)
		if err != nil {
			return nil, fmt.Errorf("zarinpal gateway: %w", err)
		}
		return gw, nil
	case "noop", "":
		return payment.NewNoopPaymentGateway(""), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// CallbackPath is the path portion of the configured gateway callback URL.
func (a *App) CallbackPath() string {
	if u := strings.TrimSpace(a.Cfg.Payment.ZarinPal.CallbackURL); u != "" {
		if parsed, err := url.Parse(u); err == nil && parsed.Path != "" {
			return parsed.Path
		}
	}
	return "/api/payment/callback"
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	logging.Component(a.Log, "app").Debug().Msg("resources released")
}
