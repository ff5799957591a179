package app

import (
	"net/http"

	"vpn-subscription/internal/infra/api"
	"vpn-subscription/internal/infra/api/apiv1"

	"github.com/go-chi/chi/v5"
)

const loginPath = "/api/v1/auth/login"

// Router serves the admin API, the payment callback, health and metrics.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		api.TraceID(),
		api.Recover(a.Log),
		api.RequestLog(a.Log),
		api.Timeout(a.Cfg.HTTP.RequestTimeout),
	)

	api.NewServer(a.Subscriptions, a.CallbackPath(), a.Cfg.Links.PaymentReturnURL, a.Log).Register(r)

	admin := apiv1.MiddlewareFunc(api.RequireAdmin(a.Cfg.Admin.APIKey, a.Auth, a.Log, loginPath))
	apiv1.RegisterAPIV1(r, apiv1.NewServer(apiv1.Deps{
		Subscriptions: a.Subscriptions,
		Tariffs:       a.Tariffs,
		Servers:       a.Servers,
		Ledger:        a.Ledger,
		Auth:          a.Auth,
	}, a.Log), admin)
	return r
}
