package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/infra/metrics"
	"vpn-subscription/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PaymentConfirmer is the part of the subscription use case the gateway
// callback needs.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, externalRef string, statusOK bool) (*usecase.ConfirmResult, error)
}

// Server wires the payment callback route and the health probe.
type Server struct {
	payments  PaymentConfirmer
	cbPath    string
	returnURL string
	timeout   time.Duration
	log       *zerolog.Logger
}

// NewServer constructs the HTTP layer for callbacks. callbackPath must match
// the path portion of payment.zarinpal.callback_url. returnURL, when set, is
// offered as a "back" link on the result page.
func NewServer(payments PaymentConfirmer, callbackPath, returnURL string, logger *zerolog.Logger) *Server {
	if callbackPath == "" {
		callbackPath = "/api/payment/callback"
	}
	return &Server{
		payments:  payments,
		cbPath:    callbackPath,
		returnURL: returnURL,
		timeout:   20 * time.Second,
		log:       logging.Component(logger, "payment_callback"),
	}
}

// Register attaches handlers to r.
func (s *Server) Register(r chi.Router) {
	r.Get(s.cbPath, s.handleCallback)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	q := r.URL.Query()
	authority := q.Get("Authority")
	status := q.Get("Status")

	if authority == "" {
		metrics.IncPaymentCallback("rejected", "missing_authority")
		s.renderHTML(w, http.StatusBadRequest, false, "Missing payment reference.", "")
		return
	}

	res, err := s.payments.ConfirmPayment(ctx, authority, status == "OK")
	log := logging.With(ctx, s.log).With().Str("authority", logging.Redact(authority, false)).Logger()
	switch {
	case err == nil && res.AlreadyApplied:
		metrics.IncPaymentCallback("ok", "already_applied")
		s.renderHTML(w, http.StatusOK, true, "This payment was already confirmed. Your subscription is active.", "")
	case err == nil:
		metrics.IncPaymentCallback("ok", "provisioned")
		link := ""
		if res.Provisioned != nil {
			link = res.Provisioned.Link
		}
		s.renderHTML(w, http.StatusOK, true, "Payment verified. Your subscription is now active.", link)
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncPaymentCallback("rejected", "unknown_order")
		s.renderHTML(w, http.StatusNotFound, false, "We could not find this payment.", "")
	case errors.Is(err, domain.ErrPaymentNotVerified):
		metrics.IncPaymentCallback("failed", "not_verified")
		s.renderHTML(w, http.StatusOK, false, "The payment was not approved. No charge was applied to your subscription.", "")
	case domain.IsRetryable(err):
		log.Warn().Err(err).Msg("callback deferred")
		metrics.IncPaymentCallback("deferred", "remote_unavailable")
		s.renderHTML(w, http.StatusServiceUnavailable, false, "The payment provider is not reachable right now. Please retry in a few minutes.", "")
	default:
		log.Error().Err(err).Msg("callback failed after payment")
		metrics.IncPaymentCallback("failed", "activation")
		s.renderHTML(w, http.StatusInternalServerError, false, "Your payment was received but activation failed. It will be retried automatically.", "")
	}
}

var page = template.Must(template.New("cb").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Payment {{if .OK}}Success{{else}}Result{{end}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
.btn{display:inline-block;margin-top:16px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none}
code{word-break:break-all}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}fail{{end}}">{{if .OK}}Payment Successful{{else}}Payment Processed{{end}}</h2>
  <p>{{.Msg}}</p>
  {{if .Link}}<p>Subscription link:<br><code>{{.Link}}</code></p>{{end}}
  {{if .ReturnURL}}<a class="btn" href="{{.ReturnURL}}">Back</a>{{end}}
</div>
</body>
</html>`))

func (s *Server) renderHTML(w http.ResponseWriter, code int, ok bool, msg, link string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = page.Execute(w, struct {
		OK        bool
		Msg       string
		Link      string
		ReturnURL string
	}{
		OK:        ok,
		Msg:       msg,
		Link:      link,
		ReturnURL: s.returnURL,
	})
}
