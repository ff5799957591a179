package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen --config=../../../../api/oapi-codegen.yaml ../../../../api/openapi.yaml

// Compile-time check
var _ ServerInterface = (*Handlers)(nil)

type TariffService interface {
	Create(ctx context.Context, id, name string, pricePerMonth int64, deviceLimit int, trafficGB int64) (*model.Tariff, error)
	Update(ctx context.Context, t *model.Tariff) error
	Get(ctx context.Context, id string) (*model.Tariff, error)
	List(ctx context.Context) ([]*model.Tariff, error)
	Delete(ctx context.Context, id string) error
}

type ServerService interface {
	Save(ctx context.Context, srv *model.Server) (*model.Server, error)
	Get(ctx context.Context, id string) (*model.Server, error)
	List(ctx context.Context) ([]*model.Server, error)
	Delete(ctx context.Context, id string) error
	CheckLogin(ctx context.Context, id string) error
}

type LedgerService interface {
	List(ctx context.Context, status model.RollbackStatus, limit int) ([]*model.RollbackEntry, error)
	Get(ctx context.Context, id string) (*model.RollbackEntry, error)
	Resolve(ctx context.Context, id, note string) (*model.RollbackEntry, error)
}

// Authenticator mints admin sessions. Any error is reported as 401.
type Authenticator interface {
	Login(w http.ResponseWriter, username, password string) (token string, expiresAt time.Time, err error)
}

// Deps are the use cases behind the API. A nil dependency answers 501.
type Deps struct {
	Subscriptions usecase.SubscriptionUseCase
	Tariffs       TariffService
	Servers       ServerService
	Ledger        LedgerService
	Auth          Authenticator
}

type Handlers struct {
	subs    usecase.SubscriptionUseCase
	tariffs TariffService
	servers ServerService
	ledger  LedgerService
	auth    Authenticator
	log     *zerolog.Logger
	now     func() time.Time
}

func NewServer(d Deps, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		subs:    d.Subscriptions,
		tariffs: d.Tariffs,
		servers: d.Servers,
		ledger:  d.Ledger,
		auth:    d.Auth,
		log:     logging.Component(logger, "apiv1"),
		now:     time.Now,
	}
}

// RegisterAPIV1 mounts the generated routes on r. The generated mux uses
// absolute paths (/api/v1/...), so r is normally the root router.
func RegisterAPIV1(r chi.Router, h *Handlers, mws ...MiddlewareFunc) {
	HandlerWithOptions(h, ChiServerOptions{
		BaseRouter:  r,
		Middlewares: mws,
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			writeJSON(w, http.StatusBadRequest, Error{Error: err.Error()})
		},
	})
}

// ===== auth =====

func (s *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		notImplemented(w)
		return
	}
	var body LoginRequest
	if !decode(w, r, &body) {
		return
	}
	tok, exp, err := s.auth.Login(w, body.Username, body.Password)
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Str("username", body.Username).Msg("admin login rejected")
		writeJSON(w, http.StatusUnauthorized, Error{Error: "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: tok, ExpiresAt: exp})
}

// ===== subscribers =====

func (s *Handlers) RegisterSubscriber(w http.ResponseWriter, r *http.Request) {
	if s.subs == nil {
		notImplemented(w)
		return
	}
	var body RegisterSubscriberRequest
	if !decode(w, r, &body) {
		return
	}
	sub, err := s.subs.Register(r.Context(), body.Id, deref(body.Label), deref(body.Discount))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriber(sub))
}

func (s *Handlers) GetSubscriber(w http.ResponseWriter, r *http.Request, id Id) {
	if s.subs == nil {
		notImplemented(w)
		return
	}
	view, err := s.subs.GetSubscription(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubscriptionView{
		Subscriber: toSubscriber(view.Subscriber),
		Active:     view.Active,
		Link:       optString(view.Link),
	})
}

func (s *Handlers) CreateSubscription(w http.ResponseWriter, r *http.Request, id Id) {
	if s.subs == nil {
		notImplemented(w)
		return
	}
	var body SubscriptionRequest
	if !decode(w, r, &body) {
		return
	}
	res, err := s.subs.CreateSubscription(r.Context(), id, body.TariffId, usecase.SubscriptionOptions{
		Devices:     deref(body.Devices),
		Months:      deref(body.Months),
		PayNow:      deref(body.PayNow),
		Discount:    body.Discount,
		CallbackURL: deref(body.CallbackUrl),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, res)
}

func (s *Handlers) RenewSubscription(w http.ResponseWriter, r *http.Request, id Id) {
	if s.subs == nil {
		notImplemented(w)
		return
	}
	var body RenewRequest
	if !decode(w, r, &body) {
		return
	}
	if body.Months <= 0 {
		writeJSON(w, http.StatusBadRequest, Error{Error: "months must be positive"})
		return
	}
	res, err := s.subs.RenewSubscription(r.Context(), id, body.Months)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, res)
}

func (s *Handlers) CancelSubscription(w http.ResponseWriter, r *http.Request, id Id) {
	if s.subs == nil {
		notImplemented(w)
		return
	}
	res, err := s.subs.CancelSubscription(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, res)
}

func (s *Handlers) GetClientLink(w http.ResponseWriter, r *http.Request, id Id) {
	if s.subs == nil {
		notImplemented(w)
		return
	}
	link, err := s.subs.IssueClientLink(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ClientLink{
		Link:      link.Link,
		QrImage:   optString(link.QRImage),
		ExpiresAt: epochMillis(link.ExpiresAt),
	})
}

func (s *Handlers) GetClientUsage(w http.ResponseWriter, r *http.Request, id Id) {
	if s.subs == nil {
		notImplemented(w)
		return
	}
	st, err := s.subs.ClientUsage(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ClientUsage{
		Email:      st.Email,
		UpBytes:    st.UpBytes,
		DownBytes:  st.DownBytes,
		TotalBytes: st.TotalBytes,
		ExpiresAt:  epochMillis(st.ExpiresAt),
		Enabled:    st.Enabled,
	})
}

func (s *Handlers) writeResult(w http.ResponseWriter, res *usecase.Result) {
	out := SubscriptionResult{
		Link:    optString(res.Link),
		Warning: optString(res.Warning),
	}
	if res.Subscriber != nil {
		sub := toSubscriber(res.Subscriber)
		out.Subscriber = &sub
	}
	if p := res.Payment; p != nil {
		out.Payment = &PaymentRequired{OrderId: p.OrderID, Url: p.URL, Amount: p.Amount, Currency: p.Currency}
		writeJSON(w, http.StatusAccepted, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ===== tariffs =====

func (s *Handlers) ListTariffs(w http.ResponseWriter, r *http.Request) {
	if s.tariffs == nil {
		notImplemented(w)
		return
	}
	list, err := s.tariffs.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := TariffList{Items: make([]Tariff, 0, len(list))}
	for _, t := range list {
		out.Items = append(out.Items, toTariff(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Handlers) CreateTariff(w http.ResponseWriter, r *http.Request) {
	if s.tariffs == nil {
		notImplemented(w)
		return
	}
	var body Tariff
	if !decode(w, r, &body) {
		return
	}
	t, err := s.tariffs.Create(r.Context(), body.Id, body.Name, body.PricePerMonth, body.DeviceLimit, deref(body.TrafficLimitGb))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Active != nil && !*body.Active {
		t.Active = false
		if err := s.tariffs.Update(r.Context(), t); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, toTariff(t))
}

func (s *Handlers) GetTariff(w http.ResponseWriter, r *http.Request, id Id) {
	if s.tariffs == nil {
		notImplemented(w)
		return
	}
	t, err := s.tariffs.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTariff(t))
}

func (s *Handlers) UpdateTariff(w http.ResponseWriter, r *http.Request, id Id) {
	if s.tariffs == nil {
		notImplemented(w)
		return
	}
	var body Tariff
	if !decode(w, r, &body) {
		return
	}
	current, err := s.tariffs.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t := &model.Tariff{
		ID:             id,
		Name:           body.Name,
		PricePerMonth:  body.PricePerMonth,
		DeviceLimit:    body.DeviceLimit,
		TrafficLimitGB: deref(body.TrafficLimitGb),
		Active:         current.Active,
	}
	if body.Active != nil {
		t.Active = *body.Active
	}
	if err := s.tariffs.Update(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTariff(t))
}

func (s *Handlers) DeleteTariff(w http.ResponseWriter, r *http.Request, id Id) {
	if s.tariffs == nil {
		notImplemented(w)
		return
	}
	if err := s.tariffs.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== servers =====

func (s *Handlers) ListServers(w http.ResponseWriter, r *http.Request) {
	if s.servers == nil {
		notImplemented(w)
		return
	}
	list, err := s.servers.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := ServerList{Items: make([]Server, 0, len(list))}
	for _, srv := range list {
		out.Items = append(out.Items, s.toServer(srv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Handlers) CreateServer(w http.ResponseWriter, r *http.Request) {
	if s.servers == nil {
		notImplemented(w)
		return
	}
	var body ServerInput
	if !decode(w, r, &body) {
		return
	}
	srv := fromServerInput(body, true)
	saved, err := s.servers.Save(r.Context(), srv)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toServer(saved))
}

func (s *Handlers) GetServer(w http.ResponseWriter, r *http.Request, id Id) {
	if s.servers == nil {
		notImplemented(w)
		return
	}
	srv, err := s.servers.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toServer(srv))
}

func (s *Handlers) UpdateServer(w http.ResponseWriter, r *http.Request, id Id) {
	if s.servers == nil {
		notImplemented(w)
		return
	}
	var body ServerInput
	if !decode(w, r, &body) {
		return
	}
	current, err := s.servers.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	srv := fromServerInput(body, current.Active)
	srv.ID = id
	saved, err := s.servers.Save(r.Context(), srv)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toServer(saved))
}

func (s *Handlers) DeleteServer(w http.ResponseWriter, r *http.Request, id Id) {
	if s.servers == nil {
		notImplemented(w)
		return
	}
	if err := s.servers.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Handlers) CheckServer(w http.ResponseWriter, r *http.Request, id Id) {
	if s.servers == nil {
		notImplemented(w)
		return
	}
	if err := s.servers.CheckLogin(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== rollback ledger =====

func (s *Handlers) ListRollbacks(w http.ResponseWriter, r *http.Request, params ListRollbacksParams) {
	if s.ledger == nil {
		notImplemented(w)
		return
	}
	var status model.RollbackStatus
	if params.Status != nil {
		status = model.RollbackStatus(*params.Status)
		if status != model.RollbackStatusPending && status != model.RollbackStatusResolved {
			writeJSON(w, http.StatusBadRequest, Error{Error: "unknown status"})
			return
		}
	}
	list, err := s.ledger.List(r.Context(), status, deref(params.Limit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := RollbackList{Items: make([]RollbackEntry, 0, len(list))}
	for _, e := range list {
		out.Items = append(out.Items, toRollback(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Handlers) GetRollback(w http.ResponseWriter, r *http.Request, id Id) {
	if s.ledger == nil {
		notImplemented(w)
		return
	}
	e, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRollback(e))
}

func (s *Handlers) ResolveRollback(w http.ResponseWriter, r *http.Request, id Id) {
	if s.ledger == nil {
		notImplemented(w)
		return
	}
	var body ResolveRequest
	if !decode(w, r, &body) {
		return
	}
	e, err := s.ledger.Resolve(r.Context(), id, body.Note)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRollback(e))
}

// ===== error mapping =====

// StatusFor maps a domain error to its HTTP status and whether the caller
// may retry.
func StatusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, false
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, false
	case errors.Is(err, domain.ErrPaymentNotVerified):
		return http.StatusPaymentRequired, false
	case errors.Is(err, domain.ErrSubscriberLocked):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrNotProvisioned):
		return http.StatusConflict, false
	case errors.Is(err, domain.ErrRemoteUnavailable), errors.Is(err, domain.ErrNoServerAvailable):
		return http.StatusServiceUnavailable, true
	case errors.Is(err, domain.ErrAuth), errors.Is(err, domain.ErrSessionRejected), errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway, false
	default:
		return http.StatusInternalServerError, false
	}
}

func (s *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, retry := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	body := Error{Error: msg}
	if retry {
		body.Retryable = &retry
	}
	writeJSON(w, code, body)
}

func notImplemented(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotImplemented, Error{Error: "not configured"})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		writeJSON(w, http.StatusBadRequest, Error{Error: "missing body"})
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, Error{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
