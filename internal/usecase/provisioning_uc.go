package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/adapter"
	"vpn-subscription/internal/domain/ports/repository"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	OpAddClient    = "add_client"
	OpDeleteClient = "delete_client"
)

// Compile-time check
var _ ClientProvisioner = (*Provisioner)(nil)

// ClientProvisioner runs the add/delete sagas against the panel and the store.
type ClientProvisioner interface {
	AddClient(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error)
	DeleteClient(ctx context.Context, subscriberID, reason string) (*DeleteResult, error)
	ApplyDue(ctx context.Context, subscriberID string) (*model.Subscriber, model.Transition, error)
	ClientUsage(ctx context.Context, subscriberID string) (*adapter.ClientStats, error)
}

// ProvisionRequest asks for a client with trial (test_period) or paid terms.
type ProvisionRequest struct {
	SubscriberID string
	TariffID     string
	Devices      int // 0 = tariff default
	Status       model.PaymentStatus
	Months       int    // paid only
	OrderID      string // paid only; an order already applied is not applied again
}

type ProvisionResult struct {
	Subscriber    *model.Subscriber
	ServerID      string
	ServerName    string
	ClientID      string
	SubToken      string
	Link          string
	ClientExisted bool
	State         model.SagaState
	// AlreadyApplied is set when OrderID had been granted before; nothing changed.
	AlreadyApplied bool
}

type DeleteResult struct {
	Subscriber *model.Subscriber
	Warning    string // set when the remote delete did not happen
	State      model.SagaState
}

type ProvisionerConfig struct {
	PanelTimeout time.Duration
	LockTTL      time.Duration
	LinkBaseURL  string
}

type ProvisionerDeps struct {
	Subscribers repository.SubscriberRepository
	Servers     repository.ServerRepository
	Tariffs     repository.TariffRepository
	Ledger      repository.RollbackLedger
	Panel       adapter.PanelClient
	Sessions    SessionProvider
	Resolver    *ServerResolver
	Locker      adapter.Locker   // optional
	Notifier    adapter.Notifier // optional
}

// Provisioner is the provisioning saga. Remote steps always run before
// local ones; a local failure after a remote success is compensated, and
// a failed compensation lands in the rollback ledger.
type Provisioner struct {
	subs     repository.SubscriberRepository
	servers  repository.ServerRepository
	tariffs  repository.TariffRepository
	ledger   repository.RollbackLedger
	panel    adapter.PanelClient
	sessions SessionProvider
	resolver *ServerResolver
	locker   adapter.Locker
	notifier adapter.Notifier

	cfg ProvisionerConfig
	log *zerolog.Logger
	now func() time.Time
}

func NewProvisioner(deps ProvisionerDeps, cfg ProvisionerConfig, logger *zerolog.Logger) *Provisioner {
	if cfg.PanelTimeout <= 0 {
		cfg.PanelTimeout = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	resolver := deps.Resolver
	if resolver == nil {
		resolver = NewServerResolver(logger)
	}
	return &Provisioner{
		subs:     deps.Subscribers,
		servers:  deps.Servers,
		tariffs:  deps.Tariffs,
		ledger:   deps.Ledger,
		panel:    deps.Panel,
		sessions: deps.Sessions,
		resolver: resolver,
		locker:   deps.Locker,
		notifier: deps.Notifier,
		cfg:      cfg,
		log:      logging.Component(logger, "provisioner"),
		now:      time.Now,
	}
}

func (p *Provisioner) SetClock(now func() time.Time) {
	p.now = now
	p.resolver.SetClock(now)
}

// AddClient creates or updates the subscriber's panel client and persists
// the new terms. An existing client identity is always reused.
func (p *Provisioner) AddClient(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	defer logging.TraceDuration(p.log, "Provisioner.AddClient")()

	if req.SubscriberID == "" || req.TariffID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if req.Status != model.PaymentStatusPaid && req.Status != model.PaymentStatusTestPeriod {
		return nil, fmt.Errorf("%w: status %q", domain.ErrInvalidArgument, req.Status)
	}
	if req.OrderID != "" && req.Status != model.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: order %s with %q terms", domain.ErrInvalidArgument, req.OrderID, req.Status)
	}

	unlock, err := p.lock(ctx, req.SubscriberID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx = logging.WithSubscriberID(ctx, req.SubscriberID)
	log := logging.With(ctx, p.log)

	sub, err := p.subs.FindByID(ctx, repository.NoTX, req.SubscriberID)
	if err != nil {
		return nil, err
	}
	if req.OrderID != "" && sub.HasAppliedOrder(req.OrderID) {
		log.Info().Str("order_id", req.OrderID).Msg("order already applied; add-client skipped")
		return p.appliedResult(ctx, sub), nil
	}
	tariff, err := p.tariffs.FindByID(ctx, repository.NoTX, req.TariffID)
	if err != nil {
		return nil, err
	}
	renewing := sub.TariffID != nil && *sub.TariffID == tariff.ID
	if !tariff.Active && !renewing {
		return nil, fmt.Errorf("%w: tariff %s is not on sale", domain.ErrConflict, tariff.ID)
	}

	now := p.now()
	if req.Status == model.PaymentStatusTestPeriod && sub.PaymentStatus != model.PaymentStatusNone {
		return nil, domain.ErrTrialUnavailable
	}

	srv, err := p.pickServer(ctx, sub, tariff.ID)
	if err != nil {
		return nil, err
	}
	token, err := p.sessions.GetSession(ctx, srv)
	if err != nil {
		return nil, err
	}

	tx := &model.ProvisioningTx{
		Operation:    OpAddClient,
		SubscriberID: sub.ID,
		ServerID:     srv.ID,
		ServerName:   srv.Name,
		State:        model.SagaStarted,
	}
	if sub.Provisioned() {
		tx.ClientID = *sub.ClientID
		tx.ClientExisted = sub.ServerID != nil && *sub.ServerID == srv.ID
	} else {
		tx.ClientID = ClientIdentity(sub.ID)
	}
	subToken := sub.SubToken
	if subToken == "" {
		subToken = NewSubToken()
	}

	previous := sub.Clone()
	next := sub.Clone()
	next.ClientID = model.StrPtr(tx.ClientID)
	next.ServerID = model.StrPtr(srv.ID)
	next.TariffID = model.StrPtr(tariff.ID)
	next.SubToken = subToken
	next.DeviceLimit = req.Devices
	if next.DeviceLimit <= 0 {
		next.DeviceLimit = tariff.DeviceLimit
	}
	next.TrafficLimitGB = tariff.TrafficLimitGB
	next.UpdatedAt = now
	switch req.Status {
	case model.PaymentStatusTestPeriod:
		start, end := model.TrialTerms(now)
		next.TestPeriodStart = &start
		next.TestPeriodEnd = &end
		next.ExpiresAt = model.TimePtr(end)
		next.PaymentStatus = model.PaymentStatusTestPeriod
	case model.PaymentStatusPaid:
		next.ExpiresAt = model.TimePtr(sub.RenewedExpiry(req.Months, now))
		next.PaymentStatus = model.PaymentStatusPaid
		next.UnpaidSince = nil
		next.RecordAppliedOrder(req.OrderID)
	}

	spec := clientSpec(next, srv, true)
	if err := p.upsertRemote(ctx, srv, token, spec); err != nil {
		tx.Fail(err)
		p.finish(ctx, tx)
		return nil, domain.WrapOp(OpAddClient, srv.Name, err)
	}
	tx.Advance(model.SagaRemoteApplied)

	if err := p.subs.Save(ctx, repository.NoTX, next); err != nil {
		persistErr := fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		log.Error().Err(err).Str("server", srv.Name).Msg("persist after remote apply failed; compensating")
		p.compensateAdd(ctx, tx, srv, token, previous, persistErr)
		return nil, domain.WrapOp(OpAddClient, srv.Name, persistErr)
	}
	tx.Advance(model.SagaLocalApplied)
	tx.Advance(model.SagaCommitted)
	p.finish(ctx, tx)

	category := adapter.EventProvisioned
	if req.Status == model.PaymentStatusTestPeriod {
		category = adapter.EventTrialStarted
	}
	notify(ctx, p.notifier, log, adapter.Event{
		Category:     category,
		Outcome:      "ok",
		SubscriberID: sub.ID,
		Server:       srv.Name,
		At:           now,
	})

	return &ProvisionResult{
		Subscriber:    next,
		ServerID:      srv.ID,
		ServerName:    srv.Name,
		ClientID:      tx.ClientID,
		SubToken:      subToken,
		Link:          srv.SubscriptionLink(p.cfg.LinkBaseURL, subToken),
		ClientExisted: tx.ClientExisted,
		State:         tx.State,
	}, nil
}

// DeleteClient removes the remote client, then clears the local
// subscription. A failed remote delete does not stop the local clear; it
// is reported through DeleteResult.Warning instead.
func (p *Provisioner) DeleteClient(ctx context.Context, subscriberID, reason string) (*DeleteResult, error) {
	defer logging.TraceDuration(p.log, "Provisioner.DeleteClient")()

	if subscriberID == "" {
		return nil, domain.ErrInvalidArgument
	}
	unlock, err := p.lock(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx = logging.WithSubscriberID(ctx, subscriberID)
	sub, err := p.subs.FindByID(ctx, repository.NoTX, subscriberID)
	if err != nil {
		return nil, err
	}
	return p.deleteLocked(ctx, sub, reason)
}

// ApplyDue re-reads the subscriber under its lock and applies whichever
// time-based transition is due now: demotion to unpaid or teardown. A
// transition decided on a stale read is never written.
func (p *Provisioner) ApplyDue(ctx context.Context, subscriberID string) (*model.Subscriber, model.Transition, error) {
	defer logging.TraceDuration(p.log, "Provisioner.ApplyDue")()

	if subscriberID == "" {
		return nil, model.TransitionNone, domain.ErrInvalidArgument
	}
	unlock, err := p.lock(ctx, subscriberID)
	if err != nil {
		return nil, model.TransitionNone, err
	}
	defer unlock()

	ctx = logging.WithSubscriberID(ctx, subscriberID)
	sub, err := p.subs.FindByID(ctx, repository.NoTX, subscriberID)
	if err != nil {
		return nil, model.TransitionNone, err
	}
	now := p.now()
	tr := sub.Evaluate(now)
	switch tr {
	case model.TransitionToUnpaid:
		sub.MarkUnpaid(now)
		if err := p.subs.Save(ctx, repository.NoTX, sub); err != nil {
			return nil, model.TransitionNone, err
		}
		return sub, tr, nil
	case model.TransitionDelete:
		res, err := p.deleteLocked(ctx, sub, "unpaid_grace_elapsed")
		if err != nil {
			return nil, model.TransitionNone, err
		}
		return res.Subscriber, tr, nil
	}
	return sub, model.TransitionNone, nil
}

// deleteLocked runs the delete saga; the caller holds the subscriber lock.
func (p *Provisioner) deleteLocked(ctx context.Context, sub *model.Subscriber, reason string) (*DeleteResult, error) {
	log := logging.With(ctx, p.log)

	tx := &model.ProvisioningTx{
		Operation:    OpDeleteClient,
		SubscriberID: sub.ID,
		State:        model.SagaStarted,
	}
	var warning string
	if sub.Provisioned() {
		tx.ClientID = *sub.ClientID
		warning = p.deleteRemote(ctx, sub, tx)
	}

	now := p.now()
	sub.ClearSubscription(now)
	if err := p.subs.Save(ctx, repository.NoTX, sub); err != nil {
		persistErr := fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		tx.Fail(persistErr)
		p.finish(ctx, tx)
		return nil, domain.WrapOp(OpDeleteClient, tx.ServerName, persistErr)
	}
	tx.Advance(model.SagaLocalApplied)
	tx.Advance(model.SagaCommitted)
	p.finish(ctx, tx)

	outcome := "ok"
	if warning != "" {
		outcome = "warning"
		log.Warn().Str("reason", reason).Str("warning", warning).Msg("local subscription cleared; panel client may remain")
		notify(ctx, p.notifier, log, adapter.Event{
			Category:     adapter.EventDivergence,
			Outcome:      outcome,
			SubscriberID: sub.ID,
			Server:       tx.ServerName,
			Detail:       warning,
			At:           now,
		})
	}
	notify(ctx, p.notifier, log, adapter.Event{
		Category:     adapter.EventDeprovisioned,
		Outcome:      outcome,
		SubscriberID: sub.ID,
		Server:       tx.ServerName,
		Detail:       reason,
		At:           now,
	})

	return &DeleteResult{Subscriber: sub, Warning: warning, State: tx.State}, nil
}

// ClientUsage reads traffic counters for the subscriber's panel client.
func (p *Provisioner) ClientUsage(ctx context.Context, subscriberID string) (*adapter.ClientStats, error) {
	defer logging.TraceDuration(p.log, "Provisioner.ClientUsage")()

	sub, err := p.subs.FindByID(ctx, repository.NoTX, subscriberID)
	if err != nil {
		return nil, err
	}
	if !sub.Provisioned() || sub.ServerID == nil {
		return nil, domain.ErrNotProvisioned
	}
	srv, err := p.servers.FindByID(ctx, repository.NoTX, *sub.ServerID)
	if err != nil {
		return nil, err
	}
	token, err := p.sessions.GetSession(ctx, srv)
	if err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, p.cfg.PanelTimeout)
	defer cancel()
	start := time.Now()
	stats, err := p.panel.GetClientStats(rctx, srv, token, clientEmail(sub))
	metrics.ObservePanelCall("get_client_stats", start, err)
	if err != nil {
		p.dropRejectedSession(ctx, srv, err)
		return nil, domain.WrapOp("client_usage", srv.Name, err)
	}
	return stats, nil
}

// appliedResult describes the subscriber as it stands after an earlier
// application of the same order.
func (p *Provisioner) appliedResult(ctx context.Context, sub *model.Subscriber) *ProvisionResult {
	res := &ProvisionResult{
		Subscriber:     sub,
		SubToken:       sub.SubToken,
		ClientExisted:  true,
		State:          model.SagaCommitted,
		AlreadyApplied: true,
	}
	if sub.ClientID != nil {
		res.ClientID = *sub.ClientID
	}
	if sub.ServerID == nil {
		return res
	}
	res.ServerID = *sub.ServerID
	if srv, err := p.servers.FindByID(ctx, repository.NoTX, *sub.ServerID); err == nil {
		res.ServerName = srv.Name
		res.Link = srv.SubscriptionLink(p.cfg.LinkBaseURL, sub.SubToken)
	}
	return res
}

// clientNamespace scopes ClientIdentity; changing it re-keys every new client.
var clientNamespace = uuid.MustParse("9b6f3c1e-51d4-4c1a-8f0e-2a7d6c4b8e13")

// ClientIdentity is the panel client id for a subscriber's first
// provisioning. It is derived from the subscriber id, so a retry after an
// upsert whose outcome was lost addresses the same remote client.
func ClientIdentity(subscriberID string) string {
	return uuid.NewSHA1(clientNamespace, []byte(subscriberID)).String()
}

// pickServer keeps a provisioned subscriber on its current server while
// that server is usable; otherwise it resolves a fresh one.
func (p *Provisioner) pickServer(ctx context.Context, sub *model.Subscriber, tariffID string) (*model.Server, error) {
	servers, err := p.servers.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	if sub.ServerID != nil {
		for _, s := range servers {
			if s.ID == *sub.ServerID && Usable(s) {
				return s, nil
			}
		}
		if sub.Provisioned() {
			logging.With(ctx, p.log).Warn().Str("previous_server", *sub.ServerID).Msg("previous server unusable; resolving a new one")
		}
	}
	return p.resolver.Resolve(tariffID, servers)
}

func (p *Provisioner) upsertRemote(ctx context.Context, srv *model.Server, token string, spec adapter.ClientSpec) error {
	rctx, cancel := context.WithTimeout(ctx, p.cfg.PanelTimeout)
	defer cancel()
	start := time.Now()
	err := p.panel.UpsertClient(rctx, srv, token, spec)
	metrics.ObservePanelCall("upsert_client", start, err)
	if err != nil {
		p.dropRejectedSession(ctx, srv, err)
	}
	return err
}

// compensateAdd undoes a remote apply whose local persist failed: a newly
// created client is deleted, a pre-existing one is restored to its
// previous terms. It runs detached from the caller's cancellation.
func (p *Provisioner) compensateAdd(ctx context.Context, tx *model.ProvisioningTx, srv *model.Server, token string, previous *model.Subscriber, original error) {
	tx.Advance(model.SagaRollingBack)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.PanelTimeout)
	defer cancel()

	var rbErr error
	start := time.Now()
	if tx.ClientExisted {
		restore := clientSpec(previous, srv, previous.Active(p.now()))
		restore.ClientID = tx.ClientID
		rbErr = p.panel.UpsertClient(cctx, srv, token, restore)
		metrics.ObservePanelCall("restore_client", start, rbErr)
	} else {
		rbErr = p.panel.DeleteClient(cctx, srv, token, srv.InboundID, tx.ClientID)
		if errors.Is(rbErr, domain.ErrNotFound) {
			rbErr = nil
		}
		metrics.ObservePanelCall("delete_client", start, rbErr)
	}

	log := logging.With(ctx, p.log)
	if rbErr == nil {
		tx.Err = original
		tx.Advance(model.SagaRolledBack)
		p.finish(ctx, tx)
		return
	}

	tx.CompensationFailed(original)
	p.finish(ctx, tx)
	now := p.now()
	entry := model.NewRollbackEntry(newULID(now), tx, original, rbErr, now)
	if err := p.ledger.Save(cctx, repository.NoTX, entry); err != nil {
		// last resort: the log line is the only record left
		log.Error().Err(err).
			Str("operation", entry.Operation).
			Str("server_id", entry.ServerID).
			Str("client_id", entry.ClientID).
			Str("original_error", entry.OriginalError).
			Str("rollback_error", entry.RollbackError).
			Msg("rollback ledger write failed")
	} else {
		log.Error().Str("entry_id", entry.ID).Str("rollback_error", entry.RollbackError).Msg("compensation failed; recorded in rollback ledger")
	}
	metrics.IncRollbackLedgerEntry(tx.Operation)
	notify(ctx, p.notifier, log, adapter.Event{
		Category:     adapter.EventRollbackFailed,
		Outcome:      "failed",
		SubscriberID: tx.SubscriberID,
		Server:       tx.ServerName,
		Detail:       entry.RollbackError,
		At:           now,
	})
}

// deleteRemote returns a warning instead of an error so the caller can
// still clear the local record.
func (p *Provisioner) deleteRemote(ctx context.Context, sub *model.Subscriber, tx *model.ProvisioningTx) string {
	if sub.ServerID == nil {
		return "no server recorded for client"
	}
	srv, err := p.servers.FindByID(ctx, repository.NoTX, *sub.ServerID)
	if err != nil {
		return fmt.Sprintf("server %s unavailable: %v", *sub.ServerID, err)
	}
	tx.ServerID = srv.ID
	tx.ServerName = srv.Name

	token, err := p.sessions.GetSession(ctx, srv)
	if err != nil {
		return domain.WrapOp(OpDeleteClient, srv.Name, err).Error()
	}

	rctx, cancel := context.WithTimeout(ctx, p.cfg.PanelTimeout)
	defer cancel()
	start := time.Now()
	err = p.panel.DeleteClient(rctx, srv, token, srv.InboundID, tx.ClientID)
	metrics.ObservePanelCall("delete_client", start, err)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		p.dropRejectedSession(ctx, srv, err)
		return domain.WrapOp(OpDeleteClient, srv.Name, err).Error()
	}
	tx.Advance(model.SagaRemoteApplied)
	return ""
}

func (p *Provisioner) dropRejectedSession(ctx context.Context, srv *model.Server, err error) {
	if !errors.Is(err, domain.ErrSessionRejected) {
		return
	}
	if ierr := p.sessions.Invalidate(context.WithoutCancel(ctx), srv); ierr != nil {
		p.log.Warn().Err(ierr).Str("server", srv.Name).Msg("failed to drop rejected session")
	}
}

func (p *Provisioner) finish(ctx context.Context, tx *model.ProvisioningTx) {
	log := logging.With(ctx, p.log)
	if !tx.Terminal() {
		log.Error().Str("operation", tx.Operation).Str("state", string(tx.State)).Msg("saga finished in a non-terminal state")
		tx.Fail(fmt.Errorf("%w: saga stopped in state %s", domain.ErrPersistence, tx.State))
	}
	metrics.ObserveSaga(tx.Operation, string(tx.State))
	ev := log.Info()
	if tx.Err != nil {
		ev = log.Warn().Err(tx.Err)
	}
	ev.Str("operation", tx.Operation).
		Str("state", string(tx.State)).
		Str("server", tx.ServerName).
		Bool("remote_applied", tx.RemoteApplied).
		Bool("local_applied", tx.LocalApplied).
		Msg("saga finished")
}

func (p *Provisioner) lock(ctx context.Context, subscriberID string) (func(), error) {
	if p.locker == nil {
		return func() {}, nil
	}
	key := "lock:subscriber:" + subscriberID
	token, err := p.locker.TryLock(ctx, key, p.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := p.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			p.log.Warn().Err(err).Str("key", key).Msg("unlock failed")
		}
	}, nil
}

func clientSpec(sub *model.Subscriber, srv *model.Server, enabled bool) adapter.ClientSpec {
	spec := adapter.ClientSpec{
		InboundID:      srv.InboundID,
		Email:          clientEmail(sub),
		SubID:          sub.SubToken,
		DeviceLimit:    sub.DeviceLimit,
		TrafficLimitGB: sub.TrafficLimitGB,
		Enabled:        enabled,
	}
	if sub.ClientID != nil {
		spec.ClientID = *sub.ClientID
	}
	if sub.ExpiresAt != nil {
		spec.ExpiresAt = *sub.ExpiresAt
	}
	return spec
}

// clientEmail is the panel-unique label of a subscriber's client.
func clientEmail(sub *model.Subscriber) string {
	label := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, sub.Label)
	if label == "" {
		return sub.ID
	}
	return label + "-" + sub.ID
}
