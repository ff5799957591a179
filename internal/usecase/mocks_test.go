//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/adapter"
	"vpn-subscription/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// fixedClock returns a settable clock for SetClock.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{t: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// =============================
// Repositories
// =============================

// ---- MockSubscriberRepo ----

type MockSubscriberRepo struct {
	mu    sync.Mutex
	store map[string]*model.Subscriber
	Saves int

	SaveFunc     func(ctx context.Context, tx repository.Tx, s *model.Subscriber) error
	ListDueFunc  func(ctx context.Context, tx repository.Tx, now time.Time, afterID string, limit int) ([]*model.Subscriber, error)
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Subscriber, error)
}

func NewMockSubscriberRepo(subs ...*model.Subscriber) *MockSubscriberRepo {
	m := &MockSubscriberRepo{store: make(map[string]*model.Subscriber)}
	for _, s := range subs {
		m.store[s.ID] = s.Clone()
	}
	return m
}

var _ repository.SubscriberRepository = (*MockSubscriberRepo)(nil)

func (m *MockSubscriberRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscriber) error {
	m.mu.Lock()
	m.Saves++
	m.mu.Unlock()
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, tx, s); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = s.Clone()
	return nil
}

func (m *MockSubscriberRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscriber, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MockSubscriberRepo) FindBySubToken(ctx context.Context, tx repository.Tx, token string) (*model.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.SubToken == token {
			return s.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriberRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

func (m *MockSubscriberRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time, afterID string, limit int) ([]*model.Subscriber, error) {
	if m.ListDueFunc != nil {
		return m.ListDueFunc(ctx, tx, now, afterID, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscriber
	for _, s := range m.store {
		if s.ID > afterID && s.Evaluate(now) != model.TransitionNone {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockSubscriberRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.PaymentStatus]int)
	for _, s := range m.store {
		out[s.PaymentStatus]++
	}
	return out, nil
}

// Get returns the stored record without going through FindByIDFunc.
func (m *MockSubscriberRepo) Get(id string) *model.Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.store[id]; ok {
		return s.Clone()
	}
	return nil
}

// ---- MockServerRepo ----

type MockServerRepo struct {
	mu             sync.Mutex
	servers        []*model.Server
	SessionUpdates int

	UpdateSessionFunc func(ctx context.Context, tx repository.Tx, id, token string, issuedAt *time.Time) error
}

func NewMockServerRepo(servers ...*model.Server) *MockServerRepo {
	return &MockServerRepo{servers: servers}
}

var _ repository.ServerRepository = (*MockServerRepo)(nil)

func (m *MockServerRepo) Save(ctx context.Context, tx repository.Tx, s *model.Server) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.servers {
		if cur.ID == s.ID {
			m.servers[i] = s
			return nil
		}
	}
	m.servers = append(m.servers, s)
	return nil
}

func (m *MockServerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.servers {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockServerRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Server(nil), m.servers...), nil
}

func (m *MockServerRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.servers {
		if s.ID == id {
			m.servers = append(m.servers[:i], m.servers[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockServerRepo) UpdateSession(ctx context.Context, tx repository.Tx, id, token string, issuedAt *time.Time) error {
	m.mu.Lock()
	m.SessionUpdates++
	m.mu.Unlock()
	if m.UpdateSessionFunc != nil {
		return m.UpdateSessionFunc(ctx, tx, id, token, issuedAt)
	}
	return nil
}

// ---- MockTariffRepo ----

type MockTariffRepo struct {
	mu      sync.Mutex
	tariffs map[string]*model.Tariff
}

func NewMockTariffRepo(ts ...*model.Tariff) *MockTariffRepo {
	m := &MockTariffRepo{tariffs: make(map[string]*model.Tariff)}
	for _, t := range ts {
		m.tariffs[t.ID] = t
	}
	return m
}

var _ repository.TariffRepository = (*MockTariffRepo)(nil)

func (m *MockTariffRepo) Save(ctx context.Context, tx repository.Tx, t *model.Tariff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tariffs[t.ID] = &cp
	return nil
}

func (m *MockTariffRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tariff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tariffs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTariffRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Tariff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Tariff, 0, len(m.tariffs))
	for _, t := range m.tariffs {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockTariffRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tariffs, id)
	return nil
}

// ---- MockOrderRepo ----

type MockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.Order

	MarkProvisionedFunc func(ctx context.Context, tx repository.Tx, id string, at time.Time) error
}

func NewMockOrderRepo(os ...*model.Order) *MockOrderRepo {
	m := &MockOrderRepo{orders: make(map[string]*model.Order)}
	for _, o := range os {
		cp := *o
		m.orders[o.ID] = &cp
	}
	return m
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func (m *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepo) FindByExternalRef(ctx context.Context, tx repository.Tx, ref string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ExternalRef == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrderRepo) FindPendingSince(ctx context.Context, tx repository.Tx, subscriberID string, since time.Time) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.orders {
		if o.SubscriberID == subscriberID && o.Status == model.OrderStatusPending && o.CreatedAt.After(since) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockOrderRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	o.CompletedAt = completedAt
	return nil
}

func (m *MockOrderRepo) MarkProvisioned(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	if m.MarkProvisionedFunc != nil {
		if err := m.MarkProvisionedFunc(ctx, tx, id, at); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.ProvisionedAt = &at
	return nil
}

func (m *MockOrderRepo) ListUnsettled(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.orders {
		if !o.CreatedAt.Before(olderThan) {
			continue
		}
		if o.Status == model.OrderStatusPending || (o.Status == model.OrderStatusCompleted && o.ProvisionedAt == nil) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockOrderRepo) All() []*model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out
}

// ---- MockLedger ----

type MockLedger struct {
	mu      sync.Mutex
	Entries []*model.RollbackEntry

	SaveFunc func(ctx context.Context, tx repository.Tx, e *model.RollbackEntry) error
}

var _ repository.RollbackLedger = (*MockLedger)(nil)

func (m *MockLedger) Save(ctx context.Context, tx repository.Tx, e *model.RollbackEntry) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, tx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.Entries = append(m.Entries, &cp)
	return nil
}

func (m *MockLedger) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RollbackEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockLedger) List(ctx context.Context, tx repository.Tx, status model.RollbackStatus, limit int) ([]*model.RollbackEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RollbackEntry
	for _, e := range m.Entries {
		if status == "" || e.Status == status {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockLedger) Resolve(ctx context.Context, tx repository.Tx, id, note string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.ID == id {
			e.Status = model.RollbackStatusResolved
			e.ResolutionNote = note
			e.ResolvedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- MockTxManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately without a real transaction unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// =============================
// Adapters
// =============================

// ---- MockPanel ----

type MockPanel struct {
	mu      sync.Mutex
	Logins  int
	Upserts []adapter.ClientSpec
	Deletes []string

	LoginFunc  func(ctx context.Context, srv *model.Server) (string, error)
	UpsertFunc func(ctx context.Context, srv *model.Server, token string, spec adapter.ClientSpec) error
	DeleteFunc func(ctx context.Context, srv *model.Server, token string, inboundID int, clientID string) error
	StatsFunc  func(ctx context.Context, srv *model.Server, token, email string) (*adapter.ClientStats, error)
}

var _ adapter.PanelClient = (*MockPanel)(nil)

func (m *MockPanel) Login(ctx context.Context, srv *model.Server) (string, error) {
	m.mu.Lock()
	m.Logins++
	m.mu.Unlock()
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, srv)
	}
	return "session-" + srv.ID, nil
}

func (m *MockPanel) UpsertClient(ctx context.Context, srv *model.Server, token string, spec adapter.ClientSpec) error {
	m.mu.Lock()
	m.Upserts = append(m.Upserts, spec)
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, srv, token, spec)
	}
	return nil
}

func (m *MockPanel) DeleteClient(ctx context.Context, srv *model.Server, token string, inboundID int, clientID string) error {
	m.mu.Lock()
	m.Deletes = append(m.Deletes, clientID)
	m.mu.Unlock()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, srv, token, inboundID, clientID)
	}
	return nil
}

func (m *MockPanel) GetClientStats(ctx context.Context, srv *model.Server, token, email string) (*adapter.ClientStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, srv, token, email)
	}
	return &adapter.ClientStats{Email: email, Enabled: true}, nil
}

// ---- MockGateway ----

type MockGateway struct {
	mu       sync.Mutex
	Requests []int64
	Verifies []string

	RequestFunc func(ctx context.Context, amount int64, description, callbackURL string, meta map[string]interface{}) (string, string, error)
	VerifyFunc  func(ctx context.Context, ref string, amount int64) (string, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL string, meta map[string]interface{}) (string, string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, amount)
	n := len(m.Requests)
	m.mu.Unlock()
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, amount, description, callbackURL, meta)
	}
	ref := fmt.Sprintf("AUTH-%d", n)
	return ref, "https://pay.example/" + ref, nil
}

func (m *MockGateway) VerifyPayment(ctx context.Context, ref string, amount int64) (string, error) {
	m.mu.Lock()
	m.Verifies = append(m.Verifies, ref)
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, ref, amount)
	}
	return "REF-" + ref, nil
}

// ---- MockNotifier ----

type MockNotifier struct {
	mu     sync.Mutex
	Events []adapter.Event
	Err    error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, ev adapter.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
	return m.Err
}

func (m *MockNotifier) Count(c adapter.EventCategory) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.Events {
		if ev.Category == c {
			n++
		}
	}
	return n
}

// ---- MockLocker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

var _ adapter.Locker = (*MockLocker)(nil)

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = make(map[string]bool)
	}
	if m.held[key] {
		return "", domain.ErrSubscriberLocked
	}
	m.held[key] = true
	return key, nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

// ---- MockLimiter ----

type MockLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var _ adapter.LoginLimiter = (*MockLimiter)(nil)

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}
