//go:build !integration

package usecase_test

import (
	"time"

	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/usecase"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testServer(id string, tariffs ...string) *model.Server {
	return &model.Server{
		ID:         id,
		Name:       "srv-" + id,
		Scheme:     "https",
		Host:       id + ".panel.example",
		Port:       2053,
		Username:   "admin",
		Password:   "pw",
		InboundID:  1,
		TariffIDs:  tariffs,
		Active:     true,
		SubBaseURL: "https://sub.example/s",
	}
}

func testTariff() *model.Tariff {
	return &model.Tariff{ID: "basic", Name: "Basic", PricePerMonth: 150, DeviceLimit: 2, TrafficLimitGB: 100, Active: true}
}

func testSubscriber(id string) *model.Subscriber {
	return &model.Subscriber{ID: id, Label: "Alice", SubToken: "tok-" + id, PaymentStatus: model.PaymentStatusNone}
}

// rig wires a provisioner over in-memory collaborators.
type rig struct {
	clock    *fixedClock
	subs     *MockSubscriberRepo
	servers  *MockServerRepo
	tariffs  *MockTariffRepo
	ledger   *MockLedger
	panel    *MockPanel
	notifier *MockNotifier
	sessions *usecase.SessionCache
	prov     *usecase.Provisioner
}

func newRig(subs ...*model.Subscriber) *rig {
	r := &rig{
		clock:    newFixedClock(baseTime),
		subs:     NewMockSubscriberRepo(subs...),
		servers:  NewMockServerRepo(testServer("a")),
		tariffs:  NewMockTariffRepo(testTariff()),
		ledger:   &MockLedger{},
		panel:    &MockPanel{},
		notifier: &MockNotifier{},
	}
	logger := newTestLogger()
	r.sessions = usecase.NewSessionCache(r.servers, r.panel, logger)
	r.sessions.SetClock(r.clock.Now)
	r.prov = usecase.NewProvisioner(usecase.ProvisionerDeps{
		Subscribers: r.subs,
		Servers:     r.servers,
		Tariffs:     r.tariffs,
		Ledger:      r.ledger,
		Panel:       r.panel,
		Sessions:    r.sessions,
		Locker:      &MockLocker{},
		Notifier:    r.notifier,
	}, usecase.ProvisionerConfig{PanelTimeout: time.Second, LinkBaseURL: "https://fallback.example/sub"}, logger)
	r.prov.SetClock(r.clock.Now)
	return r
}
