//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/usecase"
)

func TestTariffUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("should create a tariff and refuse a duplicate id", func(t *testing.T) {
		uc := usecase.NewTariffUseCase(NewMockTariffRepo(), newTestLogger())

		got, err := uc.Create(ctx, "pro", "Pro", 300, 3, 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.Active || got.PricePerMonth != 300 {
			t.Errorf("unexpected tariff %+v", got)
		}
		if _, err := uc.Create(ctx, "pro", "Pro again", 100, 1, 0); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("should reject invalid updates and store valid ones", func(t *testing.T) {
		repo := NewMockTariffRepo(testTariff())
		uc := usecase.NewTariffUseCase(repo, newTestLogger())

		bad := testTariff()
		bad.DeviceLimit = 0
		if err := uc.Update(ctx, bad); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}

		upd := testTariff()
		upd.PricePerMonth = 175
		if err := uc.Update(ctx, upd); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		stored, _ := uc.Get(ctx, "basic")
		if stored.PricePerMonth != 175 {
			t.Errorf("expected price 175, got %d", stored.PricePerMonth)
		}
	})

	t.Run("should report a missing tariff on update", func(t *testing.T) {
		uc := usecase.NewTariffUseCase(NewMockTariffRepo(), newTestLogger())
		if err := uc.Update(ctx, testTariff()); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestServerUseCase(t *testing.T) {
	ctx := context.Background()

	newUC := func(servers ...*model.Server) (*usecase.ServerUseCase, *MockServerRepo, *MockPanel) {
		repo := NewMockServerRepo(servers...)
		panel := &MockPanel{}
		sessions := usecase.NewSessionCache(repo, panel, newTestLogger())
		return usecase.NewServerUseCase(repo, sessions, newTestLogger()), repo, panel
	}

	t.Run("should assign an id and never accept session fields from input", func(t *testing.T) {
		// --- Arrange ---
		uc, _, _ := newUC()
		in := testServer("")
		in.SessionToken = "forged"

		// --- Act ---
		got, err := uc.Save(ctx, in)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.ID == "" || got.SessionToken != "" || got.SessionIssuedAt != nil {
			t.Errorf("unexpected server %+v", got)
		}
	})

	t.Run("should keep the stored password and session when credentials are unchanged", func(t *testing.T) {
		current := liveSession(testServer("a"))
		uc, _, _ := newUC(current)

		in := testServer("a")
		in.Password = ""
		in.Name = "renamed"
		got, err := uc.Save(ctx, in)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Password != "pw" || got.SessionToken != "cookie" {
			t.Errorf("expected password and session kept, got %+v", got)
		}
	})

	t.Run("should drop the session when the host changes", func(t *testing.T) {
		uc, _, _ := newUC(liveSession(testServer("a")))

		in := testServer("a")
		in.Host = "moved.panel.example"
		got, err := uc.Save(ctx, in)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.SessionToken != "" {
			t.Error("expected the cached session to be dropped")
		}
	})

	t.Run("should reject a server without an inbound", func(t *testing.T) {
		uc, _, _ := newUC()
		in := testServer("")
		in.InboundID = 0
		if _, err := uc.Save(ctx, in); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should force a fresh login on check", func(t *testing.T) {
		uc, _, panel := newUC(liveSession(testServer("a")))

		if err := uc.CheckLogin(ctx, "a"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if panel.Logins != 1 {
			t.Errorf("expected one login, got %d", panel.Logins)
		}
	})

	t.Run("should surface login failures on check", func(t *testing.T) {
		uc, _, panel := newUC(testServer("a"))
		panel.LoginFunc = func(ctx context.Context, srv *model.Server) (string, error) {
			return "", domain.ErrInvalidCredentials
		}

		if err := uc.CheckLogin(ctx, "a"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestLedgerUseCase(t *testing.T) {
	ctx := context.Background()
	pending := func() *model.RollbackEntry {
		return &model.RollbackEntry{ID: "01HX", Operation: "add_client", SubscriberID: "sub-1", Status: model.RollbackStatusPending}
	}

	t.Run("should resolve a pending entry with a note", func(t *testing.T) {
		// --- Arrange ---
		ledger := &MockLedger{Entries: []*model.RollbackEntry{pending()}}
		uc := usecase.NewLedgerUseCase(ledger, NewMockTxManager(), newTestLogger())

		// --- Act ---
		got, err := uc.Resolve(ctx, "01HX", "client removed by hand")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Status != model.RollbackStatusResolved || got.ResolvedAt == nil || got.ResolutionNote == "" {
			t.Errorf("unexpected entry %+v", got)
		}
		left, _ := uc.List(ctx, model.RollbackStatusPending, 0)
		if len(left) != 0 {
			t.Errorf("expected no pending entries, got %d", len(left))
		}
	})

	t.Run("should refuse to resolve twice", func(t *testing.T) {
		ledger := &MockLedger{Entries: []*model.RollbackEntry{pending()}}
		uc := usecase.NewLedgerUseCase(ledger, NewMockTxManager(), newTestLogger())

		if _, err := uc.Resolve(ctx, "01HX", "done"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := uc.Resolve(ctx, "01HX", "again"); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("should require a note", func(t *testing.T) {
		uc := usecase.NewLedgerUseCase(&MockLedger{}, NewMockTxManager(), newTestLogger())
		if _, err := uc.Resolve(ctx, "01HX", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
