package usecase

import (
	"context"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/repository"
	"vpn-subscription/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// LedgerUseCase lets operators work through failed compensations.
type LedgerUseCase struct {
	ledger repository.RollbackLedger
	tm     repository.TransactionManager
	log    *zerolog.Logger
	now    func() time.Time
}

func NewLedgerUseCase(ledger repository.RollbackLedger, tm repository.TransactionManager, logger *zerolog.Logger) *LedgerUseCase {
	return &LedgerUseCase{ledger: ledger, tm: tm, log: logging.Component(logger, "ledger_uc"), now: time.Now}
}

// List returns entries in status, oldest first. An empty status lists all.
func (uc *LedgerUseCase) List(ctx context.Context, status model.RollbackStatus, limit int) ([]*model.RollbackEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return uc.ledger.List(ctx, repository.NoTX, status, limit)
}

func (uc *LedgerUseCase) Get(ctx context.Context, id string) (*model.RollbackEntry, error) {
	return uc.ledger.FindByID(ctx, repository.NoTX, id)
}

// Resolve closes a pending entry with the operator's note.
func (uc *LedgerUseCase) Resolve(ctx context.Context, id, note string) (*model.RollbackEntry, error) {
	defer logging.TraceDuration(uc.log, "LedgerUC.Resolve")()

	if note == "" {
		return nil, domain.ErrInvalidArgument
	}
	var out *model.RollbackEntry
	err := uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		e, err := uc.ledger.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if e.Status == model.RollbackStatusResolved {
			return domain.ErrConflict
		}
		at := uc.now()
		if err := uc.ledger.Resolve(ctx, tx, id, note, at); err != nil {
			return err
		}
		e.Status = model.RollbackStatusResolved
		e.ResolvedAt = &at
		e.ResolutionNote = note
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.With(ctx, uc.log).Info().Str("entry_id", id).Msg("rollback ledger entry resolved")
	return out, nil
}
