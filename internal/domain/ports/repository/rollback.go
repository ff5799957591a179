package repository

import (
	"context"
	"time"

	"vpn-subscription/internal/domain/model"
)

// RollbackLedger stores compensations that failed and need an operator.
type RollbackLedger interface {
	Save(ctx context.Context, tx Tx, e *model.RollbackEntry) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.RollbackEntry, error)
	List(ctx context.Context, tx Tx, status model.RollbackStatus, limit int) ([]*model.RollbackEntry, error)
	Resolve(ctx context.Context, tx Tx, id, note string, at time.Time) error
}
