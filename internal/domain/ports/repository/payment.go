package repository

import (
	"context"
	"time"

	"vpn-subscription/internal/domain/model"
)

// -----------------------------
// Orders
// -----------------------------

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	FindByExternalRef(ctx context.Context, tx Tx, ref string) (*model.Order, error)
	// FindPendingSince returns pending orders of a subscriber created after since, newest first.
	FindPendingSince(ctx context.Context, tx Tx, subscriberID string, since time.Time) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.OrderStatus, completedAt *time.Time) error
	MarkProvisioned(ctx context.Context, tx Tx, id string, at time.Time) error
	// ListUnsettled returns orders created before olderThan that are still
	// pending, or completed without a provisioned client, oldest first.
	ListUnsettled(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Order, error)
}
