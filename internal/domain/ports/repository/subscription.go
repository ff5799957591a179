package repository

import (
	"context"
	"time"

	"vpn-subscription/internal/domain/model"
)

// SubscriberRepository is the port for subscriber records.
type SubscriberRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscriber) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscriber, error)
	FindBySubToken(ctx context.Context, tx Tx, token string) (*model.Subscriber, error)
	Delete(ctx context.Context, tx Tx, id string) error
	// ListDue returns subscribers whose stored timestamps make a lazy
	// transition due at now (trial ended, paid expired, unpaid grace passed),
	// ordered by id and starting after afterID ("" for the first page).
	ListDue(ctx context.Context, tx Tx, now time.Time, afterID string, limit int) ([]*model.Subscriber, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.PaymentStatus]int, error)
}
