package repository

import (
	"context"

	"vpn-subscription/internal/domain/model"
)

// TariffRepository is the port for tariff persistence.
type TariffRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Tariff) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Tariff, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Tariff, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
