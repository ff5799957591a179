package usecase

import (
	"context"
	"errors"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/repository"
	"vpn-subscription/internal/infra/logging"

	"github.com/rs/zerolog"
)

// TariffUseCase manages purchasable tariffs.
type TariffUseCase struct {
	repo repository.TariffRepository
	log  *zerolog.Logger
}

// NewTariffUseCase constructs a TariffUseCase.
func NewTariffUseCase(repo repository.TariffRepository, logger *zerolog.Logger) *TariffUseCase {
	return &TariffUseCase{repo: repo, log: logging.Component(logger, "tariff_uc")}
}

// Create validates and stores a new tariff.
func (uc *TariffUseCase) Create(ctx context.Context, id, name string, pricePerMonth int64, deviceLimit int, trafficGB int64) (*model.Tariff, error) {
	defer logging.TraceDuration(uc.log, "TariffUC.Create")()

	if _, err := uc.repo.FindByID(ctx, repository.NoTX, id); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	t, err := model.NewTariff(id, name, pricePerMonth, deviceLimit, trafficGB)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Save(ctx, repository.NoTX, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update replaces the editable fields of an existing tariff.
func (uc *TariffUseCase) Update(ctx context.Context, t *model.Tariff) error {
	defer logging.TraceDuration(uc.log, "TariffUC.Update")()

	current, err := uc.repo.FindByID(ctx, repository.NoTX, t.ID)
	if err != nil {
		return err
	}
	if t.Name == "" || t.PricePerMonth < 0 || t.DeviceLimit <= 0 || t.TrafficLimitGB < 0 {
		return domain.ErrInvalidArgument
	}
	t.CreatedAt = current.CreatedAt
	return uc.repo.Save(ctx, repository.NoTX, t)
}

// Get retrieves a tariff by ID.
func (uc *TariffUseCase) Get(ctx context.Context, id string) (*model.Tariff, error) {
	return uc.repo.FindByID(ctx, repository.NoTX, id)
}

// List returns all tariffs.
func (uc *TariffUseCase) List(ctx context.Context) ([]*model.Tariff, error) {
	return uc.repo.ListAll(ctx, repository.NoTX)
}

// Delete removes a tariff. Subscribers that reference it keep renewing
// until their provisioning is cleared.
func (uc *TariffUseCase) Delete(ctx context.Context, id string) error {
	defer logging.TraceDuration(uc.log, "TariffUC.Delete")()
	return uc.repo.Delete(ctx, repository.NoTX, id)
}
