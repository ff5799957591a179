package usecase

import (
	"context"
	"errors"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/repository"
	"vpn-subscription/internal/infra/logging"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ServerUseCase is the administrator surface for panel servers.
type ServerUseCase struct {
	repo     repository.ServerRepository
	sessions SessionProvider
	log      *zerolog.Logger
}

func NewServerUseCase(repo repository.ServerRepository, sessions SessionProvider, logger *zerolog.Logger) *ServerUseCase {
	return &ServerUseCase{repo: repo, sessions: sessions, log: logging.Component(logger, "server_uc")}
}

// Save creates a server when ID is empty, otherwise updates it. Session
// fields are owned by the session cache and are never taken from input.
func (uc *ServerUseCase) Save(ctx context.Context, srv *model.Server) (*model.Server, error) {
	defer logging.TraceDuration(uc.log, "ServerUC.Save")()

	if srv.Name == "" || !srv.HasAddress() || srv.InboundID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	srv.SessionToken = ""
	srv.SessionIssuedAt = nil
	srv.UpdatedAt = now

	if srv.ID == "" {
		srv.ID = uuid.NewString()
		srv.CreatedAt = now
	} else {
		current, err := uc.repo.FindByID(ctx, repository.NoTX, srv.ID)
		if err != nil {
			return nil, err
		}
		srv.CreatedAt = current.CreatedAt
		if srv.Password == "" {
			srv.Password = current.Password
		}
		// credentials unchanged: the cached panel session stays valid
		if srv.Username == current.Username && srv.Password == current.Password && srv.Host == current.Host && srv.Port == current.Port {
			srv.SessionToken = current.SessionToken
			srv.SessionIssuedAt = current.SessionIssuedAt
		}
	}
	if err := uc.repo.Save(ctx, repository.NoTX, srv); err != nil {
		return nil, err
	}
	return srv, nil
}

func (uc *ServerUseCase) Get(ctx context.Context, id string) (*model.Server, error) {
	return uc.repo.FindByID(ctx, repository.NoTX, id)
}

func (uc *ServerUseCase) List(ctx context.Context) ([]*model.Server, error) {
	return uc.repo.ListAll(ctx, repository.NoTX)
}

// Delete removes a server. Subscribers provisioned on it are left as they
// are and move to another server on their next add-client.
func (uc *ServerUseCase) Delete(ctx context.Context, id string) error {
	defer logging.TraceDuration(uc.log, "ServerUC.Delete")()
	return uc.repo.Delete(ctx, repository.NoTX, id)
}

// CheckLogin forces a fresh panel login to verify the stored credentials.
func (uc *ServerUseCase) CheckLogin(ctx context.Context, id string) error {
	defer logging.TraceDuration(uc.log, "ServerUC.CheckLogin")()

	srv, err := uc.repo.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return err
	}
	if err := uc.sessions.Invalidate(ctx, srv); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	_, err = uc.sessions.GetSession(ctx, srv)
	return err
}
