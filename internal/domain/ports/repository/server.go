package repository

import (
	"context"
	"time"

	"vpn-subscription/internal/domain/model"
)

// ServerRepository is the port for panel servers.
type ServerRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Server) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Server, error)
	// ListAll returns servers in a stable order (creation time, then id).
	ListAll(ctx context.Context, tx Tx) ([]*model.Server, error)
	Delete(ctx context.Context, tx Tx, id string) error
	// UpdateSession stores a refreshed token; an empty token clears it.
	UpdateSession(ctx context.Context, tx Tx, id, token string, issuedAt *time.Time) error
}
