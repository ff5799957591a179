package adapter

import (
	"context"
	"time"

	"vpn-subscription/internal/domain/model"
)

// ClientSpec is the full desired state of a panel client.
type ClientSpec struct {
	InboundID      int
	ClientID       string // panel identity (uuid)
	Email          string // panel-unique human-readable label
	SubID          string // subscription-link token
	DeviceLimit    int
	TrafficLimitGB int64 // 0 = unlimited
	ExpiresAt      time.Time
	Enabled        bool
}

// ClientStats is the traffic usage reported by the panel.
type ClientStats struct {
	Email      string
	UpBytes    int64
	DownBytes  int64
	TotalBytes int64 // limit in bytes, 0 = unlimited
	ExpiresAt  *time.Time
	Enabled    bool
}

// PanelClient is the hex port for the external VPN panel. Every call is
// stateless: the session token comes from the session cache.
//
// Errors must wrap the domain sentinels: ErrInvalidCredentials,
// ErrSecondFactorRequired, ErrSessionRejected, ErrRemoteUnavailable,
// ErrMalformedResponse, ErrNotFound.
type PanelClient interface {
	Login(ctx context.Context, srv *model.Server) (token string, err error)
	// UpsertClient creates the client or updates it in place when the
	// identity already exists on the inbound.
	UpsertClient(ctx context.Context, srv *model.Server, token string, spec ClientSpec) error
	DeleteClient(ctx context.Context, srv *model.Server, token string, inboundID int, clientID string) error
	GetClientStats(ctx context.Context, srv *model.Server, token string, email string) (*ClientStats, error)
}
