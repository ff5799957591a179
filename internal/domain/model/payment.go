package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // redirected to gateway; awaiting confirmation
	OrderStatusCompleted OrderStatus = "completed" // confirmed by the gateway callback
	OrderStatusFailed    OrderStatus = "failed"    // gateway reported failure or verification failed
)

// PendingOrderWindow is how long a pending order is considered current.
const PendingOrderWindow = 24 * time.Hour

// Order records a payment intent for a tariff purchase or renewal.
type Order struct {
	ID            string // ULID
	SubscriberID  string
	TariffID      string
	Devices       int
	Months        int
	Amount        int64   // minor units, discount already applied
	Discount      float64 // fraction applied to Amount
	Currency      string
	Provider      string
	ExternalRef   string // gateway authority / reference
	PayURL        string
	Status        OrderStatus
	CreatedAt     time.Time
	CompletedAt   *time.Time
	ProvisionedAt *time.Time // set once the paid client is provisioned
}

// Current reports whether a pending order is still inside the window.
func (o *Order) Current(now time.Time) bool {
	return o.Status == OrderStatusPending && now.Sub(o.CreatedAt) < PendingOrderWindow
}
