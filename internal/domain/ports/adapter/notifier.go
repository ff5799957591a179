package adapter

import (
	"context"
	"time"
)

type EventCategory string

const (
	EventProvisioned    EventCategory = "provisioned"
	EventDeprovisioned  EventCategory = "deprovisioned"
	EventRollbackFailed EventCategory = "rollback_failed"
	EventPaymentCreated EventCategory = "payment_created"
	EventPaymentDone    EventCategory = "payment_completed"
	EventTrialStarted   EventCategory = "trial_started"
	EventDivergence     EventCategory = "divergence"
)

// Event describes an operation outcome for side-channel notifiers.
type Event struct {
	Category     EventCategory `json:"category"`
	Outcome      string        `json:"outcome"` // ok | failed | warning
	SubscriberID string        `json:"subscriber_id,omitempty"`
	Server       string        `json:"server,omitempty"`
	Detail       string        `json:"detail,omitempty"`
	At           time.Time     `json:"at"`
}

// Notifier is fire-and-forget: callers ignore its error beyond logging.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}
