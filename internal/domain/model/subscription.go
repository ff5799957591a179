package model

import (
	"time"

	"vpn-subscription/internal/domain"
)

// PaymentStatus is the subscription state of a subscriber.
type PaymentStatus string

const (
	PaymentStatusNone       PaymentStatus = "none"
	PaymentStatusTestPeriod PaymentStatus = "test_period"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusUnpaid     PaymentStatus = "unpaid"
)

const (
	TrialDuration = 24 * time.Hour
	UnpaidGrace   = 5 * 24 * time.Hour
	MonthDuration = 30 * 24 * time.Hour

	// AppliedOrderHistory bounds Subscriber.AppliedOrderIDs.
	AppliedOrderHistory = 20
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusNone, PaymentStatusTestPeriod, PaymentStatusPaid, PaymentStatusUnpaid:
		return true
	}
	return false
}

// Subscriber is one end customer and its provisioning state.
type Subscriber struct {
	ID             string
	ClientID       *string // panel client identity; set once provisioned
	SubToken       string  // public subscription-link token, survives teardown
	Label          string
	TariffID       *string
	ServerID       *string
	DeviceLimit    int
	TrafficLimitGB int64
	ExpiresAt      *time.Time

	PaymentStatus   PaymentStatus
	TestPeriodStart *time.Time
	TestPeriodEnd   *time.Time
	UnpaidSince     *time.Time
	Discount        float64

	// AppliedOrderIDs lists the most recent paid orders already granted,
	// newest last. It survives teardown.
	AppliedOrderIDs []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubscriber creates a registered subscriber with no provisioning fields.
func NewSubscriber(id, label string) (*Subscriber, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscriber{
		ID:            id,
		Label:         label,
		PaymentStatus: PaymentStatusNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *Subscriber) IsZero() bool { return s == nil || s.ID == "" }

func (s *Subscriber) Provisioned() bool { return s != nil && s.ClientID != nil && *s.ClientID != "" }

// Active reports whether the subscriber currently has usable service.
func (s *Subscriber) Active(now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	switch s.PaymentStatus {
	case PaymentStatusPaid, PaymentStatusTestPeriod:
		return now.Before(*s.ExpiresAt)
	}
	return false
}

// Clone returns a deep copy so callers can mutate without aliasing the stored record.
func (s *Subscriber) Clone() *Subscriber {
	if s == nil {
		return nil
	}
	cp := *s
	cp.ClientID = cloneStr(s.ClientID)
	cp.TariffID = cloneStr(s.TariffID)
	cp.ServerID = cloneStr(s.ServerID)
	cp.ExpiresAt = cloneTime(s.ExpiresAt)
	cp.TestPeriodStart = cloneTime(s.TestPeriodStart)
	cp.TestPeriodEnd = cloneTime(s.TestPeriodEnd)
	cp.UnpaidSince = cloneTime(s.UnpaidSince)
	if s.AppliedOrderIDs != nil {
		cp.AppliedOrderIDs = append([]string(nil), s.AppliedOrderIDs...)
	}
	return &cp
}

// ClearSubscription wipes every provisioning field. ID, SubToken, Label and
// Discount are identity-stable and kept.
func (s *Subscriber) ClearSubscription(now time.Time) {
	s.ClientID = nil
	s.TariffID = nil
	s.ServerID = nil
	s.DeviceLimit = 0
	s.TrafficLimitGB = 0
	s.ExpiresAt = nil
	s.PaymentStatus = PaymentStatusNone
	s.TestPeriodStart = nil
	s.TestPeriodEnd = nil
	s.UnpaidSince = nil
	s.UpdatedAt = now
}

// HasAppliedOrder reports whether orderID already extended this subscriber.
func (s *Subscriber) HasAppliedOrder(orderID string) bool {
	for _, id := range s.AppliedOrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

// RecordAppliedOrder appends orderID, keeping the newest AppliedOrderHistory.
func (s *Subscriber) RecordAppliedOrder(orderID string) {
	if orderID == "" || s.HasAppliedOrder(orderID) {
		return
	}
	s.AppliedOrderIDs = append(s.AppliedOrderIDs, orderID)
	if n := len(s.AppliedOrderIDs); n > AppliedOrderHistory {
		s.AppliedOrderIDs = append([]string(nil), s.AppliedOrderIDs[n-AppliedOrderHistory:]...)
	}
}

// Transition is the outcome of evaluating a subscriber at a point in time.
type Transition string

const (
	TransitionNone     Transition = "none"
	TransitionToUnpaid Transition = "to_unpaid"
	TransitionDelete   Transition = "delete"
)

// Evaluate decides which time-based transition is due at now.
// It does not mutate the subscriber.
func (s *Subscriber) Evaluate(now time.Time) Transition {
	switch s.PaymentStatus {
	case PaymentStatusTestPeriod:
		if s.TestPeriodEnd != nil && !now.Before(*s.TestPeriodEnd) {
			return TransitionToUnpaid
		}
	case PaymentStatusPaid:
		if s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
			return TransitionToUnpaid
		}
	case PaymentStatusUnpaid:
		if s.UnpaidSince != nil && now.Sub(*s.UnpaidSince) >= UnpaidGrace {
			return TransitionDelete
		}
	}
	return TransitionNone
}

// MarkUnpaid applies the demotion to unpaid.
func (s *Subscriber) MarkUnpaid(now time.Time) {
	t := now
	s.PaymentStatus = PaymentStatusUnpaid
	s.UnpaidSince = &t
	s.UpdatedAt = now
}

// TrialTerms returns the test-period window starting at now.
func TrialTerms(now time.Time) (start, end time.Time) {
	return now, now.Add(TrialDuration)
}

// RenewedExpiry computes the new expiry for a paid extension of months.
// A paid subscription that is still running extends from its current expiry
// so unused paid time is kept; anything else starts from now.
func (s *Subscriber) RenewedExpiry(months int, now time.Time) time.Time {
	if months <= 0 {
		months = 1
	}
	base := now
	if s.PaymentStatus == PaymentStatusPaid && s.ExpiresAt != nil && s.ExpiresAt.After(now) {
		base = *s.ExpiresAt
	}
	return base.Add(time.Duration(months) * MonthDuration)
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StrPtr is a small helper for optional string fields.
func StrPtr(s string) *string { return &s }

// TimePtr is a small helper for optional time fields.
func TimePtr(t time.Time) *time.Time { return &t }
