package apiv1

import (
	"time"

	"vpn-subscription/internal/domain/model"
)

func toSubscriber(s *model.Subscriber) Subscriber {
	return Subscriber{
		Id:             s.ID,
		Label:          optString(s.Label),
		ClientId:       s.ClientID,
		TariffId:       s.TariffID,
		ServerId:       s.ServerID,
		DeviceLimit:    s.DeviceLimit,
		TrafficLimitGb: s.TrafficLimitGB,
		ExpiresAt:      epochMillis(s.ExpiresAt),
		PaymentStatus:  SubscriberPaymentStatus(s.PaymentStatus),
		TestPeriodEnd:  epochMillis(s.TestPeriodEnd),
		UnpaidSince:    epochMillis(s.UnpaidSince),
		Discount:       s.Discount,
	}
}

func toTariff(t *model.Tariff) Tariff {
	active := t.Active
	traffic := t.TrafficLimitGB
	return Tariff{
		Id:             t.ID,
		Name:           t.Name,
		PricePerMonth:  t.PricePerMonth,
		DeviceLimit:    t.DeviceLimit,
		TrafficLimitGb: &traffic,
		Active:         &active,
	}
}

// toServer never exposes the password or the session token.
func (s *Handlers) toServer(srv *model.Server) Server {
	out := Server{
		Id:         srv.ID,
		Name:       srv.Name,
		Scheme:     optString(srv.Scheme),
		Host:       srv.Host,
		Port:       srv.Port,
		BasePath:   optString(srv.BasePath),
		Username:   optString(srv.Username),
		InboundId:  srv.InboundID,
		Active:     srv.Active,
		SubBaseUrl: optString(srv.SubBaseURL),
		HasSession: srv.HasLiveSession(s.now()),
	}
	if len(srv.TariffIDs) > 0 {
		ids := append([]string(nil), srv.TariffIDs...)
		out.TariffIds = &ids
	}
	return out
}

func fromServerInput(in ServerInput, defaultActive bool) *model.Server {
	srv := &model.Server{
		Name:       in.Name,
		Host:       in.Host,
		Port:       in.Port,
		BasePath:   deref(in.BasePath),
		Username:   deref(in.Username),
		Password:   deref(in.Password),
		InboundID:  in.InboundId,
		Active:     defaultActive,
		SubBaseURL: deref(in.SubBaseUrl),
	}
	if in.Scheme != nil {
		srv.Scheme = string(*in.Scheme)
	}
	if in.Active != nil {
		srv.Active = *in.Active
	}
	if in.TariffIds != nil {
		srv.TariffIDs = *in.TariffIds
	}
	return srv
}

func toRollback(e *model.RollbackEntry) RollbackEntry {
	return RollbackEntry{
		Id:             e.ID,
		Operation:      e.Operation,
		SubscriberId:   e.SubscriberID,
		ServerId:       optString(e.ServerID),
		ClientId:       optString(e.ClientID),
		OriginalError:  optString(e.OriginalError),
		RollbackError:  optString(e.RollbackError),
		Status:         RollbackEntryStatus(e.Status),
		CreatedAt:      e.CreatedAt,
		ResolvedAt:     e.ResolvedAt,
		ResolutionNote: optString(e.ResolutionNote),
	}
}

func epochMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
