package model

import (
	"math"
	"time"

	"vpn-subscription/internal/domain"
)

// Tariff is a purchasable plan defining device/traffic limits and a monthly
// price per device.
type Tariff struct {
	ID             string
	Name           string
	PricePerMonth  int64 // per device, minor units
	DeviceLimit    int   // default device count when the caller gives none
	TrafficLimitGB int64 // 0 = unlimited
	Active         bool
	CreatedAt      time.Time
}

func (t *Tariff) IsZero() bool { return t == nil || t.ID == "" }

// NewTariff validates and constructs a tariff.
func NewTariff(id, name string, pricePerMonth int64, deviceLimit int, trafficGB int64) (*Tariff, error) {
	if id == "" || name == "" || pricePerMonth < 0 || deviceLimit <= 0 || trafficGB < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Tariff{
		ID:             id,
		Name:           name,
		PricePerMonth:  pricePerMonth,
		DeviceLimit:    deviceLimit,
		TrafficLimitGB: trafficGB,
		Active:         true,
		CreatedAt:      time.Now(),
	}, nil
}

// ComputeAmount returns price × devices × months with discount applied,
// rounded to the nearest minor unit. discount is clamped to [0,1].
func ComputeAmount(pricePerMonth int64, devices, months int, discount float64) int64 {
	if pricePerMonth <= 0 || devices <= 0 || months <= 0 {
		return 0
	}
	if discount < 0 {
		discount = 0
	}
	if discount > 1 {
		discount = 1
	}
	base := float64(pricePerMonth) * float64(devices) * float64(months)
	return int64(math.Round(base * (1 - discount)))
}
