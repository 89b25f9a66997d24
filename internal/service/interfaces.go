package service

import (
	"context"
	"time"

	"smsglue/internal/client"
	"smsglue/internal/models"
)

// TelephonyAPI is the subset of the voip.ms API the relay uses.
type TelephonyAPI interface {
	SetSMS(ctx context.Context, creds models.AccountCredentials, callbackURL string) error
	SendSMS(ctx context.Context, creds models.AccountCredentials, dst, message string) error
	GetSMS(ctx context.Context, creds models.AccountCredentials, from, to time.Time) ([]client.InboundSMS, error)
	GetBalance(ctx context.Context, creds models.AccountCredentials) (float64, error)
}

// PushAPI delivers one wake-up push to a device.
type PushAPI interface {
	Notify(ctx context.Context, device models.DeviceRegistration) error
}

// RatesAPI returns currency code to USD exchange rates.
type RatesAPI interface {
	Latest(ctx context.Context) (map[string]float64, error)
}
