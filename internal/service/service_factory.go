package service

import (
	"context"

	"go.uber.org/zap"

	"smsglue/internal/config"
	"smsglue/internal/encryption"
	"smsglue/internal/hashing"
	"smsglue/internal/repository"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg       *config.Config
	store     repository.BlobStore
	codec     *encryption.Codec
	deriver   *hashing.IdentityDeriver
	telephony TelephonyAPI
	push      PushAPI
	ratesAPI  RatesAPI
	scheduler Scheduler
	logger    *zap.Logger

	accountService *AccountService
	registry       *DeviceRegistry
	notifier       *Notifier
	messageSync    *MessageSync
	sender         *Sender
	provisioner    *Provisioner
	timer          *ProvisionTimer
	rates          *RatesService
}

// NewServiceFactory creates a new service factory. ratesAPI may be nil when
// no exchange-rate key is configured.
func NewServiceFactory(
	cfg *config.Config,
	store repository.BlobStore,
	codec *encryption.Codec,
	deriver *hashing.IdentityDeriver,
	telephony TelephonyAPI,
	push PushAPI,
	ratesAPI RatesAPI,
	scheduler Scheduler,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:       cfg,
		store:     store,
		codec:     codec,
		deriver:   deriver,
		telephony: telephony,
		push:      push,
		ratesAPI:  ratesAPI,
		scheduler: scheduler,
		logger:    logger,
	}
}

// AccountService returns the account service instance (singleton)
func (f *ServiceFactory) AccountService() *AccountService {
	if f.accountService == nil {
		f.accountService = NewAccountService(
			f.codec,
			f.deriver,
			f.telephony,
			f.Provisioner(),
			f.RatesService(),
			f.cfg.Server.BaseURL,
			f.logger.Named("account"),
		)
	}
	return f.accountService
}

func (f *ServiceFactory) DeviceRegistry() *DeviceRegistry {
	if f.registry == nil {
		f.registry = NewDeviceRegistry(f.store, f.codec, f.logger.Named("devices"))
	}
	return f.registry
}

func (f *ServiceFactory) Notifier() *Notifier {
	if f.notifier == nil {
		f.notifier = NewNotifier(f.DeviceRegistry(), f.push, f.cfg.Push.Concurrency, f.logger.Named("notifier"))
	}
	return f.notifier
}

func (f *ServiceFactory) MessageSync() *MessageSync {
	if f.messageSync == nil {
		f.messageSync = NewMessageSync(
			f.store,
			f.codec,
			f.telephony,
			f.cfg.Telephony.HistoryDays,
			f.cfg.Telephony.ForwardDays,
			f.logger.Named("messages"),
		)
	}
	return f.messageSync
}

func (f *ServiceFactory) Sender() *Sender {
	if f.sender == nil {
		f.sender = NewSender(f.telephony, f.logger.Named("sender"))
	}
	return f.sender
}

func (f *ServiceFactory) ProvisionTimer() *ProvisionTimer {
	if f.timer == nil {
		f.timer = NewProvisionTimer(f.scheduler)
	}
	return f.timer
}

func (f *ServiceFactory) Provisioner() *Provisioner {
	if f.provisioner == nil {
		f.provisioner = NewProvisioner(f.store, f.codec, f.ProvisionTimer(), f.cfg.Provision.TTL, f.logger.Named("provision"))
	}
	return f.provisioner
}

func (f *ServiceFactory) RatesService() *RatesService {
	if f.rates == nil {
		f.rates = NewRatesService(f.ratesAPI, f.cfg.Rates.RefreshInterval, f.logger.Named("rates"))
	}
	return f.rates
}

// Start launches background work.
func (f *ServiceFactory) Start(ctx context.Context) {
	f.RatesService().Start(ctx)
}

// Cleanup stops background work and pending timers.
func (f *ServiceFactory) Cleanup() {
	if f.rates != nil {
		f.rates.Stop()
	}
	if f.timer != nil {
		f.timer.StopAll()
	}
	if f.codec != nil {
		f.codec.ClearCache()
	}
}
