package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"smsglue/internal/encryption"
	"smsglue/internal/models"
	"smsglue/internal/repository"
	"smsglue/internal/util"
)

// DeviceRegistry keeps the encrypted list of devices registered for an account.
type DeviceRegistry struct {
	store  repository.BlobStore
	codec  *encryption.Codec
	logger *zap.Logger
}

func NewDeviceRegistry(store repository.BlobStore, codec *encryption.Codec, logger *zap.Logger) *DeviceRegistry {
	return &DeviceRegistry{store: store, codec: codec, logger: logger}
}

// Register appends a device and drops earlier entries with the same token.
// Registrations missing a token or app id are ignored.
func (r *DeviceRegistry) Register(ctx context.Context, id, deviceToken, appID string) error {
	if deviceToken == "" || appID == "" {
		r.logger.Debug("Ignoring incomplete device registration", util.Identifier("id", id))
		return nil
	}

	devices, err := r.List(ctx, id)
	if err != nil {
		return err
	}

	updated := make([]models.DeviceRegistration, 0, len(devices)+1)
	for _, d := range devices {
		if d.DeviceToken != deviceToken {
			updated = append(updated, d)
		}
	}
	updated = append(updated, models.DeviceRegistration{DeviceToken: deviceToken, AppID: appID})

	if err := r.save(ctx, id, updated); err != nil {
		return err
	}

	r.logger.Info("Device registered",
		util.Identifier("id", id),
		util.Int("devices", len(updated)))
	return nil
}

// List returns the registered devices. A missing or unreadable blob is an
// empty list; only storage failures are errors.
func (r *DeviceRegistry) List(ctx context.Context, id string) ([]models.DeviceRegistration, error) {
	data, err := r.store.Load(ctx, repository.NamespaceDevices, id)
	if errors.Is(err, repository.ErrBlobNotFound) {
		return []models.DeviceRegistration{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load devices: %w", err)
	}

	var devices []models.DeviceRegistration
	if err := r.codec.DecryptPayload(data, "", &devices); err != nil {
		r.logger.Warn("Discarding unreadable device list", util.Identifier("id", id))
		return []models.DeviceRegistration{}, nil
	}
	if devices == nil {
		devices = []models.DeviceRegistration{}
	}
	return devices, nil
}

// Prune replaces the stored list with survivors.
func (r *DeviceRegistry) Prune(ctx context.Context, id string, survivors []models.DeviceRegistration) error {
	if survivors == nil {
		survivors = []models.DeviceRegistration{}
	}
	return r.save(ctx, id, survivors)
}

func (r *DeviceRegistry) save(ctx context.Context, id string, devices []models.DeviceRegistration) error {
	data, err := r.codec.EncryptPayload(devices, "")
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, repository.NamespaceDevices, id, data); err != nil {
		return fmt.Errorf("failed to save devices: %w", err)
	}
	return nil
}
