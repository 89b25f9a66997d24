package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smsglue/internal/models"
	"smsglue/internal/repository"
)

func TestDeviceRegistry_ListEmpty(t *testing.T) {
	r := NewDeviceRegistry(newMemoryStore(), newTestCodec(), zap.NewNop())

	devices, err := r.List(context.Background(), "4567-abc")
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}

func TestDeviceRegistry_RegisterDedupsByToken(t *testing.T) {
	ctx := context.Background()
	r := NewDeviceRegistry(newMemoryStore(), newTestCodec(), zap.NewNop())

	require.NoError(t, r.Register(ctx, "4567-abc", "tok-a", "app-1"))
	require.NoError(t, r.Register(ctx, "4567-abc", "tok-b", "app-1"))
	require.NoError(t, r.Register(ctx, "4567-abc", "tok-a", "app-2"))

	devices, err := r.List(ctx, "4567-abc")
	require.NoError(t, err)
	assert.Equal(t, []models.DeviceRegistration{
		{DeviceToken: "tok-b", AppID: "app-1"},
		{DeviceToken: "tok-a", AppID: "app-2"},
	}, devices)
}

func TestDeviceRegistry_IgnoresIncompleteRegistration(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	r := NewDeviceRegistry(store, newTestCodec(), zap.NewNop())

	require.NoError(t, r.Register(ctx, "4567-abc", "", "app"))
	require.NoError(t, r.Register(ctx, "4567-abc", "tok", ""))
	assert.Equal(t, 0, store.saves)
}

func TestDeviceRegistry_CorruptBlobIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	require.NoError(t, store.Save(ctx, repository.NamespaceDevices, "4567-abc", []byte("garbage")))
	r := NewDeviceRegistry(store, newTestCodec(), zap.NewNop())

	devices, err := r.List(ctx, "4567-abc")
	require.NoError(t, err)
	assert.Empty(t, devices)

	require.NoError(t, r.Register(ctx, "4567-abc", "tok", "app"))
	devices, err = r.List(ctx, "4567-abc")
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestDeviceRegistry_BlobIsCiphertext(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	r := NewDeviceRegistry(store, newTestCodec(), zap.NewNop())
	require.NoError(t, r.Register(ctx, "4567-abc", "very-visible-token", "app"))

	data, err := store.Load(ctx, repository.NamespaceDevices, "4567-abc")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "very-visible-token")
}

func TestDeviceRegistry_Prune(t *testing.T) {
	ctx := context.Background()
	r := NewDeviceRegistry(newMemoryStore(), newTestCodec(), zap.NewNop())
	require.NoError(t, r.Register(ctx, "4567-abc", "a", "app"))
	require.NoError(t, r.Register(ctx, "4567-abc", "b", "app"))

	require.NoError(t, r.Prune(ctx, "4567-abc", []models.DeviceRegistration{{DeviceToken: "b", AppID: "app"}}))
	devices, err := r.List(ctx, "4567-abc")
	require.NoError(t, err)
	assert.Equal(t, []models.DeviceRegistration{{DeviceToken: "b", AppID: "app"}}, devices)

	require.NoError(t, r.Prune(ctx, "4567-abc", nil))
	devices, err = r.List(ctx, "4567-abc")
	require.NoError(t, err)
	assert.Empty(t, devices)
}
