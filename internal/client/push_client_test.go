package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smsglue/internal/models"
)

func TestPushClient_Notify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "NotifyTextMessage", r.PostForm.Get("verb"))
		assert.Equal(t, "com.acrobits.softphone", r.PostForm.Get("AppId"))
		assert.Equal(t, "device-1", r.PostForm.Get("DeviceToken"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewPushClient(server.URL, 5*time.Second, server.Client(), zap.NewNop())
	err := c.Notify(context.Background(), models.DeviceRegistration{
		DeviceToken: "device-1",
		AppID:       "com.acrobits.softphone",
	})
	require.NoError(t, err)
}

func TestPushClient_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	c := NewPushClient(server.URL, 5*time.Second, server.Client(), zap.NewNop())
	err := c.Notify(context.Background(), models.DeviceRegistration{DeviceToken: "stale", AppID: "app"})
	assert.ErrorIs(t, err, ErrPushRejected)
}
