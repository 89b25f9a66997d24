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

var testCreds = models.AccountCredentials{
	Username: "me@example.com",
	Password: "password1",
	DID:      "5551234567",
}

func newTelephonyServer(t *testing.T, handler http.HandlerFunc) *TelephonyClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewTelephonyClient(server.URL, 5*time.Second, server.Client(), zap.NewNop())
}

func TestTelephonyClient_SetSMS(t *testing.T) {
	c := newTelephonyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "me@example.com", q.Get("api_username"))
		assert.Equal(t, "password1", q.Get("api_password"))
		assert.Equal(t, "5551234567", q.Get("did"))
		assert.Equal(t, "setSMS", q.Get("method"))
		assert.Equal(t, "1", q.Get("enable"))
		assert.Equal(t, "1", q.Get("url_callback_enable"))
		assert.Equal(t, "1", q.Get("url_callback_retry"))
		assert.Equal(t, "https://glue.example.com/notify/4567-abc", q.Get("url_callback"))
		w.Write([]byte(`{"status":"success"}`))
	})

	require.NoError(t, c.SetSMS(context.Background(), testCreds, "https://glue.example.com/notify/4567-abc"))
}

func TestTelephonyClient_NonSuccessStatus(t *testing.T) {
	c := newTelephonyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"invalid_credentials"}`))
	})

	err := c.SendSMS(context.Background(), testCreds, "5557654321", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTelephonyStatus)
}

func TestTelephonyClient_UnparseableBody(t *testing.T) {
	c := newTelephonyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	})

	err := c.SendSMS(context.Background(), testCreds, "5557654321", "hi")
	assert.ErrorIs(t, err, ErrTelephonyStatus)
}

func TestTelephonyClient_SendSMS(t *testing.T) {
	c := newTelephonyServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "sendSMS", q.Get("method"))
		assert.Equal(t, "5557654321", q.Get("dst"))
		assert.Equal(t, "hello there", q.Get("message"))
		w.Write([]byte(`{"status":"success","sms":"123"}`))
	})

	require.NoError(t, c.SendSMS(context.Background(), testCreds, "5557654321", "hello there"))
}

func TestTelephonyClient_GetSMS(t *testing.T) {
	from := time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 30, 0, 0, time.UTC)

	c := newTelephonyServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "getSMS", q.Get("method"))
		assert.Equal(t, "2024-01-02", q.Get("from"))
		assert.Equal(t, "2024-04-01", q.Get("to"))
		assert.Equal(t, "9999", q.Get("limit"))
		assert.Equal(t, "1", q.Get("type"))
		assert.Equal(t, "-1", q.Get("timezone"))
		w.Write([]byte(`{"status":"success","sms":[
			{"id":"101","date":"2024-03-01 10:00:00","type":"1","did":"5551234567","contact":"5557654321","message":"first"},
			{"id":102,"date":"2024-03-01 10:05:00","type":1,"did":5551234567,"contact":"5557654321","message":"second"}
		]}`))
	})

	sms, err := c.GetSMS(context.Background(), testCreds, from, to)
	require.NoError(t, err)
	require.Len(t, sms, 2)
	assert.Equal(t, FlexString("101"), sms[0].ID)
	assert.Equal(t, FlexString("102"), sms[1].ID)
	assert.Equal(t, FlexString("5551234567"), sms[1].DID)
	assert.Equal(t, "second", sms[1].Message)
}

func TestTelephonyClient_GetBalance(t *testing.T) {
	c := newTelephonyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getBalance", r.URL.Query().Get("method"))
		w.Write([]byte(`{"status":"success","balance":{"current_balance":"12.3456"}}`))
	})

	balance, err := c.GetBalance(context.Background(), testCreds)
	require.NoError(t, err)
	assert.InDelta(t, 12.3456, balance, 1e-9)
}

func TestTelephonyClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewTelephonyClient(url, time.Second, nil, zap.NewNop())
	err := c.SetSMS(context.Background(), testCreds, "https://x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTelephonyStatus)
}
