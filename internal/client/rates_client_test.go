package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatesClient_Latest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "app-123", r.URL.Query().Get("app_id"))
		w.Write([]byte(`{"base":"USD","rates":{"USD":1,"CAD":1.35,"EUR":0.92}}`))
	}))
	defer server.Close()

	c := NewRatesClient(server.URL, "app-123", 5*time.Second, server.Client())
	rates, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.35, rates["CAD"])
	assert.Len(t, rates, 3)
}

func TestRatesClient_RejectsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":true}`))
	}))
	defer server.Close()

	c := NewRatesClient(server.URL, "bad", 5*time.Second, server.Client())
	_, err := c.Latest(context.Background())
	assert.Error(t, err)
}
