package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRates struct {
	rates map[string]float64
	err   error
	calls atomic.Int32
}

func (s *stubRates) Latest(context.Context) (map[string]float64, error) {
	s.calls.Add(1)
	return s.rates, s.err
}

func TestRatesService_DefaultsToUSD(t *testing.T) {
	s := NewRatesService(nil, time.Hour, zap.NewNop())

	code, rate, ok := s.Rate("usd")
	assert.Equal(t, "USD", code)
	assert.Equal(t, 1.0, rate)
	assert.True(t, ok)

	code, rate, ok = s.Rate("CAD")
	assert.Equal(t, "USD", code)
	assert.Equal(t, 1.0, rate)
	assert.False(t, ok)

	require.NoError(t, s.Refresh(context.Background()))
}

func TestRatesService_Refresh(t *testing.T) {
	api := &stubRates{rates: map[string]float64{"USD": 1, "cad": 1.35, "BAD": 0}}
	s := NewRatesService(api, time.Hour, zap.NewNop())

	require.NoError(t, s.Refresh(context.Background()))
	code, rate, ok := s.Rate("cad")
	assert.Equal(t, "CAD", code)
	assert.Equal(t, 1.35, rate)
	assert.True(t, ok)

	_, _, ok = s.Rate("BAD")
	assert.False(t, ok)
}

func TestRatesService_FailedRefreshKeepsTable(t *testing.T) {
	api := &stubRates{rates: map[string]float64{"USD": 1, "EUR": 0.9}}
	s := NewRatesService(api, time.Hour, zap.NewNop())
	require.NoError(t, s.Refresh(context.Background()))

	api.rates, api.err = nil, errors.New("quota exceeded")
	assert.Error(t, s.Refresh(context.Background()))

	_, rate, ok := s.Rate("EUR")
	assert.True(t, ok)
	assert.Equal(t, 0.9, rate)
}

func TestRatesService_StartStop(t *testing.T) {
	api := &stubRates{rates: map[string]float64{"USD": 1}}
	s := NewRatesService(api, 10*time.Millisecond, zap.NewNop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return api.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	calls := api.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, api.calls.Load())
}
