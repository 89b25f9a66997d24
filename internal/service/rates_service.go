package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"smsglue/internal/util"
)

const baseCurrency = "USD"

// RatesService keeps USD exchange rates in memory, refreshed periodically
// when an API is configured. Without one only USD is known.
type RatesService struct {
	api      RatesAPI
	interval time.Duration
	logger   *zap.Logger

	mu    sync.RWMutex
	rates map[string]float64

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRatesService(api RatesAPI, interval time.Duration, logger *zap.Logger) *RatesService {
	return &RatesService{
		api:      api,
		interval: interval,
		logger:   logger,
		rates:    map[string]float64{baseCurrency: 1},
	}
}

// Refresh replaces the table with the latest rates. A failed refresh keeps
// the previous table.
func (s *RatesService) Refresh(ctx context.Context) error {
	if s.api == nil {
		return nil
	}
	latest, err := s.api.Latest(ctx)
	if err != nil {
		s.logger.Warn("Exchange rate refresh failed", util.ErrorField(err))
		return err
	}

	rates := make(map[string]float64, len(latest))
	for code, rate := range latest {
		if rate > 0 {
			rates[strings.ToUpper(code)] = rate
		}
	}
	rates[baseCurrency] = 1

	s.mu.Lock()
	s.rates = rates
	s.mu.Unlock()

	s.logger.Info("Exchange rates refreshed", util.Int("currencies", len(rates)))
	return nil
}

// Start loads rates now and then every interval until Stop.
func (s *RatesService) Start(ctx context.Context) {
	if s.api == nil || s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		_ = s.Refresh(ctx)

		if s.interval <= 0 {
			return
		}
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Refresh(ctx)
			}
		}
	}()
}

func (s *RatesService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}

// Rate returns the rate for currency. Unknown or empty currencies fall back
// to USD and report false.
func (s *RatesService) Rate(currency string) (string, float64, bool) {
	code := strings.ToUpper(strings.TrimSpace(currency))

	s.mu.RLock()
	defer s.mu.RUnlock()

	if rate, ok := s.rates[code]; ok {
		return code, rate, true
	}
	return baseCurrency, s.rates[baseCurrency], false
}
