package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "")
	t.Setenv("PROVISION_TTL", "")
	t.Setenv("PORT", "")

	cfg := LoadConfig()

	assert.Equal(t, CacheDriverFile, cfg.Cache.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Provision.TTL)
	assert.Equal(t, 90, cfg.Telephony.HistoryDays)
	assert.Equal(t, 1, cfg.Telephony.ForwardDays)
	assert.Equal(t, 30*time.Second, cfg.Push.Timeout)
	assert.Equal(t, ":8080", cfg.GetServerAddress())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("BASE_URL", "https://glue.example.com/")
	t.Setenv("CACHE_DRIVER", "REDIS")
	t.Setenv("PROVISION_TTL", "120")
	t.Setenv("PUSH_TIMEOUT", "5s")
	t.Setenv("ENABLE_TLS", "true")

	cfg := LoadConfig()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://glue.example.com", cfg.Server.BaseURL)
	assert.Equal(t, CacheDriverRedis, cfg.Cache.Driver)
	assert.Equal(t, 2*time.Minute, cfg.Provision.TTL)
	assert.Equal(t, 5*time.Second, cfg.Push.Timeout)
	assert.True(t, cfg.Server.EnableTLS)
	assert.Same(t, cfg, Get())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := LoadConfig()
	cfg.Cache.Driver = "memcached"
	cfg.Provision.TTL = 0
	cfg.Push.Concurrency = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown CACHE_DRIVER")
	assert.Contains(t, err.Error(), "PROVISION_TTL")
	assert.Contains(t, err.Error(), "PUSH_CONCURRENCY")
}
