package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	CacheDriverFile  = "file"
	CacheDriverRedis = "redis"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Logging     LoggingConfig
	Cache       CacheConfig
	Redis       RedisConfig
	Security    SecurityConfig
	Telephony   TelephonyConfig
	Push        PushConfig
	Provision   ProvisionConfig
	Rates       RatesConfig
	Metrics     MetricsConfig
}

type ServerConfig struct {
	Port         int
	BaseURL      string // overrides the request origin in generated hook URLs
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableTLS    bool
	TLSPort      int
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type CacheConfig struct {
	Driver  string
	Dir     string
	Buckets int
}

type RedisConfig struct {
	URL       string
	Password  string
	DB        int
	PoolSize  int
	KeyPrefix string
}

type SecurityConfig struct {
	// SecretKey, when set, replaces the persisted secret. Changing it
	// invalidates every issued token and cached blob.
	SecretKey string
}

type TelephonyConfig struct {
	APIURL      string
	Timeout     time.Duration
	HistoryDays int
	ForwardDays int
}

type PushConfig struct {
	URL         string
	Timeout     time.Duration
	Concurrency int
}

type ProvisionConfig struct {
	TTL time.Duration
}

type RatesConfig struct {
	AppID           string
	URL             string
	RefreshInterval time.Duration
}

type MetricsConfig struct {
	Enabled bool
}

var (
	current *Config
	mu      sync.RWMutex
)

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvInt("PORT", 8080),
			BaseURL:      strings.TrimRight(getEnv("BASE_URL", ""), "/"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			EnableTLS:    getEnvBool("ENABLE_TLS", false),
			TLSPort:      getEnvInt("TLS_PORT", 8443),
			AutoCert:     getEnvBool("AUTO_CERT", false),
			Domain:       getEnv("DOMAIN", "localhost"),
			CertFile:     getEnv("TLS_CERT_FILE", ""),
			KeyFile:      getEnv("TLS_KEY_FILE", ""),
			AutoCertDir:  getEnv("AUTOCERT_DIR", "certs"),
			Email:        getEnv("ACME_EMAIL", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Cache: CacheConfig{
			Driver:  strings.ToLower(getEnv("CACHE_DRIVER", CacheDriverFile)),
			Dir:     getEnv("CACHE", "cache"),
			Buckets: getEnvInt("CACHE_BUCKETS", 1),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			PoolSize:  getEnvInt("REDIS_POOL_SIZE", 10),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "smsglue"),
		},
		Security: SecurityConfig{
			SecretKey: getEnv("KEY", ""),
		},
		Telephony: TelephonyConfig{
			APIURL:      getEnv("TELEPHONY_API_URL", "https://voip.ms/api/v1/rest.php"),
			Timeout:     getEnvDuration("TELEPHONY_TIMEOUT", 30*time.Second),
			HistoryDays: getEnvInt("HISTORY_DAYS", 90),
			ForwardDays: getEnvInt("HISTORY_FORWARD_DAYS", 1),
		},
		Push: PushConfig{
			URL:         getEnv("PUSH_URL", "https://pnm.cloudsoftphone.com/pnm2"),
			Timeout:     getEnvDuration("PUSH_TIMEOUT", 30*time.Second),
			Concurrency: getEnvInt("PUSH_CONCURRENCY", 16),
		},
		Provision: ProvisionConfig{
			TTL: getEnvDuration("PROVISION_TTL", 10*time.Minute),
		},
		Rates: RatesConfig{
			AppID:           getEnv("OPEN_EXCHANGE_RATES", ""),
			URL:             getEnv("RATES_URL", "https://openexchangerates.org/api/latest.json"),
			RefreshInterval: getEnvDuration("RATES_REFRESH_INTERVAL", 24*time.Hour),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
	}

	mu.Lock()
	current = cfg
	mu.Unlock()

	return cfg
}

// Get returns the most recently loaded configuration, loading it on first use.
func Get() *Config {
	mu.RLock()
	cfg := current
	mu.RUnlock()
	if cfg == nil {
		return LoadConfig()
	}
	return cfg
}

// Validate reports configuration values the relay cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Cache.Driver {
	case CacheDriverFile:
		if c.Cache.Dir == "" {
			errs = append(errs, errors.New("CACHE directory must not be empty"))
		}
	case CacheDriverRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis cache driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_DRIVER %q", c.Cache.Driver))
	}

	if c.Cache.Buckets < 1 {
		errs = append(errs, errors.New("CACHE_BUCKETS must be at least 1"))
	}
	if c.Provision.TTL <= 0 {
		errs = append(errs, errors.New("PROVISION_TTL must be positive"))
	}
	if c.Push.Concurrency < 1 {
		errs = append(errs, errors.New("PUSH_CONCURRENCY must be at least 1"))
	}
	if c.Telephony.HistoryDays < 1 {
		errs = append(errs, errors.New("HISTORY_DAYS must be at least 1"))
	}
	if c.Server.EnableTLS && c.Server.AutoCert && c.Server.Domain == "" {
		errs = append(errs, errors.New("DOMAIN is required when AUTO_CERT is enabled"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("10m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
