package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smsglue/internal/bucketing"
	"smsglue/internal/client"
	"smsglue/internal/config"
	"smsglue/internal/encryption"
	"smsglue/internal/hashing"
	"smsglue/internal/repository"
	"smsglue/internal/repository/file"
	redisrepo "smsglue/internal/repository/redis"
	"smsglue/internal/service"
	"smsglue/internal/tls"
	"smsglue/internal/util"
)

const initTimeout = 30 * time.Second

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Storage
	redisClient      *client.RedisClient
	bucketingManager *bucketing.BucketingManager
	store            repository.BlobStore

	// Crypto
	codec   *encryption.Codec
	deriver *hashing.IdentityDeriver

	// Outbound clients
	telephonyClient *client.TelephonyClient
	pushClient      *client.PushClient
	ratesClient     *client.RatesClient

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory loads configuration and initializes every dependency. It fails
// if the cache store or the secret cannot be brought up.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		factory.tlsManager = tls.NewTLSManager(cfg.Server, cfg.IsProduction())
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	if err := factory.initializeStore(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}

	if err := factory.initializeCrypto(ctx); err != nil {
		factory.Close()
		return nil, fmt.Errorf("failed to initialize secret: %w", err)
	}

	factory.initializeClients()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.String("cache_driver", cfg.Cache.Driver),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("exchange_rates", factory.ratesClient != nil),
	)

	return factory, nil
}

// initializeStore opens the configured BlobStore and checks it is writable.
func (f *Factory) initializeStore(ctx context.Context) error {
	switch f.config.Cache.Driver {
	case config.CacheDriverRedis:
		redisClient, err := client.NewRedisClient(f.config, util.Get())
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		f.redisClient = redisClient
		f.store = redisrepo.NewBlobCache(redisClient, f.config.Redis.KeyPrefix)

	default:
		f.bucketingManager = bucketing.NewBucketingManager(f.config.Cache.Buckets)
		store, err := file.NewBlobStore(f.config.Cache.Dir, f.bucketingManager)
		if err != nil {
			return fmt.Errorf("file store: %w", err)
		}
		f.store = store
	}

	if err := f.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cache store health check: %w", err)
	}

	util.Info("Cache store initialized and healthy",
		util.String("driver", f.config.Cache.Driver))
	return nil
}

// initializeCrypto loads or creates the secret and builds the codec and
// identity deriver from it.
func (f *Factory) initializeCrypto(ctx context.Context) error {
	secret, err := encryption.NewSecretManager(f.store, f.config.Security.SecretKey).Load(ctx)
	if err != nil {
		return err
	}

	f.codec = encryption.NewCodec(secret)
	deriver, err := hashing.NewIdentityDeriver(secret)
	if err != nil {
		return err
	}
	f.deriver = deriver
	return nil
}

func (f *Factory) initializeClients() {
	logger := util.Get()

	f.telephonyClient = client.NewTelephonyClient(f.config.Telephony.APIURL, f.config.Telephony.Timeout, nil, logger)
	f.pushClient = client.NewPushClient(f.config.Push.URL, f.config.Push.Timeout, nil, logger)

	if f.config.Rates.AppID != "" {
		f.ratesClient = client.NewRatesClient(f.config.Rates.URL, f.config.Rates.AppID, f.config.Telephony.Timeout, nil)
	} else {
		util.Info("OPEN_EXCHANGE_RATES not set, balances are reported in USD")
	}
}

// ServiceFactory returns the service factory (singleton)
func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		var ratesAPI service.RatesAPI
		if f.ratesClient != nil {
			ratesAPI = f.ratesClient
		}

		f.serviceFactory = service.NewServiceFactory(
			f.config,
			f.store,
			f.codec,
			f.deriver,
			f.telephonyClient,
			f.pushClient,
			ratesAPI,
			service.WallClock(),
			util.Get(),
		)
	}
	return f.serviceFactory
}

// Start launches background refreshers.
func (f *Factory) Start(ctx context.Context) {
	f.ServiceFactory().Start(ctx)
}

// HealthCheck reports whether the cache store is usable.
func (f *Factory) HealthCheck(ctx context.Context) error {
	if f.store == nil {
		return fmt.Errorf("cache store not initialized")
	}
	if f.codec == nil || !f.codec.Ready() {
		return encryption.ErrSecretUnavailable
	}
	return f.store.HealthCheck(ctx)
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.serviceFactory != nil {
			f.serviceFactory.Cleanup()
			util.Info("Service factory cleaned up")
		}

		// The Redis store owns its client and closes it here.
		if f.store != nil {
			if err := f.store.Close(); err != nil {
				util.Error("Failed to close cache store", util.ErrorField(err))
			} else {
				util.Info("Cache store closed")
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) Store() repository.BlobStore {
	return f.store
}
