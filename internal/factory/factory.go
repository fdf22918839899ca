package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"golang.org/x/sync/errgroup"

	"repeater-directory/internal/audit"
	"repeater-directory/internal/auth"
	"repeater-directory/internal/captcha"
	"repeater-directory/internal/client"
	"repeater-directory/internal/config"
	"repeater-directory/internal/directory"
	"repeater-directory/internal/encryption"
	"repeater-directory/internal/handler"
	"repeater-directory/internal/hashing"
	"repeater-directory/internal/ratelimit"
	redisrepo "repeater-directory/internal/repository/redis"
	"repeater-directory/internal/repository/scylla"
	"repeater-directory/internal/search"
	"repeater-directory/internal/service"
	"repeater-directory/internal/tls"
	"repeater-directory/internal/token"
	"repeater-directory/internal/util"
)

// Factory wires and owns the lifecycle of all application
// dependencies.
type Factory struct {
	config     *config.Config
	tlsManager *tls.Manager

	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	hasher     *hashing.Hasher
	encryption *encryption.Manager
	codec      *token.Codec
	policy     token.Policy

	userRepository     scylla.UserRepository
	requestRepository  scylla.RequestRepository
	repeaterRepository scylla.RepeaterRepository

	auditRecorder *audit.Recorder
	dir           directory.Directory
	gate          *auth.Gate
	handshake     *auth.Handshake
	limiter       *ratelimit.Limiter
	guestGate     *service.GuestGate
	repeaterIndex *search.RepeaterIndex

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory loads configuration and initializes every dependency.
// In production any failed client is fatal; in development missing
// backends degrade to warnings so a partial stack still boots.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	f := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		f.tlsManager = tls.NewManager(cfg.Server)
	}

	if err := f.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}
	f.initializeCore()

	util.Info("Factory initialized",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)
	return f, nil
}

func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	if rc, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = rc
		if err := rc.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		}
	}

	if sc, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = sc
	}

	// Kafka, ClickHouse and Elasticsearch are best-effort in every
	// environment: audit shipping and search degrade, auth does not.
	if kp, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer unavailable, audit events stay local", util.ErrorField(err))
	} else {
		f.kafkaProducer = kp
	}
	if ch, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		util.Warn("ClickHouse unavailable, audit events not persisted", util.ErrorField(err))
	} else {
		f.clickhouseClient = ch
	}
	if es, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
		util.Warn("Elasticsearch unavailable, repeater search disabled", util.ErrorField(err))
	} else {
		f.esClient = es
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}
	return nil
}

func (f *Factory) initializeCore() {
	f.hasher = hashing.NewHasher(f.config)

	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			util.Warn("Could not load AWS config, falling back to local encryption", util.ErrorField(err))
		} else {
			kmsClient = kms.NewFromConfig(awsCfg)
		}
	}
	f.encryption = encryption.NewManager(f.config, kmsClient)

	keys := token.NewKeyProvider(f.config.Session.SigningSecret)
	f.codec = token.NewCodec(keys)
	f.policy = token.NewPolicy(f.config.Session)

	f.auditRecorder = audit.NewRecorder(f.kafkaProducer, f.clickhouseClient, util.Get())

	if f.scyllaClient != nil {
		f.userRepository = scylla.NewUserRepository(f.scyllaClient, util.Get())
		f.requestRepository = scylla.NewRequestRepository(f.scyllaClient, util.Get())
		f.repeaterRepository = scylla.NewRepeaterRepository(f.scyllaClient, util.Get())
	}

	superadmin := directory.NewSuperadmin(f.config.Superadmin)
	persisted := directory.NewPersisted(f.userRepository, f.hasher)
	f.dir = directory.NewComposite(superadmin, persisted)

	f.gate = auth.NewGate(f.codec, f.policy, f.dir, f.auditRecorder, util.Get())
	f.handshake = auth.NewHandshake(f.dir, f.codec, f.policy, f.config.Session, f.auditRecorder, util.Get())

	var store ratelimit.Store
	if f.redisClient != nil {
		store = redisrepo.NewRateLimitStore(f.redisClient, util.Get())
	}
	f.limiter = ratelimit.NewLimiter(store, f.config.RateLimit, util.Get())

	verifier := captcha.NewTurnstile(f.config.Turnstile, util.Get())
	f.guestGate = service.NewGuestGate(verifier, f.limiter, f.requestRepository,
		f.encryption, f.auditRecorder, util.Get())

	f.repeaterIndex = search.NewRepeaterIndex(f.esClient, util.Get())
}

// Router assembles the HTTP surface from the wired components.
func (f *Factory) Router() *handler.RouterDeps {
	return &handler.RouterDeps{
		Gate:      f.gate,
		Auth:      handler.NewAuthHandler(f.handshake, util.Get()),
		Users:     handler.NewUserHandler(f.userRepository, f.hasher, util.Get()),
		Repeaters: handler.NewRepeaterHandler(f.repeaterRepository, f.repeaterIndex, util.Get()),
		Requests:  handler.NewRequestHandler(f.guestGate, util.Get()),
		Health:    f.Ready,
		Logger:    util.Get(),
	}
}

// Ready checks the hard dependencies concurrently. Kafka, ClickHouse
// and Elasticsearch are excluded: the service serves without them.
func (f *Factory) Ready(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if f.redisClient == nil {
			return fmt.Errorf("redis client not initialized")
		}
		return f.redisClient.HealthCheck(ctx)
	})
	g.Go(func() error {
		if f.scyllaClient == nil {
			return fmt.Errorf("scylla client not initialized")
		}
		return f.scyllaClient.HealthCheck(ctx)
	})

	return g.Wait()
}

// HealthCheck reports per-dependency status, optional backends
// included.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)
	var mu sync.Mutex
	record := func(name string, err error) {
		mu.Lock()
		healthErrors[name] = err
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		if f.redisClient == nil {
			record("redis", fmt.Errorf("not initialized"))
		} else if err := f.redisClient.HealthCheck(ctx); err != nil {
			record("redis", err)
		}
		return nil
	})
	g.Go(func() error {
		if f.scyllaClient == nil {
			record("scylla", fmt.Errorf("not initialized"))
		} else if err := f.scyllaClient.HealthCheck(ctx); err != nil {
			record("scylla", err)
		}
		return nil
	})
	g.Go(func() error {
		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
				record("kafka", err)
			}
		}
		return nil
	})
	g.Go(func() error {
		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
				record("clickhouse", err)
			}
		}
		return nil
	})
	g.Go(func() error {
		if f.esClient != nil {
			if err := f.esClient.HealthCheck(ctx); err != nil {
				record("elasticsearch", err)
			}
		}
		return nil
	})
	_ = g.Wait()

	return healthErrors
}

func (f *Factory) Config() *config.Config   { return f.config }
func (f *Factory) TLSManager() *tls.Manager { return f.tlsManager }
func (f *Factory) Limiter() *ratelimit.Limiter {
	return f.limiter
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory")

		// Stop accepting audit events and flush the queue before the
		// sinks go away.
		if f.auditRecorder != nil {
			f.auditRecorder.Close()
		}

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			}
		}
		if f.esClient != nil {
			f.esClient.Close()
		}
		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			}
		}
		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}
		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			}
		}
		if f.encryption != nil {
			f.encryption.ClearCache()
		}

		util.Sync()
	})
	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}
