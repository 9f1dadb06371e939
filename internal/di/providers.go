package di

import (
	"context"
	"fmt"
	"time"

	"LoanServe/internal/domain/repository"
	"LoanServe/internal/handler/api"
	"LoanServe/internal/handler/ws"
	"LoanServe/internal/model"
	internalrepo "LoanServe/internal/repository"
	"LoanServe/internal/usecase"
	pkgcache "LoanServe/pkg/cache"
	pkgch "LoanServe/pkg/clickhouse"
	"LoanServe/pkg/config"
	pkgkafka "LoanServe/pkg/kafka"
	applogger "LoanServe/pkg/logger"
	"LoanServe/pkg/metrics"
	"LoanServe/pkg/server"
)

// ProvideLogger creates the process logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideClassifier loads the model artifact. A load failure here is fatal:
// main exits rather than serving without a model.
func ProvideClassifier(cfg *config.Config) (repository.Classifier, error) {
	forest, err := model.Load(cfg.Model.Path)
	if err != nil {
		return nil, fmt.Errorf("model load: %w", err)
	}
	if cfg.Model.Name != "" {
		forest.ModelName = cfg.Model.Name
	}
	if cfg.Model.Version != "" {
		forest.ModelVersion = cfg.Model.Version
	}
	return forest, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when auditing is
// enabled, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Audit.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Audit.Host),
		pkgch.WithPort(cfg.Audit.Port),
		pkgch.WithDatabase(cfg.Audit.Database),
		pkgch.WithCredentials(cfg.Audit.User, cfg.Audit.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.Audit.UseHTTP),
		pkgch.WithAsyncInsert(cfg.Audit.AsyncInsert, cfg.Audit.WaitForAsync),
		pkgch.WithTimeouts(cfg.Audit.DialTimeout, cfg.Audit.ReadTimeout, cfg.Audit.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.Audit.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideAuditStore creates the prediction audit store over ClickHouse.
func ProvideAuditStore(chClient *pkgch.Client, cfg *config.Config, logger *applogger.Logger) (repository.AuditStore, error) {
	if chClient == nil {
		return nil, nil
	}

	store := internalrepo.NewCHAuditStore(chClient, cfg.Audit.Table)
	store.SetLogger(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer when events are enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Events.Brokers),
		pkgkafka.WithCompression(cfg.Events.Compression),
		pkgkafka.WithRequiredAcks(cfg.Events.RequiredAcks),
		pkgkafka.WithBatching(cfg.Events.Producer.BatchSize, cfg.Events.Producer.BatchBytes, cfg.Events.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Events.Producer.WriteTimeout, cfg.Events.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Events.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Events.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the prediction-event publisher. When a log topic
// is configured the same producer also carries aggregated error logs.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config, logger *applogger.Logger) repository.Publisher {
	if producer == nil {
		return nil
	}

	pub := internalrepo.NewKafkaPublisher(producer, cfg.Events.Topic)
	if cfg.Events.LogTopic != "" {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Events.LogTopic,
			Publisher:      pub,
		})
	}
	return pub
}

// ProvideCache creates the prediction cache per the configured backend.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	switch cfg.Cache.Backend {
	case "memory":
		return pkgcache.NewMemoryCache(), nil
	case "redis":
		return pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		)
	case "layered":
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, err
		}
		return pkgcache.NewLayeredCache(rc), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// ProvideFeed creates the live prediction feed hub.
func ProvideFeed(cfg *config.Config, logger *applogger.Logger) *ws.Feed {
	if !cfg.Feed.Enabled {
		return nil
	}
	return ws.NewFeed(logger)
}

// ProvidePredictor creates the prediction use case.
func ProvidePredictor(
	clf repository.Classifier,
	cacheSvc pkgcache.Service,
	m repository.Metrics,
	cfg *config.Config,
	logger *applogger.Logger,
) *usecase.Predictor {
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return usecase.NewPredictor(clf, cacheSvc, ttl, m, logger)
}

// ProvideRecorder creates the prediction fan-out recorder.
func ProvideRecorder(
	store repository.AuditStore,
	pub repository.Publisher,
	feed *ws.Feed,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.Recorder {
	var notifier usecase.FeedNotifier
	if feed != nil {
		notifier = feed
	}
	return usecase.NewRecorder(store, pub, notifier, m, logger)
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(
	logger *applogger.Logger,
	predictor *usecase.Predictor,
	recorder *usecase.Recorder,
	store repository.AuditStore,
	feed *ws.Feed,
) *api.PredictEchoHandler {
	var lister api.RecentLister
	if store != nil {
		lister = store
	}
	return api.NewPredictEchoHandler(logger, predictor, recorder, lister, feed)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	handler *api.PredictEchoHandler,
	feed *ws.Feed,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	cacheSvc pkgcache.Service,
) *server.App {
	return server.New(cfg, logger, handler, feed, chClient, producer, cacheSvc)
}
