package di

import (
	"context"
	"fmt"
	"time"

	"DerivBot/internal/domain/repository"
	"DerivBot/internal/domain/service"
	"DerivBot/internal/handler/api"
	internalrepo "DerivBot/internal/repository"
	icache "DerivBot/internal/service/cache"
	"DerivBot/internal/service/deriv"
	"DerivBot/internal/service/notify"
	"DerivBot/internal/service/ratelimit"
	"DerivBot/internal/services/pattern"
	"DerivBot/internal/usecase"
	"DerivBot/pkg/cache"
	pkgch "DerivBot/pkg/clickhouse"
	"DerivBot/pkg/config"
	xhttp "DerivBot/pkg/http"
	pkgkafka "DerivBot/pkg/kafka"
	"DerivBot/pkg/logger"
	"DerivBot/pkg/metrics"
	"DerivBot/pkg/server"
)

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideNotifier fans out to email and telegram behind a per-subject rate limit.
// It builds its own logger so the error digest can use it as a sink.
func ProvideNotifier(cfg *config.Config) (repository.Notifier, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	log = log.With(logger.String("component", "notify"))

	email := notify.NewEmailNotifier(notify.EmailConfig{
		Host:     cfg.Notify.Email.SMTPHost,
		Port:     cfg.Notify.Email.SMTPPort,
		Sender:   cfg.Notify.Email.Sender,
		Password: cfg.Notify.Email.Password,
		Receiver: cfg.Notify.Email.Receiver,
	})
	telegram := notify.NewTelegramNotifier(
		cfg.Notify.Telegram.APIURL,
		cfg.Notify.Telegram.BotToken,
		cfg.Notify.Telegram.ChatID,
		xhttp.NewClient(xhttp.WithTimeout(cfg.Notify.Timeout)),
	)
	if !email.Enabled() && !telegram.Enabled() {
		log.Warn("no notification channel configured")
	}

	limiter := ratelimit.New(cfg.Notify.RateBurst, cfg.Notify.RatePerMin/60)
	return notify.NewThrottled(notify.NewMulti(cfg.Notify.Timeout, email, telegram), limiter, log), nil
}

// ProvideLogger creates the application logger, with the error digest attached when enabled.
func ProvideLogger(cfg *config.Config, notifier repository.Notifier) (*logger.Logger, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Notify.ErrorDigest.Enabled {
		log.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Notify.ErrorDigest.Interval,
			CountThreshold: cfg.Notify.ErrorDigest.Threshold,
			Subject:        fmt.Sprintf("DerivBot %s error digest", cfg.Environment),
			Sink:           notifier,
			SendTimeout:    cfg.Notify.Timeout,
		})
	}
	return log.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideDerivClient creates the venue client. It is not connected yet.
func ProvideDerivClient(cfg *config.Config, log *logger.Logger, m repository.Metrics) *deriv.Client {
	clientLog := log.With(logger.String("component", "deriv"))
	return deriv.NewClient(deriv.ClientConfig{
		Endpoint:       cfg.Deriv.Endpoint,
		AppID:          cfg.Deriv.AppID,
		APIToken:       cfg.Deriv.APIToken,
		ReconnectDelay: cfg.Deriv.ReconnectDelay,
		RequestTimeout: cfg.Deriv.RequestTimeout,
		Symbol:         cfg.Trading.Symbol,
		Stake:          cfg.Trading.Stake,
		Currency:       cfg.Trading.Currency,
		Duration:       cfg.Trading.Duration,
		DurationUnit:   cfg.Trading.DurationUnit,
		Granularity:    cfg.Trading.Granularity,
		BarCount:       cfg.Trading.BarCount,
	}, clientLog,
		deriv.WithMetrics(m),
		deriv.WithSessionOptions(
			deriv.WithHandshakeTimeout(cfg.Deriv.HandshakeTimeout),
			deriv.WithWriteTimeout(cfg.Deriv.WriteTimeout),
			deriv.WithPingInterval(cfg.Deriv.PingInterval),
			deriv.WithSessionLogger(clientLog),
		),
	)
}

// ProvideRedisCache connects to Redis when it backs the document store, and returns nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if cfg.Storage.Backend != "redis" {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPingTimeout(cfg.Redis.PingTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideDocumentStore selects where the learning, trade and bar documents live.
func ProvideDocumentStore(cfg *config.Config, rc *cache.RedisCache, log *logger.Logger) repository.DocumentStore {
	switch cfg.Storage.Backend {
	case "redis":
		return internalrepo.NewRedisStore(rc, log)
	case "memory":
		return internalrepo.NewMemoryStore()
	default:
		return internalrepo.NewFileStore(map[string]string{
			usecase.DocLearning: cfg.Storage.LearningFile,
			usecase.DocTrades:   cfg.Storage.TradeHistoryFile,
			usecase.DocBars:     cfg.Storage.BarsFile,
		})
	}
}

// ProvideClickHouseClient creates a ClickHouse client and its trades table, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.TradesSchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideTradeSinks lists the downstream consumers of settled trades.
func ProvideTradeSinks(cfg *config.Config, producer *pkgkafka.Producer, ch *pkgch.Client) []repository.TradeSink {
	var sinks []repository.TradeSink
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaTradeSink(producer))
	}
	if ch != nil {
		sinks = append(sinks, internalrepo.NewClickHouseTradeSink(ch.DB(), cfg.ClickHouse.Database, cfg.ClickHouse.Table))
	}
	return sinks
}

func ProvidePatternDetector() service.PatternDetector {
	return pattern.Detector{}
}

func ProvideLearningStore(cfg *config.Config, store repository.DocumentStore, m repository.Metrics, log *logger.Logger) *usecase.LearningStore {
	return usecase.NewLearningStore(store, m, log, cfg.Trading.MinSampleSize, cfg.Storage.LockTTL)
}

func ProvideTradeJournal(store repository.DocumentStore, sinks []repository.TradeSink, m repository.Metrics, log *logger.Logger) *usecase.TradeJournal {
	return usecase.NewTradeJournal(store, sinks, m, log)
}

func ProvideTradeLifecycle(cfg *config.Config, broker repository.Broker, m repository.Metrics, log *logger.Logger) *usecase.TradeLifecycle {
	return usecase.NewTradeLifecycle(broker, usecase.LifecycleConfig{
		PollInterval:      cfg.Trading.PollInterval,
		SettlementTimeout: cfg.Trading.SettlementTimeout,
	}, m, log)
}

// ProvideOrchestrator creates the trading loop. The bar snapshot shares the document store.
func ProvideOrchestrator(
	cfg *config.Config,
	client *deriv.Client,
	detector service.PatternDetector,
	learning *usecase.LearningStore,
	lifecycle *usecase.TradeLifecycle,
	journal *usecase.TradeJournal,
	store repository.DocumentStore,
	notifier repository.Notifier,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(usecase.OrchestratorConfig{
		Symbol:       cfg.Trading.Symbol,
		MinAccuracy:  cfg.Trading.MinAccuracy,
		TickInterval: cfg.Trading.TickInterval,
	}, client, client, detector, learning, lifecycle, journal, store, notifier, m, log)
}

func ProvideHTTPHandler(
	cfg *config.Config,
	log *logger.Logger,
	orchestrator *usecase.Orchestrator,
	learning *usecase.LearningStore,
	journal *usecase.TradeJournal,
) *api.TradingEchoHandler {
	return api.NewTradingEchoHandler(log, orchestrator, learning, journal, cfg.Trading.Symbol, cfg.Trading.MinAccuracy).
		WithViewCache(icache.NewTTLCache(), cfg.Server.ViewCacheTTL)
}

// ProvideHTTPServer creates the operator server, or nil when disabled.
func ProvideHTTPServer(cfg *config.Config, handler *api.TradingEchoHandler, log *logger.Logger) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	return xhttp.NewServer(handler, log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
	)
}

// ProvideApp creates the application server and hands it the infrastructure to close.
// The Kafka producer is closed by its trade sink.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	client *deriv.Client,
	orchestrator *usecase.Orchestrator,
	httpServer *xhttp.Server,
	sinks []repository.TradeSink,
	rc *cache.RedisCache,
	ch *pkgch.Client,
) *server.App {
	app := server.New(cfg, log, client, orchestrator, httpServer, sinks)
	if rc != nil {
		app.OnClose("redis", rc.Close)
	}
	if ch != nil {
		app.OnClose("clickhouse", ch.Close)
	}
	return app
}
