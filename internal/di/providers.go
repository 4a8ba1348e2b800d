package di

import (
	"context"
	"fmt"
	"time"

	"Noesis/internal/domain/repository"
	"Noesis/internal/handler/api"
	mid "Noesis/internal/middleware"
	internalrepo "Noesis/internal/repository"
	"Noesis/internal/service/alerts"
	"Noesis/internal/service/annotate"
	"Noesis/internal/service/collectors"
	"Noesis/internal/service/geocode"
	"Noesis/internal/service/ratelimit"
	"Noesis/internal/service/sensorgrid"
	"Noesis/internal/usecase"
	"Noesis/pkg/cache"
	pkgch "Noesis/pkg/clickhouse"
	"Noesis/pkg/config"
	xhttp "Noesis/pkg/http"
	pkgkafka "Noesis/pkg/kafka"
	applogger "Noesis/pkg/logger"
	"Noesis/pkg/metrics"
	"Noesis/pkg/queue"
	"Noesis/pkg/server"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Logging.Format
	if format == "" {
		format = "console"
	}
	output := cfg.Logging.Output
	if output == "" {
		output = "stdout"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database)}
	stmts = append(stmts, internalrepo.IncidentSchema(incidentTable(cfg)))
	stmts = append(stmts, internalrepo.SignalSchemas(rawSignalTable(cfg), annotatedTable(cfg))...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func incidentTable(cfg *config.Config) string {
	if cfg.ClickHouse.IncidentTable != "" {
		return cfg.ClickHouse.Database + "." + cfg.ClickHouse.IncidentTable
	}
	return cfg.ClickHouse.Database + ".incidents"
}

func rawSignalTable(cfg *config.Config) string {
	if cfg.ClickHouse.RawSignalTable != "" {
		return cfg.ClickHouse.Database + "." + cfg.ClickHouse.RawSignalTable
	}
	return cfg.ClickHouse.Database + ".signals_raw"
}

func annotatedTable(cfg *config.Config) string {
	if cfg.ClickHouse.AnnotatedTable != "" {
		return cfg.ClickHouse.Database + "." + cfg.ClickHouse.AnnotatedTable
	}
	return cfg.ClickHouse.Database + ".signals_annotated"
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML. Only
// the kafka backend consumes; the clickhouse backend writes directly.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideHTTPClient creates the shared outbound HTTP client.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient()
}

// ProvideIncidentStore creates the ClickHouse incident store.
func ProvideIncidentStore(chClient *pkgch.Client, cfg *config.Config) repository.IncidentStore {
	return internalrepo.NewClickHouseIncidentStore(chClient.DB(), incidentTable(cfg))
}

// ProvideSignalStore creates the ClickHouse signal store.
func ProvideSignalStore(chClient *pkgch.Client, cfg *config.Config) repository.SignalStore {
	return internalrepo.NewClickHouseSignalStore(chClient.DB(), rawSignalTable(cfg), annotatedTable(cfg))
}

// ProvideSignalPublisher creates the Kafka signal publisher.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideGeocoder creates the reverse geocoder, or nil when disabled. The
// cache layer is Redis-backed when configured and in-process otherwise.
func ProvideGeocoder(cfg *config.Config, client *xhttp.Client) repository.Geocoder {
	if !cfg.Geocoding.Enabled {
		return nil
	}

	var cacheSvc cache.Service
	if cfg.Geocoding.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Geocoding.Redis.Host),
			cache.WithRedisPort(cfg.Geocoding.Redis.Port),
			cache.WithRedisPassword(cfg.Geocoding.Redis.Password),
			cache.WithRedisDB(cfg.Geocoding.Redis.DB),
			cache.WithRedisPrefix("noesis"),
		)
		if err == nil {
			cacheSvc = cache.NewLayeredCache(redisCache)
		}
	}
	if cacheSvc == nil {
		cacheSvc = cache.NewMemoryCache()
	}

	return geocode.NewNominatim(client, cfg.Geocoding.BaseURL, cfg.Geocoding.UserAgent, cacheSvc, ratelimit.New())
}

// ProvideCollectors builds the registry of enabled batch collectors.
func ProvideCollectors(cfg *config.Config, client *xhttp.Client) []repository.Collector {
	var list []repository.Collector
	if cfg.GNews.Enabled {
		list = append(list, collectors.NewGNews(client, cfg.GNews.BaseURL, cfg.GNews.APIKey, cfg.GNews.Queries, cfg.GNews.Lang, cfg.GNews.Max))
	}
	if cfg.RSS.Enabled {
		list = append(list, collectors.NewRSS(cfg.RSS.Feeds, cfg.RSS.MaxItems, cfg.RSS.Timeout))
	}
	if cfg.Sample.Enabled {
		list = append(list, collectors.NewSample(clockwork.NewRealClock()))
	}
	return list
}

// ProvideCoordinator creates the collection coordinator.
func ProvideCoordinator(list []repository.Collector, cfg *config.Config, m repository.Metrics, l *applogger.Logger) *usecase.CollectionCoordinator {
	return usecase.NewCollectionCoordinator(list, cfg.Collection.SourceTimeout, m, l)
}

// ProvideAnnotator creates the lexicon annotator.
func ProvideAnnotator() repository.Annotator {
	return annotate.NewLexicon()
}

// ProvideFormation creates the incident formation engine.
func ProvideFormation(geocoder repository.Geocoder, m repository.Metrics) *usecase.IncidentFormation {
	return usecase.NewIncidentFormation(geocoder, m)
}

// ProvideRiskPrediction creates the risk engine from the configured location
// profiles.
func ProvideRiskPrediction(cfg *config.Config) *usecase.RiskPrediction {
	riskCfg := usecase.DefaultRiskConfig()
	if len(cfg.Risk.Profiles) > 0 {
		profiles := make(map[string]usecase.LocationRiskProfile, len(cfg.Risk.Profiles))
		for name, p := range cfg.Risk.Profiles {
			profiles[name] = usecase.LocationRiskProfile{BaseRisk: p.BaseRisk, EscalationRate: p.EscalationRate}
		}
		riskCfg.Profiles = profiles
	}
	if cfg.Risk.DefaultBaseRisk > 0 {
		riskCfg.DefaultProfile = usecase.LocationRiskProfile{
			BaseRisk:       cfg.Risk.DefaultBaseRisk,
			EscalationRate: cfg.Risk.DefaultEscalationRate,
		}
	}
	return usecase.NewRiskPrediction(riskCfg, nil, clockwork.NewRealClock())
}

// ProvideNotifier creates the alert notifier, or nil when disabled.
func ProvideNotifier(cfg *config.Config, client *xhttp.Client) repository.Notifier {
	if !cfg.Alerts.Telegram.Enabled {
		return nil
	}
	return alerts.NewTelegram(client, "", cfg.Alerts.Telegram.BotToken, cfg.Alerts.Telegram.ChatID)
}

// ProvideCycle wires the end-to-end pipeline cycle.
func ProvideCycle(
	coordinator *usecase.CollectionCoordinator,
	annotator repository.Annotator,
	formation *usecase.IncidentFormation,
	pub repository.Publisher,
	signals repository.SignalStore,
	incidents repository.IncidentStore,
	notifier repository.Notifier,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Cycle {
	// The clickhouse backend skips the transport hop and writes directly.
	if cfg.Backend.Type != "kafka" {
		pub = nil
	}
	return usecase.NewCycle(coordinator, annotator, formation, pub, signals, incidents, notifier, m, l)
}

// ProvideKafkaSignalsHandler registers the raw-signal topic handler.
func ProvideKafkaSignalsHandler(store repository.SignalStore, cfg *config.Config, l *applogger.Logger) *usecase.KafkaSignalsHandler {
	return usecase.NewKafkaSignalsHandler(cfg.Kafka.Topic, store, cfg.Backend.BatchSize, cfg.Backend.BatchTimeout, l)
}

// ProvideSensorStream creates the live sensor stream, or nil when disabled.
func ProvideSensorStream(cfg *config.Config) repository.SignalStream {
	if !cfg.SensorGrid.Enabled {
		return nil
	}
	return sensorgrid.New(
		cfg.SensorGrid.APIKey,
		cfg.SensorGrid.WebSocketURL,
		cfg.SensorGrid.Regions,
		cfg.SensorGrid.ReconnectDelay,
		cfg.SensorGrid.PingInterval,
	)
}

// ProvideSignalProcessor creates the live-signal backend router.
func ProvideSignalProcessor(pub repository.Publisher, store repository.SignalStore, m repository.Metrics, cfg *config.Config) *usecase.SignalProcessor {
	return usecase.NewSignalProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideStreamCollector creates the live stream collector, or nil when the
// sensor grid is disabled.
func ProvideStreamCollector(stream repository.SignalStream, proc *usecase.SignalProcessor, m repository.Metrics, cfg *config.Config) *usecase.StreamCollector {
	if stream == nil {
		return nil
	}
	maxRPS := cfg.SensorGrid.MaxRPS
	if maxRPS <= 0 {
		maxRPS = 50
	}
	bufSize := cfg.SensorGrid.BufferSize
	if bufSize <= 0 {
		bufSize = 2000
	}
	pipe := mid.NewSignalPipeline(proc, m,
		mid.WithMaxRPS(maxRPS),
		mid.WithBufferSize(bufSize),
	)
	return usecase.NewStreamCollector(stream, proc, m, pipe)
}

// ProvideJobQueue creates the Redis job queue consumer, or nil when
// disabled. Queued collection requests run the same cycle as the scheduler
// and the HTTP trigger.
func ProvideJobQueue(cfg *config.Config, l *applogger.Logger, cycle *usecase.Cycle) *queue.RedisQueue {
	if !cfg.Jobs.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Jobs.Redis.Host, cfg.Jobs.Redis.Port),
		Password: cfg.Jobs.Redis.Password,
		DB:       cfg.Jobs.Redis.DB,
	})
	jobs := []queue.Job{usecase.NewCollectionCycleJob(cycle, l)}
	return queue.NewRedisConsumer(l, &queue.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		QueueSize:  cfg.Jobs.QueueSize,
		RetryLimit: cfg.Jobs.RetryLimit,
		RetryDelay: cfg.Jobs.RetryDelay,
	}, client, jobs)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	store repository.IncidentStore,
	cycle *usecase.Cycle,
	risk *usecase.RiskPrediction,
	coordinator *usecase.CollectionCoordinator,
	m repository.Metrics,
) *api.IncidentsEchoHandler {
	return api.NewIncidentsEchoHandler(l, store, cycle, risk, coordinator.Sources(), m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	cycle *usecase.Cycle,
	streamCollector *usecase.StreamCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSignalsHandler,
	jobQueue *queue.RedisQueue,
	chClient *pkgch.Client,
	handler *api.IncidentsEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, cycle, streamCollector, consumer, kh, jobQueue, chClient)
	app.SetHTTPHandler(handler)
	return app
}
