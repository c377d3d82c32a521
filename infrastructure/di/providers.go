package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/bus"
	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/handlers"
	"github.com/Steiynbrodt/Osint-Mindmap/application/persistence"
	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/application/queries"
	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/events"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/viewport"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/config"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/enrichment"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/icons"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/messaging/eventbridge"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/observability"
	ddbslot "github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/dynamodb"
	fileslot "github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/file"
	memslot "github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/memory"
	redisslot "github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/redis"
	sqliteslot "github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/sqlite"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/resilience"
)

const shutdownGrace = 5 * time.Second

// ProvideLogLevel creates the level shared by the logger and config reloads
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	return zap.ParseAtomicLevel(cfg.Logging.Level)
}

// ProvideLogger creates the zap logger. Production uses the JSON production
// config with sampling; everything else uses the development config.
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, func(), error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = level
	zc.Encoding = cfg.Logging.Format
	if zc.Encoding == "json" {
		zc.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("environment", string(cfg.Environment)))

	cleanup := func() {
		_ = logger.Sync()
	}
	return logger, cleanup, nil
}

// ProvideEventBus creates the in-process mutation event bus
func ProvideEventBus() *events.Bus {
	return events.NewBus()
}

// ProvideGraph creates the graph store publishing to the bus
func ProvideGraph(b *events.Bus) *aggregates.Graph {
	return aggregates.NewGraph(b)
}

// ProvideCanvas creates the main viewport and minimap
func ProvideCanvas(cfg *config.Config) *viewport.Canvas {
	return viewport.NewCanvas(
		viewport.New(cfg.Canvas.Width, cfg.Canvas.Height),
		viewport.NewMinimap(cfg.Canvas.MinimapWidth, cfg.Canvas.MinimapHeight),
	)
}

// ProvideMetrics creates the Prometheus collector and keeps the graph gauges
// current from the event bus
func ProvideMetrics(cfg *config.Config, b *events.Bus, graph *aggregates.Graph) (*observability.Collector, func()) {
	collector := observability.NewCollector(cfg.Metrics.Namespace)
	unsubscribe := b.Subscribe(collector.GraphEventHandler(graph))
	return collector, unsubscribe
}

// ProvideTracing installs the tracer provider
func ProvideTracing(cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shut down tracer provider", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
	)
}

// ProvideSnapshotSlot opens the configured snapshot backend
func ProvideSnapshotSlot(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (ports.SnapshotSlot, func(), error) {
	noop := func() {}
	snap := cfg.Snapshot

	switch snap.Backend {
	case config.BackendMemory:
		return memslot.NewSnapshotSlot(), noop, nil

	case config.BackendFile:
		slot, err := fileslot.NewSnapshotSlot(snap.Path)
		if err != nil {
			return nil, nil, err
		}
		return slot, noop, nil

	case config.BackendSQLite:
		slot, err := sqliteslot.NewSnapshotSlot(snap.Path)
		if err != nil {
			return nil, nil, err
		}
		return slot, closeWith(logger, "sqlite", slot.Close), nil

	case config.BackendRedis:
		client, err := redisslot.Dial(ctx, snap.Redis.Addr, snap.Redis.Password, snap.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		slot := redisslot.NewSnapshotSlot(client, snap.Redis.KeyPrefix)
		return slot, closeWith(logger, "redis", slot.Close), nil

	case config.BackendDynamoDB:
		client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
			if snap.DynamoDB.Endpoint != "" {
				o.BaseEndpoint = aws.String(snap.DynamoDB.Endpoint)
			}
		})
		slot := ddbslot.NewSnapshotSlot(client, snap.DynamoDB.Table, logger)
		// a custom endpoint means DynamoDB Local, where nobody else creates the table
		if snap.DynamoDB.Endpoint != "" {
			if err := slot.EnsureTable(ctx); err != nil {
				return nil, nil, err
			}
		}
		return slot, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown snapshot backend %q", snap.Backend)
}

func closeWith(logger *zap.Logger, name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			logger.Warn("Failed to close snapshot slot", zap.String("backend", name), zap.Error(err))
		}
	}
}

// ProvidePersistence creates the import/export service
func ProvidePersistence(graph *aggregates.Graph, slot ports.SnapshotSlot, logger *zap.Logger) *persistence.Service {
	return persistence.NewService(graph, slot, logger)
}

// ProvideAutosaver creates the debounced snapshot writer, or nil when
// autosave is off. Its cleanup flushes pending changes.
func ProvideAutosaver(cfg *config.Config, svc *persistence.Service, b *events.Bus, collector *observability.Collector, logger *zap.Logger) (*persistence.Autosaver, func()) {
	if !cfg.Autosave.Enabled {
		return nil, func() {}
	}
	a := persistence.NewAutosaver(svc, b, cfg.Autosave.Debounce, logger)
	a.OnSave(collector.RecordAutosave)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			logger.Error("Failed to flush autosave", zap.Error(err))
		}
	}
	return a, cleanup
}

// ProvideNotifier creates the notification ring
func ProvideNotifier(cfg *config.Config, logger *zap.Logger) *services.Notifier {
	return services.NewNotifier(cfg.Notifications.Capacity, logger)
}

func breakerConfig(name string, b config.Breaker) resilience.BreakerConfig {
	bc := resilience.DefaultBreakerConfig(name)
	bc.MinRequests = b.MinRequests
	bc.FailureThreshold = b.FailureRatio
	bc.Timeout = b.OpenTimeout
	bc.Interval = b.Interval
	return bc
}

// ProvideIconProber creates the favicon prober with one breaker per probed
// host, or a nil prober when probing is disabled. Its cleanup stops the cache
// sweep.
func ProvideIconProber(cfg *config.Config, collector *observability.Collector, logger *zap.Logger) (ports.IconProber, func()) {
	if !cfg.Icons.ProbeEnabled {
		return nil, func() {}
	}
	breakers := func(host string) *resilience.Breaker {
		return resilience.NewBreaker(breakerConfig("icon-probe:"+host, cfg.Icons.Breaker), logger, collector)
	}
	p := icons.NewProber(&http.Client{}, breakers, icons.Config{
		Timeout:       cfg.Icons.ProbeTimeout,
		CacheTTL:      cfg.Icons.CacheTTL,
		MaxEntries:    cfg.Icons.CacheMax,
		PurgeInterval: cfg.Icons.PurgeInterval,
	}, logger)
	return p, p.Close
}

// ProvideResolver creates the attachment resolver
func ProvideResolver(
	cfg *config.Config,
	graph *aggregates.Graph,
	prober ports.IconProber,
	notifier *services.Notifier,
	collector *observability.Collector,
	logger *zap.Logger,
) (*services.Resolver, func()) {
	r := services.NewResolver(graph, prober, notifier, collector, logger, services.ResolverConfig{
		Rules:         cfg.Icons.ExtraRules,
		MaxConcurrent: cfg.Icons.MaxConcurrent,
	})
	return r, r.Close
}

// ProvideEnrichmentClient creates the HTTP client for the enrichment backend
func ProvideEnrichmentClient(cfg *config.Config, collector *observability.Collector, logger *zap.Logger) *enrichment.Client {
	breaker := resilience.NewBreaker(breakerConfig("enrichment", cfg.Enrichment.Breaker), logger, collector)
	return enrichment.NewClient(cfg.Enrichment.Endpoint, cfg.Enrichment.Timeout, breaker, logger)
}

// ProvideEnrichmentService creates the enrichment service
func ProvideEnrichmentService(
	cfg *config.Config,
	graph *aggregates.Graph,
	client *enrichment.Client,
	prober ports.IconProber,
	resolver *services.Resolver,
	notifier *services.Notifier,
	collector *observability.Collector,
	logger *zap.Logger,
) (*services.EnrichmentService, func()) {
	s := services.NewEnrichmentService(graph, client, services.NewPivotEnricher(prober), resolver, notifier, collector, logger,
		services.EnrichmentConfig{
			Enabled:       cfg.Enrichment.Enabled,
			Pivots:        cfg.Enrichment.Pivots,
			MaxConcurrent: cfg.Enrichment.MaxConcurrent,
		})
	return s, s.Close
}

// ProvideIngestion creates the drag-and-drop service
func ProvideIngestion(graph *aggregates.Graph, resolver *services.Resolver, logger *zap.Logger) *services.IngestionService {
	return services.NewIngestionService(graph, resolver, logger)
}

// ProvideSearch creates the search query handler
func ProvideSearch(graph *aggregates.Graph) *queries.SearchHandler {
	return queries.NewSearchHandler(graph)
}

// ProvideViewportSaver creates the background viewport writer. Its cleanup
// writes the last viewport before the slot is released.
func ProvideViewportSaver(svc *persistence.Service, logger *zap.Logger) (*persistence.ViewportSaver, func()) {
	v := persistence.NewViewportSaver(svc, persistence.DefaultViewportDebounce, logger)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := v.Close(ctx); err != nil {
			logger.Error("Failed to cache viewport", zap.Error(err))
		}
	}
	return v, cleanup
}

// ProvideViewportHandlers creates the viewport command handlers
func ProvideViewportHandlers(canvas *viewport.Canvas, graph *aggregates.Graph, saver *persistence.ViewportSaver, logger *zap.Logger) *handlers.ViewportHandlers {
	return handlers.NewViewportHandlers(canvas, graph, saver, logger)
}

// ProvideCommandBus creates the command bus with logging, metrics and
// tracing middleware and registers every handler
func ProvideCommandBus(
	logger *zap.Logger,
	collector *observability.Collector,
	tp *observability.TracerProvider,
	graph *aggregates.Graph,
	resolver *services.Resolver,
	enrichmentSvc *services.EnrichmentService,
	ingestion *services.IngestionService,
	svc *persistence.Service,
	viewportHandlers *handlers.ViewportHandlers,
) (*bus.CommandBus, error) {
	b := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(collector),
		observability.CommandTracing(tp.Tracer()),
	)

	if err := handlers.NewGraphHandlers(graph, resolver, logger).Register(b); err != nil {
		return nil, err
	}
	if err := handlers.NewServiceHandlers(resolver, enrichmentSvc, ingestion, svc).Register(b); err != nil {
		return nil, err
	}
	if err := viewportHandlers.Register(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ProvideForwarder starts forwarding mutation events to EventBridge, or
// returns nil when events are disabled
func ProvideForwarder(cfg *config.Config, awsCfg aws.Config, b *events.Bus, logger *zap.Logger) (*eventbridge.Forwarder, func()) {
	if !cfg.Events.Enabled {
		return nil, func() {}
	}
	client := awseventbridge.NewFromConfig(awsCfg)
	publisher := eventbridge.NewPublisher(client, cfg.Events.BusName, cfg.Events.Source, cfg.Events.BatchSize, logger)
	fwd := eventbridge.NewForwarder(publisher, b, cfg.Events.BatchSize, time.Second, logger)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := fwd.Close(ctx); err != nil {
			logger.Warn("Event forwarder did not drain", zap.Error(err))
		}
	}
	return fwd, cleanup
}
