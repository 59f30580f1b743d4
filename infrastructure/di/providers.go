package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nodal/application/commands/bus"
	commandhandlers "nodal/application/commands/handlers"
	"nodal/application/ports"
	querybus "nodal/application/queries/bus"
	queryhandlers "nodal/application/queries/handlers"
	"nodal/application/services"
	domainconfig "nodal/domain/config"
	"nodal/infrastructure/ai"
	"nodal/infrastructure/cache"
	"nodal/infrastructure/config"
	"nodal/infrastructure/messaging"
	"nodal/infrastructure/persistence/dynamodb"
	"nodal/infrastructure/persistence/memory"
	"nodal/infrastructure/persistence/schema"
	"nodal/infrastructure/persistence/sqlite"
	"nodal/interfaces/http/rest"
	"nodal/pkg/auth"
	pkgerrors "nodal/pkg/errors"
	"nodal/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() || cfg.IsLambda {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// ProvideMetrics returns the Prometheus collector, or nil when metrics are
// disabled
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("nodal")
}

// AWSClients holds the AWS SDK clients. Each is nil unless the configuration
// needs it.
type AWSClients struct {
	DynamoDB    *awsdynamodb.Client
	EventBridge *awseventbridge.Client
}

// ProvideAWSClients loads the AWS configuration only when DynamoDB storage or
// an event bus is configured
func ProvideAWSClients(ctx context.Context, cfg *config.Config) (*AWSClients, error) {
	clients := &AWSClients{}
	if cfg.StorageBackend != config.StorageDynamoDB && cfg.EventBusName == "" {
		return clients, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.StorageBackend == config.StorageDynamoDB {
		clients.DynamoDB = awsdynamodb.NewFromConfig(awsCfg)
	}
	if cfg.EventBusName != "" {
		clients.EventBridge = awseventbridge.NewFromConfig(awsCfg, func(o *awseventbridge.Options) {
			o.RetryMaxAttempts = 3
			o.RetryMode = aws.RetryModeStandard
		})
	}
	return clients, nil
}

// ProvideRedisClient connects to Redis when an address is configured. The
// client is nil otherwise.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func()) {
	if cfg.RedisAddress == "" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }
}

// CanvasRules is the active canvas configuration and, when a rules file is
// configured, the watcher that reloads it
type CanvasRules struct {
	Config  *domainconfig.DomainConfig
	Watcher *config.CanvasConfigWatcher
}

// ProvideCanvasRules loads the canvas rules file and starts watching it
func ProvideCanvasRules(cfg *config.Config, logger *zap.Logger) (*CanvasRules, func(), error) {
	if cfg.CanvasConfigPath == "" {
		return &CanvasRules{Config: domainconfig.DefaultDomainConfig()}, func() {}, nil
	}

	watcher, err := config.NewCanvasConfigWatcher(cfg.CanvasConfigPath, cfg.Environment, logger)
	if err != nil {
		return nil, nil, err
	}
	watcher.Start()
	return &CanvasRules{Config: watcher.Current(), Watcher: watcher}, watcher.Stop, nil
}

// ProvideCodec creates the document codec for the active rules
func ProvideCodec(rules *CanvasRules) *schema.Codec {
	return schema.NewCodec(rules.Config)
}

// Storage is the configured document store. Lister and Health are set when
// the backend supports them.
type Storage struct {
	Backend string
	Repo    ports.DocumentRepository
	Lister  ports.WorkspaceLister
	Health  ports.HealthChecker
}

// ProvideStorage opens the configured document store
func ProvideStorage(cfg *config.Config, clients *AWSClients, codec *schema.Codec, logger *zap.Logger) (*Storage, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		repo := memory.NewDocumentRepository(codec, logger)
		return &Storage{Backend: cfg.StorageBackend, Repo: repo, Lister: repo, Health: repo}, func() {}, nil

	case config.StorageSQLite:
		repo, err := sqlite.Open(cfg.SQLitePath, codec, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := repo.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}
		return &Storage{Backend: cfg.StorageBackend, Repo: repo, Lister: repo, Health: repo}, cleanup, nil

	case config.StorageDynamoDB:
		repo := dynamodb.NewDocumentRepository(clients.DynamoDB, cfg.DynamoDBTable, codec, logger)
		return &Storage{Backend: cfg.StorageBackend, Repo: repo, Lister: repo, Health: repo}, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Events is the outbound event pipeline and, when one is kept, the readable
// event log
type Events struct {
	Publisher ports.EventPublisher
	Reader    ports.EventReader
}

// ProvideEvents fans domain events out to the log, the DynamoDB event log
// and EventBridge, whichever are configured
func ProvideEvents(cfg *config.Config, clients *AWSClients, logger *zap.Logger) *Events {
	fanOut := messaging.FanOut{messaging.NewLogPublisher(logger)}
	out := &Events{}

	if clients.DynamoDB != nil && cfg.EventLogEnabled {
		eventLog := dynamodb.NewEventLog(clients.DynamoDB, cfg.DynamoDBTable, logger)
		fanOut = append(fanOut, eventLog)
		out.Reader = eventLog
	}
	if clients.EventBridge != nil {
		fanOut = append(fanOut, messaging.NewEventBridgePublisher(clients.EventBridge, cfg.EventBusName, logger))
	}

	out.Publisher = fanOut
	return out
}

// ProvideEmbeddingCache uses Redis when available and an in-process cache
// otherwise
func ProvideEmbeddingCache(cfg *config.Config, client *redis.Client) (ports.EmbeddingCache, func()) {
	if client != nil {
		return cache.NewRedisCache(client, cfg.EmbeddingTTL), func() {}
	}
	mem := cache.NewMemoryCache(cfg.EmbeddingTTL)
	return mem, func() { _ = mem.Close() }
}

// AIProviders is the chat provider and embedder. Both are nil when AI is
// disabled.
type AIProviders struct {
	Chat     ports.ChatProvider
	Embedder ports.Embedder
}

// ProvideAIProviders builds the configured providers and puts the embedder
// behind the embedding cache
func ProvideAIProviders(
	cfg *config.Config,
	embeddings ports.EmbeddingCache,
	logger *zap.Logger,
	metrics *observability.Collector,
) (*AIProviders, error) {
	chat, embedder, err := ai.NewProviders(ai.Config{
		Provider:   cfg.AIProvider,
		BaseURL:    cfg.AIBaseURL,
		APIKey:     cfg.AIAPIKey,
		Model:      cfg.AIModel,
		EmbedModel: cfg.AIEmbedModel,
		Timeout:    cfg.AITimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	providers := &AIProviders{Chat: chat}
	if embedder != nil {
		providers.Embedder = cache.NewCachedEmbedder(embedder, embeddings, logger, metrics)
	}
	return providers, nil
}

// ProvidePersister creates the background document writer
func ProvidePersister(cfg *config.Config, storage *Storage, logger *zap.Logger, metrics *observability.Collector) *services.Persister {
	return services.NewPersister(storage.Repo, storage.Backend, cfg.PersistFailureThreshold, logger, metrics)
}

// ProvideWorkspaceService creates the workspace service and subscribes it to
// rule reloads. Its cleanup flushes pending saves.
func ProvideWorkspaceService(
	storage *Storage,
	events *Events,
	persister *services.Persister,
	rules *CanvasRules,
	logger *zap.Logger,
	metrics *observability.Collector,
) (*services.WorkspaceService, func()) {
	workspaces := services.NewWorkspaceService(storage.Repo, events.Publisher, persister, rules.Config, logger, metrics)
	if rules.Watcher != nil {
		rules.Watcher.OnChange(workspaces.UpdateConfig)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := workspaces.Flush(ctx); err != nil {
			logger.Error("Failed to flush workspaces", zap.Error(err))
		}
	}
	return workspaces, cleanup
}

// ProvideChatService creates the chat service. It is nil when no chat
// provider is configured.
func ProvideChatService(workspaces *services.WorkspaceService, providers *AIProviders, logger *zap.Logger, metrics *observability.Collector) *services.ChatService {
	if providers.Chat == nil {
		return nil
	}
	return services.NewChatService(workspaces, providers.Chat, logger, metrics)
}

// ProvideSmartViewService creates the Smart View service
func ProvideSmartViewService(workspaces *services.WorkspaceService, providers *AIProviders, logger *zap.Logger, metrics *observability.Collector) *services.SmartViewService {
	return services.NewSmartViewService(workspaces, providers.Embedder, logger, metrics)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(workspaces *services.WorkspaceService, logger *zap.Logger) (*bus.CommandBus, error) {
	busLogger := bus.NewZapLogger(logger)
	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(busLogger), bus.RecoveryMiddleware(busLogger))

	for _, h := range []interface{ Register(*bus.CommandBus) error }{
		commandhandlers.NewNoteHandler(workspaces, logger),
		commandhandlers.NewZoneHandler(workspaces, logger),
		commandhandlers.NewCanvasHandler(workspaces, logger),
	} {
		if err := h.Register(commandBus); err != nil {
			return nil, err
		}
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(workspaces *services.WorkspaceService, metrics *observability.Collector, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.MetricsMiddleware(metrics))
	if err := queryhandlers.NewCanvasQueryHandler(workspaces, logger).Register(queryBus); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideRateLimiter limits AI requests across instances through Redis when
// it is available, per process otherwise
func ProvideRateLimiter(cfg *config.Config, client *redis.Client) auth.RateLimiter {
	if cfg.AIRateLimit == 0 {
		return nil
	}
	if client != nil {
		return auth.NewRedisRateLimiter(client, cfg.AIRateLimit, cfg.AIRateWindow, "ai")
	}
	return auth.NewSlidingWindowLimiter(cfg.AIRateLimit, cfg.AIRateWindow)
}

// ProvideJWTValidator returns nil when no secret is configured, which leaves
// the API open
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{SecretKey: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
}

// ProvideErrorHandler creates the HTTP error handler. Details are exposed
// outside production.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, !cfg.IsProduction())
}

// ProvideHealthChecks collects the dependencies /ready pings
func ProvideHealthChecks(storage *Storage, embeddings ports.EmbeddingCache) map[string]ports.HealthChecker {
	checks := map[string]ports.HealthChecker{}
	if storage.Health != nil {
		checks["storage"] = storage.Health
	}
	if hc, ok := embeddings.(ports.HealthChecker); ok {
		checks["cache"] = hc
	}
	return checks
}

// ProvideRouter assembles the HTTP router
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	workspaces *services.WorkspaceService,
	chat *services.ChatService,
	smartView *services.SmartViewService,
	storage *Storage,
	events *Events,
	checks map[string]ports.HealthChecker,
	validator *auth.JWTValidator,
	limiter auth.RateLimiter,
	metrics *observability.Collector,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(rest.Dependencies{
		CommandBus:   commandBus,
		QueryBus:     queryBus,
		Workspaces:   workspaces,
		Gestures:     services.NewGestureService(workspaces, logger),
		Connections:  services.NewConnectionService(workspaces, logger),
		SmartView:    smartView,
		Chat:         chat,
		Events:       events.Reader,
		Lister:       storage.Lister,
		HealthChecks: checks,
		Validator:    validator,
		Limiter:      limiter,
		Metrics:      metrics,
	}, rest.Options{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.AllowedOrigins,
		AIRateLimit:    cfg.AIRateLimit,
		AIRateWindow:   cfg.AIRateWindow,
	}, errs, logger)
}
