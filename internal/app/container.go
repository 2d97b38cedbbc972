// Package app wires configuration, storage and services into a Container.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/tempo/internal/calendar/infrastructure/google"
	identityDomain "github.com/felixgeelhaar/tempo/internal/identity/domain"
	"github.com/felixgeelhaar/tempo/internal/identity/application/auth"
	"github.com/felixgeelhaar/tempo/internal/identity/application/oauth"
	"github.com/felixgeelhaar/tempo/internal/productivity/application/commands"
	"github.com/felixgeelhaar/tempo/internal/productivity/application/queries"
	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	schedulingApp "github.com/felixgeelhaar/tempo/internal/scheduling/application"
	schedulingDomain "github.com/felixgeelhaar/tempo/internal/scheduling/domain"
	"github.com/felixgeelhaar/tempo/internal/scheduling/infrastructure/cache"
	"github.com/felixgeelhaar/tempo/internal/scheduling/infrastructure/gemini"
	"github.com/felixgeelhaar/tempo/internal/scheduling/infrastructure/heuristic"
	sharedApplication "github.com/felixgeelhaar/tempo/internal/shared/application"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/crypto"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/tempo/pkg/config"
	"github.com/felixgeelhaar/tempo/pkg/observability"

	// Register database drivers.
	_ "github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database/postgres"
	_ "github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database/sqlite"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	DBConn      database.Connection
	DBDriver    database.Driver
	RedisClient *redis.Client
	Metrics     *observability.PrometheusMetrics
	Health      *observability.HealthRegistry

	// Repositories
	TaskRepo task.Repository
	UserRepo identityDomain.UserRepository

	// Event publishing
	EventPublisher eventbus.Publisher
	Events         *eventbus.Dispatcher

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Task handlers
	CreateTaskHandler *commands.CreateTaskHandler
	UpdateTaskHandler *commands.UpdateTaskHandler
	DeleteTaskHandler *commands.DeleteTaskHandler
	ListTasksHandler  *queries.ListTasksHandler
	GetTaskHandler    *queries.GetTaskHandler

	// Identity
	Tokens       *auth.TokenIssuer
	AuthService  *auth.Service
	OAuthManager *oauth.Manager

	// Scheduling
	CalendarClient *google.Client
	Engine         schedulingDomain.Engine
	Orchestrator   *schedulingApp.Orchestrator
}

// OpenDatabase connects to PostgreSQL when DATABASE_URL names it and to a
// local SQLite file otherwise.
func OpenDatabase(ctx context.Context, cfg *config.Config) (database.Connection, error) {
	sqlitePath := cfg.SQLitePath
	if cfg.DatabaseURL != "" && database.DetectDriver(cfg.DatabaseURL) == database.DriverSQLite {
		sqlitePath = cfg.DatabaseURL
	}
	conn, err := database.Open(ctx, database.Config{
		URL:        cfg.DatabaseURL,
		SQLitePath: sqlitePath,
		MaxConns:   cfg.DatabaseMaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return conn, nil
}

// NewContainer opens storage, connects optional infrastructure and builds
// every service. SQLite databases are migrated on start.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewPrometheusMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	conn, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	logger.Info("connected to database", "driver", c.DBDriver)
	c.Health.Register("database", observability.CriticalChecker("database", conn.Ping))

	if c.DBDriver == database.DriverSQLite {
		applied, err := migrations.Run(ctx, conn)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("applied migrations", "count", len(applied))
		}
	}

	sealer, err := newSealer(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	factory := NewRepositoryFactory(conn, sealer)
	if c.TaskRepo, err = factory.TaskRepository(); err != nil {
		c.Close()
		return nil, err
	}
	if c.UserRepo, err = factory.UserRepository(); err != nil {
		c.Close()
		return nil, err
	}
	c.UnitOfWork = database.NewUnitOfWork(conn)

	c.connectRedis(ctx)
	c.connectPublisher()
	c.Events = eventbus.NewDispatcher(c.EventPublisher, logger)

	c.CreateTaskHandler = commands.NewCreateTaskHandler(c.TaskRepo, c.UnitOfWork, c.Events)
	c.UpdateTaskHandler = commands.NewUpdateTaskHandler(c.TaskRepo, c.UnitOfWork, c.Events)
	c.DeleteTaskHandler = commands.NewDeleteTaskHandler(c.TaskRepo, c.UnitOfWork)
	c.ListTasksHandler = queries.NewListTasksHandler(c.TaskRepo)
	c.GetTaskHandler = queries.NewGetTaskHandler(c.TaskRepo)

	c.Tokens = auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	c.AuthService = auth.NewService(c.UserRepo, c.Tokens, c.Events, logger)
	c.OAuthManager = oauth.NewManager(oauth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		AuthURL:      cfg.GoogleAuthURL,
		TokenURL:     cfg.GoogleTokenURL,
		Timeout:      cfg.UpstreamTimeout,
	}, c.UserRepo, c.Events, logger, c.Metrics)
	if !cfg.CalendarConfigured() {
		logger.Warn("Google OAuth client not configured, calendar connection disabled")
	}

	c.CalendarClient = google.NewClient(google.Config{
		BaseURL: cfg.GoogleCalendarBaseURL,
		Timeout: cfg.UpstreamTimeout,
	}, c.OAuthManager, logger, c.Metrics)

	c.Engine = c.buildEngine()
	c.Orchestrator = schedulingApp.NewOrchestrator(schedulingApp.Deps{
		Tasks:       c.TaskRepo,
		Users:       c.UserRepo,
		Calendar:    c.CalendarClient,
		Engine:      c.Engine,
		Connections: c.OAuthManager,
		UnitOfWork:  c.UnitOfWork,
		Events:      c.Events,
		Logger:      logger,
		Metrics:     c.Metrics,
	})

	return c, nil
}

func newSealer(cfg *config.Config, logger *slog.Logger) (crypto.Sealer, error) {
	if cfg.EncryptionKey == "" {
		logger.Warn("TEMPO_ENCRYPTION_KEY not set, calendar tokens are stored in plaintext")
		return crypto.Plaintext{}, nil
	}
	sealer, err := crypto.NewAESGCMFromBase64Key(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid TEMPO_ENCRYPTION_KEY: %w", err)
	}
	return sealer, nil
}

// connectRedis sets RedisClient when REDIS_URL is usable. Redis only backs
// the suggestion cache, so failures fall back to memory.
func (c *Container) connectRedis(ctx context.Context) {
	if c.Config.RedisURL == "" {
		return
	}
	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		c.Logger.Warn("invalid Redis URL, suggestion cache will use memory", "error", err)
		return
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		c.Logger.Warn("Redis not available, suggestion cache will use memory", "error", err)
		_ = client.Close()
		return
	}
	c.RedisClient = client
	c.Health.Register("redis", observability.OptionalChecker("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}))
	c.Logger.Info("connected to Redis")
}

func (c *Container) connectPublisher() {
	if c.Config.RabbitMQURL == "" {
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return
	}
	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		c.Logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return
	}
	c.EventPublisher = publisher
}

func (c *Container) buildEngine() schedulingDomain.Engine {
	var inner schedulingDomain.Engine
	if c.Config.GeminiAPIKey != "" {
		inner = gemini.New(gemini.Config{
			APIKey:  c.Config.GeminiAPIKey,
			Model:   c.Config.GeminiModel,
			BaseURL: c.Config.GeminiBaseURL,
			Timeout: c.Config.UpstreamTimeout,
		}, c.Logger)
	} else {
		c.Logger.Info("GEMINI_API_KEY not set, using heuristic suggestion engine")
		inner = heuristic.New()
	}

	var store cache.Store = cache.NewMemoryStore()
	if c.RedisClient != nil {
		store = cache.NewRedisStore(c.RedisClient)
	}
	return cache.NewEngine(inner, store, c.Config.SuggestionCacheTTL, c.Logger)
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err, "driver", c.DBDriver)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}
