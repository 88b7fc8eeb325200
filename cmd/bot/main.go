package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prefeitura-rio/app-identidade/internal/bot"
	"github.com/prefeitura-rio/app-identidade/internal/config"
	"github.com/prefeitura-rio/app-identidade/internal/discord"
	"github.com/prefeitura-rio/app-identidade/internal/handlers"
	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/middleware"
	"github.com/prefeitura-rio/app-identidade/internal/observability"
	"github.com/prefeitura-rio/app-identidade/internal/services"
	"github.com/prefeitura-rio/app-identidade/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// .env is optional
	envErr := godotenv.Load()

	// Initialize logger first
	if err := logging.InitLogger(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logging.Logger.Sync()

	if envErr != nil {
		logging.Logger.Debug("no .env file loaded", zap.Error(envErr))
	}

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}
	cfg := config.AppConfig

	logging.Logger.Info("starting identity card bot",
		zap.String("token", observability.MaskToken(cfg.DiscordToken)),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("session_backend", cfg.SessionBackend),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)

	// Initialize observability
	if err := observability.InitTracer(cfg.TracingEnabled, cfg.TracingEndpoint); err != nil {
		logging.Logger.Warn("tracing disabled after init failure", zap.Error(err))
	}
	defer observability.ShutdownTracer()

	store, err := openStore(cfg)
	if err != nil {
		logging.Logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	healthChecks := map[string]handlers.HealthCheck{
		"store": store.Ping,
	}

	var sessions services.SessionStore
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		if err := config.InitRedis(); err != nil {
			logging.Logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		sessions = services.NewRedisSessionStore(config.Redis, cfg.SessionTTL, logging.Logger)
		healthChecks["redis"] = func(ctx context.Context) error {
			return config.Redis.Ping(ctx).Err()
		}
	default:
		sessions = services.NewMemorySessionStore(cfg.SessionTTL)
	}

	renderer, err := services.NewImageRenderer(cfg.TemplatePath, cfg.FontPath, logging.Logger)
	if err != nil {
		logging.Logger.Fatal("failed to load card template", zap.Error(err))
	}

	documents := services.NewDocumentService(
		store,
		renderer,
		services.NewViewCache(cfg.ViewCacheSize, 0),
		cfg.Location(),
		logging.Logger,
	)
	permissions := services.NewPermissionService(store, logging.Logger)
	fetcher := discord.NewAttachmentFetcher(cfg.HandlerTimeout, cfg.AttachmentMaxBytes)

	dispatcher := bot.NewDispatcher(store, permissions, sessions, documents, fetcher, logging.Logger)

	discordBot, err := discord.New(cfg.DiscordToken, dispatcher, discord.Options{
		GuildID:             cfg.DiscordGuildID,
		RestrictRoleCommand: cfg.RestrictRoleCommand,
		HandlerTimeout:      cfg.HandlerTimeout,
	}, logging.Logger)
	if err != nil {
		logging.Logger.Fatal("failed to create discord session", zap.Error(err))
	}
	if err := discordBot.Open(); err != nil {
		logging.Logger.Fatal("failed to connect to discord", zap.Error(err))
	}

	srv := newServer(cfg, handlers.NewHealthHandler(healthChecks, logging.Logger))

	// Start server in a goroutine
	go func() {
		logging.Logger.Info("starting ops server",
			zap.Int("port", cfg.Port),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logging.Logger.Info("shutting down...")
	if err := discordBot.Close(); err != nil {
		logging.Logger.Error("failed to close discord session", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Error("server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("bot exited gracefully")
}

// openStore connects the configured persistence driver
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		if err := config.InitMongoDB(); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		store, err := storage.NewMongoStore(ctx, config.MongoDB, cfg.DocumentsCollection, cfg.GuildConfigCollection, logging.Logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		if err := config.InitSQLite(); err != nil {
			return nil, err
		}
		store, err := storage.NewSQLStore(config.SQLite, logging.Logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// newServer builds the health and metrics HTTP server
func newServer(cfg *config.Config, health *handlers.HealthHandler) *http.Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestTiming(),
		cors.Default(),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", health.HealthCheck)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
