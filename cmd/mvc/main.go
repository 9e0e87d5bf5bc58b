package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/garvazsof/MVC/adapters/contract"
	"github.com/garvazsof/MVC/adapters/events"
	"github.com/garvazsof/MVC/adapters/store"
	"github.com/garvazsof/MVC/adapters/tokenizer"
	"github.com/garvazsof/MVC/adapters/wallet"
	"github.com/garvazsof/MVC/config"
	"github.com/garvazsof/MVC/logging"
	"github.com/garvazsof/MVC/ports"
	"github.com/garvazsof/MVC/service"
	transport "github.com/garvazsof/MVC/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	tokenStore, publisher, cleanup, err := setupBackends(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up backends", zap.Error(err))
	}
	defer cleanup()

	signKey, err := cfg.Tokens.SigningKey()
	if err != nil {
		logger.Fatal("Failed to load signing key", zap.Error(err))
	}
	if cfg.Tokens.SigningKeyFile == "" {
		logger.Warn("No signing key configured, using an ephemeral key")
	}

	newAuth := wallet.NewFactory(wallet.Config{
		ClientID:    cfg.ClientID,
		Chain:       cfg.Chain,
		KeystoreDir: cfg.KeystoreDir,
	}, wallet.WithLogger(logger))

	sessions := service.NewSessionService(
		tokenizer.NewJWTTokenizer(signKey),
		tokenStore,
		events.NewWatermillPublisher(publisher),
		newAuth,
		contract.NewFactory(),
		cfg.ShellConfig(),
		service.WithTokenTTLs(cfg.Tokens.AccessTTL, cfg.Tokens.RefreshTTL),
		service.WithIdleTTL(cfg.Sessions.IdleTTL),
		service.WithInitTimeout(cfg.Sessions.InitTimeout),
		service.WithMaxMounted(cfg.Sessions.MaxMounted),
		service.WithLogger(logger),
	)
	defer sessions.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessions.RunEviction(ctx, cfg.Sessions.EvictInterval)

	router := transport.SetupRouter(sessions, transport.RouterConfig{
		DebugRoutes: cfg.DebugRoutes,
		Store:       tokenStore,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("listen_addr", cfg.ListenAddr),
			zap.String("chain", cfg.Chain.DisplayName),
			zap.Bool("debug_routes", cfg.DebugRoutes),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// setupBackends selects redis for token invalidation and events when a URL is
// configured, and in-process fallbacks otherwise
func setupBackends(cfg *config.Config, logger *zap.Logger) (ports.Store, message.Publisher, func(), error) {
	wmLogger := logging.NewWatermillAdapter(logger.Named("events"))

	if cfg.RedisURL == "" {
		logger.Warn("No redis configured, token invalidation and events stay in process")
		publisher := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		return store.NewMemoryStore(), publisher, func() { _ = publisher.Close() }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		wmLogger,
	)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	cleanup := func() {
		_ = publisher.Close()
		_ = redisClient.Close()
	}
	return store.NewRedisStore(redisClient), publisher, cleanup, nil
}
