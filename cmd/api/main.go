package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mlima/intake-backend/internal/ai"
	"github.com/mlima/intake-backend/internal/api/router"
	"github.com/mlima/intake-backend/internal/assignment"
	appconfig "github.com/mlima/intake-backend/internal/config"
	"github.com/mlima/intake-backend/internal/conversation"
	"github.com/mlima/intake-backend/internal/flow"
	"github.com/mlima/intake-backend/internal/http/handlers"
	"github.com/mlima/intake-backend/internal/lawyers"
	"github.com/mlima/intake-backend/internal/leads"
	"github.com/mlima/intake-backend/internal/messaging"
	"github.com/mlima/intake-backend/internal/observability/metrics"
	"github.com/mlima/intake-backend/internal/session"
	"github.com/mlima/intake-backend/pkg/logging"
)

const version = "1.0.0"

func main() {
	// Load .env in development; deployed environments set real env vars.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting intake-backend API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Redis backs sessions and the flow document. Without it the process
	// still serves traffic from in-memory state.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, continuing with in-process fallback", "error", err)
		}
	}

	var sessionStore session.Store
	var flowSource flow.Source
	if redisClient != nil {
		sessionStore = session.NewRedisStore(redisClient, cfg.SessionTTL, logger)
		flowSource = flow.NewCachedSource(flow.NewRedisSource(redisClient, logger), cfg.FlowCacheTTL)
	} else {
		logger.Warn("REDIS_ADDR not set, sessions will not survive restarts")
		sessionStore = session.NewMemoryStore()
		flowSource = flow.NewStaticSource(nil)
	}

	// Lead repository: Postgres when configured, in-memory otherwise.
	var leadsRepo leads.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		leadsRepo = leads.NewPostgresRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, leads will be stored in memory")
		leadsRepo = leads.NewInMemoryRepository()
	}

	// WhatsApp bridge sender
	var sender messaging.Sender = messaging.NopSender{}
	if cfg.WhatsAppBotURL != "" {
		sender = messaging.NewBridgeSender(cfg.WhatsAppBotURL, cfg.WhatsAppSendTimeout, logger)
	} else {
		logger.Warn("WHATSAPP_BOT_URL not set, outbound WhatsApp messages are disabled")
	}

	// Lawyer roster
	directory := lawyers.Default()
	if cfg.LawyersJSON != "" {
		d, err := lawyers.FromJSON(cfg.LawyersJSON)
		if err != nil {
			logger.Error("invalid LAWYERS_JSON, using built-in roster", "error", err)
		} else {
			directory = d
		}
	}
	logger.Info("lawyer roster loaded", "lawyers", directory.Len())

	intakeMetrics := metrics.NewIntakeMetrics(nil)

	assignments := assignment.NewService(leadsRepo, directory, sender, cfg.PublicBaseURL, logger,
		assignment.WithRetryPolicy(cfg.NotifyMaxRetries, cfg.NotifyRetryDelay),
		assignment.WithMetrics(intakeMetrics),
	)

	finalizer := conversation.NewFinalizer(assignments, flowSource, sender, logger)

	// Gemini fallback for off-script messages. Optional.
	var aiClient ai.Client
	if cfg.GeminiAPIKey != "" {
		geminiOpts := []ai.GeminiOption{
			ai.WithTimeout(cfg.AITimeout),
			ai.WithLogger(logger),
		}
		if cfg.AISystemPrompt != "" {
			geminiOpts = append(geminiOpts, ai.WithSystemPrompt(cfg.AISystemPrompt))
		}
		gemini, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, geminiOpts...)
		if err != nil {
			logger.Error("failed to initialize gemini client", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		aiClient = gemini
	} else {
		logger.Warn("GOOGLE_API_KEY not set, AI mode will use canned fallbacks")
	}

	engine := conversation.NewEngine(sessionStore, flowSource, aiClient, finalizer, logger,
		conversation.WithFlexibleThreshold(cfg.FlexibleThreshold),
		conversation.WithAITimeout(cfg.AITimeout),
		conversation.WithAICooldown(cfg.AICooldown),
		conversation.WithMetrics(intakeMetrics),
	)

	// Initialize handlers
	conversationHandler := handlers.NewConversationHandler(engine, logger)
	whatsappHandler := handlers.NewWhatsAppHandler(engine, sender, logger)
	claimHandler := handlers.NewClaimHandler(assignments, logger)
	healthHandler := handlers.NewHealthHandler(redisClient, version)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		Conversation:       conversationHandler,
		WhatsApp:           whatsappHandler,
		Claim:              claimHandler,
		Health:             healthHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
