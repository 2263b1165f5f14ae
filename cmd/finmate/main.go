package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"finmate/internal/ai"
	"finmate/internal/amqp"
	"finmate/internal/auth"
	"finmate/internal/cache"
	"finmate/internal/config"
	"finmate/internal/core"
	apphttp "finmate/internal/http"
	"finmate/internal/mail"
	"finmate/internal/services"
	"finmate/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Monetary amounts serialize as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Open database and apply migrations
	db, err := storage.Open(cfg)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "backend", cfg.DBBackend)
		os.Exit(1)
	}

	// Optional AMQP client; without it verification mail is sent inline
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - verification email is sent inline")
	}

	// Advice providers, in fallback order
	var providers []ai.Provider
	if cfg.GroqAPIKey != "" {
		providers = append(providers, ai.NewGroq(cfg.GroqAPIKey))
	}
	if cfg.GeminiAPIKey != "" {
		providers = append(providers, ai.NewGemini(cfg.GeminiAPIKey))
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, ai.NewOpenAI(cfg.OpenAIAPIKey))
	}
	if len(providers) == 0 {
		logger.Info("No AI provider keys configured - advice uses templated fallback only")
	}
	chain := ai.NewChain(logger, cfg.ProviderTimeout, providers...)

	tokens := auth.NewTokenIssuer(cfg.SecretKey, cfg.AccessTokenTTL, cfg.VerificationTokenTTL)
	mailer := mail.NewMailer(cfg, logger)

	insights := cache.NewLRUCache[core.MonthlyInsight](500, 5*time.Minute)
	cacheManager := cache.NewManager()
	cacheManager.Register(insights)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	users := services.NewUserService(db, tokens, mailer, amqpClient, insights, cfg.UploadDir)
	transactions := services.NewTransactionService(db, insights)
	budgets := services.NewBudgetService(db)
	savings := services.NewSavingsService(db)
	advice := services.NewAdviceService(db, transactions, chain, cfg.AssistantName)

	srv := apphttp.NewServer(":"+cfg.Port, tokens, users, transactions, budgets, savings, advice, cfg.UploadDir)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 60 * time.Second // advice calls wait on upstream providers
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting finmate server", "port", cfg.Port, "db_backend", cfg.DBBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
