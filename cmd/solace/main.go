package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solace/internal/bootstrap"
	"github.com/kailas-cloud/solace/internal/config"
	logpkg "github.com/kailas-cloud/solace/internal/logger"
	"github.com/kailas-cloud/solace/internal/metrics"
	"github.com/kailas-cloud/solace/internal/tracing"
	chiTransport "github.com/kailas-cloud/solace/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/solace/internal/transport/openai"
	chatuc "github.com/kailas-cloud/solace/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/solace/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/solace/internal/usecase/retrieval"
	safetyuc "github.com/kailas-cloud/solace/internal/usecase/safety"
	"github.com/kailas-cloud/solace/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	logger, closeLog := logpkg.WithFile(logger, logpkg.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer func() { _ = closeLog() }()
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting solace API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version.Version,
		Environment:    env,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to set up tracing", zap.Error(err))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterChatMetrics()

	backend, err := bootstrap.OpenBackend(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open chunk store", zap.Error(err))
	}
	defer backend.Close()

	queryEmbedder, embeddingHealth := bootstrap.NewEmbedder(&cfg, backend.KV, cfg.Embedding.QueryInstruction, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	retrievalSvc := retrievaluc.New(
		queryEmbedder,
		backend.Chunks,
		retrievaluc.NewQueryCache(retrievaluc.CacheOptions{
			TTL:        time.Duration(cfg.Retrieval.Cache.TTLSec) * time.Second,
			MaxEntries: cfg.Retrieval.Cache.MaxEntries,
		}),
		retrievaluc.Config{
			TopK:                cfg.Retrieval.TopK,
			Threshold:           cfg.Retrieval.ThresholdValue(),
			CandidateMultiplier: cfg.Retrieval.CandidateMultiplier,
			TopicBoost:          cfg.Retrieval.TopicBoostFactor,
		},
		logger,
	)

	llm := openaiTransport.NewChatClient(openaiTransport.ChatConfig{
		APIKey:        cfg.LLM.APIKey,
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		Timeout:       time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		MaxAttempts:   cfg.LLM.MaxRetries,
		HistoryWindow: cfg.Chat.MaxHistory,
		RatePerMinute: cfg.LLM.RatePerMinute,
		Logger:        logger,
	})

	chatSvc := chatuc.New(
		safetyuc.New(cfg.Safety.MaxMessageLength),
		retrievalSvc,
		llm,
		chatuc.NewStats(),
		logger,
		chatuc.WithModel(cfg.LLM.Model),
	)

	healthSvc := healthuc.New(backend.DB,
		healthuc.WithEmbedding(embeddingHealth),
		healthuc.WithLLM(llm),
	)

	server := chiTransport.NewServer(chatSvc, healthSvc, chatSvc.Stats(), chiTransport.Options{
		Version:        version.Version,
		Environment:    env,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RatePerMinute:  cfg.HTTP.RatePerMinute,
		APIKeys:        cfg.Auth.APIKeys,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
