package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/config"
	dbRedis "github.com/savealife-cloud/lifeline/internal/db/redis"
	"github.com/savealife-cloud/lifeline/internal/domain"
	logpkg "github.com/savealife-cloud/lifeline/internal/logger"
	"github.com/savealife-cloud/lifeline/internal/metrics"
	guiderepo "github.com/savealife-cloud/lifeline/internal/repository/guide"
	searchrepo "github.com/savealife-cloud/lifeline/internal/repository/search"
	chiTransport "github.com/savealife-cloud/lifeline/internal/transport/chi"
	"github.com/savealife-cloud/lifeline/internal/transport/gemini"
	openaiEmb "github.com/savealife-cloud/lifeline/internal/transport/openai"
	healthuc "github.com/savealife-cloud/lifeline/internal/usecase/health"
	indexuc "github.com/savealife-cloud/lifeline/internal/usecase/index"
	ingestuc "github.com/savealife-cloud/lifeline/internal/usecase/ingest"
	raguc "github.com/savealife-cloud/lifeline/internal/usecase/rag"
	recommenduc "github.com/savealife-cloud/lifeline/internal/usecase/recommend"
	statsuc "github.com/savealife-cloud/lifeline/internal/usecase/stats"
	"github.com/savealife-cloud/lifeline/internal/version"
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
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting lifeline API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("embedding_provider", cfg.Gateway.EmbeddingProvider),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register gateway metrics explicitly (no init())
	metrics.RegisterGatewayMetrics()

	// AI gateways
	geminiClient := gemini.NewClient(&gemini.Config{
		APIKey:        cfg.Gateway.Gemini.APIKey,
		BaseURL:       cfg.Gateway.Gemini.BaseURL,
		EmbedModel:    cfg.Gateway.Gemini.EmbedModel,
		GenerateModel: cfg.Gateway.Gemini.GenerateModel,
		Timeout:       time.Duration(cfg.Gateway.Gemini.TimeoutSec) * time.Second,
		Logger:        logger,
	})

	embedder := buildEmbedder(cfg, geminiClient, logger)
	generator := gemini.NewGenerator(geminiClient, domain.GenerationParams{
		Temperature:     cfg.Gateway.Generation.Temperature,
		TopK:            cfg.Gateway.Generation.TopK,
		TopP:            cfg.Gateway.Generation.TopP,
		MaxOutputTokens: cfg.Gateway.Generation.MaxOutputTokens,
	})

	// Repositories
	guideRepo := guiderepo.New(store, cfg.Index.VectorDim)
	searchRepo := searchrepo.New(store)

	// Provision vector indexes before accepting traffic.
	indexSvc := indexuc.New(
		store, guideRepo,
		cfg.Index.VectorDim,
		time.Duration(cfg.Index.PollIntervalSec)*time.Second,
		time.Duration(cfg.Index.ProvisionTimeoutSec)*time.Second,
		logger,
	)
	collections := []string{cfg.RAG.Guides.Collection, cfg.RAG.Advisor.Collection}
	for _, collection := range collections {
		if err := indexSvc.Ensure(ctx, collection); err != nil {
			logger.Fatal("Failed to provision vector index",
				zap.String("collection", collection),
				zap.Error(err))
		}
	}
	logger.Info("Vector indexes ready", zap.Strings("collections", collections))

	// Use case services
	guidesSvc := raguc.New(searchRepo, embedder, generator, raguc.Options{
		Collection: cfg.RAG.Guides.Collection,
		Subject:    "repair guides",
		MinScore:   cfg.RAG.Guides.MinScore,
		Limit:      cfg.RAG.Guides.Limit,
		Policy:     raguc.PolicyFail,
	}, logger)
	advisorSvc := raguc.New(searchRepo, embedder, generator, raguc.Options{
		Collection: cfg.RAG.Advisor.Collection,
		Subject:    "best practices",
		MinScore:   cfg.RAG.Advisor.MinScore,
		Limit:      cfg.RAG.Advisor.Limit,
		Policy:     raguc.PolicyFail,
	}, logger)
	recommendSvc := recommenduc.New(generator, logger)
	ingestSvc := ingestuc.New(guideRepo, embedder, cfg.Index.MaxBatchSize, logger)
	statsSvc := statsuc.New(store, guideRepo, collections)
	healthSvc := healthuc.New(store, embedder)

	server := chiTransport.NewServer(
		guidesSvc, advisorSvc, recommendSvc,
		ingestSvc, ingestSvc,
		statsSvc, healthSvc, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	logger.Info("Server stopped gracefully")
}

// embedderWithHealth is what the health and RAG services need from a provider.
type embedderWithHealth interface {
	domain.Embedder
	domain.HealthChecker
}

// buildEmbedder selects the embedding provider from config.
func buildEmbedder(cfg config.Config, geminiClient *gemini.Client, logger *zap.Logger) embedderWithHealth {
	switch cfg.Gateway.EmbeddingProvider {
	case "openai":
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Gateway.OpenAI.APIKey,
			BaseURL:    cfg.Gateway.OpenAI.BaseURL,
			Model:      cfg.Gateway.OpenAI.Model,
			Dimensions: cfg.Index.VectorDim,
			Logger:     logger,
		})
	default:
		return gemini.NewEmbedder(geminiClient, cfg.Index.VectorDim)
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
