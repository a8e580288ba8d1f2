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

	"github.com/docqa-cloud/docqa/internal/config"
	"github.com/docqa-cloud/docqa/internal/db"
	dbMemory "github.com/docqa-cloud/docqa/internal/db/memory"
	dbRedis "github.com/docqa-cloud/docqa/internal/db/redis"
	"github.com/docqa-cloud/docqa/internal/domain"
	"github.com/docqa-cloud/docqa/internal/index"
	"github.com/docqa-cloud/docqa/internal/loader"
	logpkg "github.com/docqa-cloud/docqa/internal/logger"
	"github.com/docqa-cloud/docqa/internal/metrics"
	"github.com/docqa-cloud/docqa/internal/repository/embcache"
	"github.com/docqa-cloud/docqa/internal/session"
	"github.com/docqa-cloud/docqa/internal/splitter"
	"github.com/docqa-cloud/docqa/internal/transport/httpapi"
	openaiT "github.com/docqa-cloud/docqa/internal/transport/openai"
	healthuc "github.com/docqa-cloud/docqa/internal/usecase/health"
	qauc "github.com/docqa-cloud/docqa/internal/usecase/qa"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docqa API server",
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("embedding_model", cfg.LLM.EmbeddingModel),
		zap.String("generation_model", cfg.LLM.GenerationModel),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterLLMMetrics()
	metrics.RegisterSessionMetrics()

	// Create cache store based on driver
	var store db.Store
	switch cfg.Cache.Driver {
	case "redis":
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		if err := redisStore.WaitForReady(context.Background(), 30*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		store = redisStore
		logger.Info("Connected to redis cache", zap.Strings("addrs", cfg.Cache.Addrs))
	case "memory":
		store = dbMemory.NewStore()
	case "none":
		// embeddings are recomputed on every request
	}
	if store != nil {
		defer store.Close()
	}

	// Build embedder chain — composition root
	baseEmbedder := openaiT.NewEmbedder(&openaiT.EmbedderConfig{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.EmbeddingModel,
		Dimensions: cfg.LLM.EmbeddingDimensions,
		Logger:     logger,
	})
	var embedder domain.Embedder = baseEmbedder
	if store != nil {
		embedder = embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)
	}

	generator := openaiT.NewGenerator(&openaiT.GeneratorConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.GenerationModel,
		Logger:  logger,
	})

	// Session store builds one index per uploaded document
	sessions := session.New(
		func(ctx context.Context, chunks []domain.Chunk) (domain.Retriever, error) {
			return index.Build(ctx, chunks, embedder)
		},
		time.Duration(cfg.Session.TimeoutSec)*time.Second,
		logger,
	)

	// Background expiry sweep; read paths also sweep on demand
	sweepStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Session.SweepIntervalSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sessions.Sweep()
			case <-sweepStop:
				return
			}
		}
	}()

	qaSvc := qauc.New(
		sessions,
		generator,
		qauc.LoaderFunc(loader.Load),
		splitter.Config{ChunkSize: cfg.Retrieval.ChunkSize, ChunkOverlap: cfg.Retrieval.ChunkOverlap},
		qauc.Config{
			TopK:             cfg.Retrieval.TopK,
			SummaryTopK:      cfg.Retrieval.SummaryTopK,
			AnswerMaxTokens:  cfg.LLM.AnswerMaxTokens,
			SummaryMaxTokens: cfg.LLM.SummaryMaxTokens,
			CompareMaxTokens: cfg.LLM.CompareMaxTokens,
		},
		logger,
	)

	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(cachePinger, baseEmbedder)

	server := httpapi.NewServer(qaSvc, healthSvc, httpapi.UploadLimits{
		Dir:      cfg.Upload.Dir,
		MaxBytes: cfg.Upload.MaxBytes,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

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
	close(sweepStop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
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
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
