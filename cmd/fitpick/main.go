package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/catalog"
	"github.com/fitpick/fitpick/internal/config"
	"github.com/fitpick/fitpick/internal/imagefetch"
	logpkg "github.com/fitpick/fitpick/internal/logger"
	"github.com/fitpick/fitpick/internal/metrics"
	"github.com/fitpick/fitpick/internal/retry"
	chiTransport "github.com/fitpick/fitpick/internal/transport/chi"
	openaiTransport "github.com/fitpick/fitpick/internal/transport/openai"
	"github.com/fitpick/fitpick/internal/usecase/expand"
	healthuc "github.com/fitpick/fitpick/internal/usecase/health"
	"github.com/fitpick/fitpick/internal/usecase/recommend"
	"github.com/fitpick/fitpick/internal/usecase/summarize"
	"github.com/fitpick/fitpick/internal/usecase/validate"
	"github.com/fitpick/fitpick/internal/version"
)

func main() {
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

	logger.Info("Starting fitpick API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("llm_model", cfg.OpenAI.LLMModel),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// The catalog is loaded once and shared read-only by every request.
	store, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		logger.Fatal("Failed to load product catalog", zap.Error(err))
	}

	// One provider client, constructed once and shared by every component.
	client := openaiTransport.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)

	policy := retry.Policy{
		MaxAttempts:     cfg.Pipeline.Retry.MaxAttempts,
		InitialInterval: time.Duration(cfg.Pipeline.Retry.InitialBackoffMS) * time.Millisecond,
		MaxInterval:     time.Duration(cfg.Pipeline.Retry.MaxBackoffSec) * time.Second,
	}

	embedder := openaiTransport.NewEmbedder(
		client, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimensions, policy, logger,
	)
	chat := openaiTransport.NewChat(client, cfg.OpenAI.LLMModel, policy, logger)
	fetcher := imagefetch.New(
		time.Duration(cfg.Images.FetchTimeoutSec)*time.Second, cfg.Images.MaxBytes,
	)

	// Pipeline stages
	expander := expand.New(chat, logger)
	validator := validate.NewValidator(chat, fetcher, logger)
	orchestrator := validate.NewOrchestrator(
		validator,
		cfg.Pipeline.ValidationConcurrency,
		time.Duration(cfg.Pipeline.ValidationTimeoutSec)*time.Second,
		logger,
	)
	summarizer := summarize.New(chat, logger)

	pipeline := recommend.New(
		expander, embedder, store, orchestrator, summarizer,
		cfg.Pipeline.MinRating, cfg.Catalog.TopK, logger,
	)

	healthSvc := healthuc.New(store, embedder)

	server := chiTransport.NewServer(pipeline, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

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
						"code":    "internal_error",
						"message": "internal error",
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
			ctx := logpkg.ContextWith(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
