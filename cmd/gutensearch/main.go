package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gutensearch/gutensearch/internal/builder"
	"github.com/gutensearch/gutensearch/internal/datalake"
	"github.com/gutensearch/gutensearch/internal/search"
	"github.com/gutensearch/gutensearch/internal/server"
	"github.com/gutensearch/gutensearch/internal/storage"
	"github.com/gutensearch/gutensearch/pkg/config"
	"github.com/gutensearch/gutensearch/pkg/health"
	"github.com/gutensearch/gutensearch/pkg/kafka"
	"github.com/gutensearch/gutensearch/pkg/logger"
	"github.com/gutensearch/gutensearch/pkg/metrics"
	"github.com/gutensearch/gutensearch/pkg/middleware"
	pkgredis "github.com/gutensearch/gutensearch/pkg/redis"
	"github.com/gutensearch/gutensearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting gutensearch",
		"port", cfg.Server.Port,
		"backend", cfg.Storage.Backend,
		"datalake", cfg.Datalake.Root,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backend storage.Backend
	err = resilience.Retry(ctx, "storage-connect", resilience.RetryConfig{MaxAttempts: 5}, func() error {
		var openErr error
		backend, openErr = storage.Open(cfg)
		return openErr
	})
	if err != nil {
		slog.Error("failed to connect to storage backend", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	if err := backend.TestConnection(ctx); err != nil {
		slog.Error("storage backend connection test failed", "error", err)
		os.Exit(1)
	}
	slog.Info("storage backend connected", "backend", cfg.Storage.Backend)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	var events builder.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		events = producer
		slog.Info("index event publishing enabled", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	var queryCache *search.Cache
	if redisClient, err := pkgredis.NewClient(cfg.Redis); err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = search.NewCache(redisClient, cfg.Redis, m)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", time.Duration(cfg.Redis.CacheTTL))
	}

	lake := datalake.New(cfg.Datalake.Root)
	indexBuilder := builder.New(lake, backend, events)
	engine := search.New(backend)
	h := server.New(indexBuilder, engine, queryCache, backend, m)

	checker := health.NewChecker()
	checker.Register("storage", func(ctx context.Context) health.ComponentHealth {
		if err := backend.TestConnection(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	// Read paths get a request timeout; the index paths do not, because a
	// full rebuild legitimately runs for as long as the corpus demands.
	readTimeout := middleware.Timeout(time.Duration(cfg.Server.WriteTimeout))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /index/update/{id}", h.IndexBook)
	mux.HandleFunc("POST /index/rebuild", h.Rebuild)
	mux.Handle("GET /index/status", readTimeout(http.HandlerFunc(h.IndexStatus)))
	mux.Handle("GET /search", readTimeout(http.HandlerFunc(h.Search)))
	mux.HandleFunc("GET /status", h.Status)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	// WriteTimeout stays unset on the server itself so rebuild responses
	// are never cut off mid-flight.
	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     chain,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout),
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout))
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("gutensearch listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("gutensearch stopped")
}
