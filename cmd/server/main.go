package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"notetree/internal/config"
	"notetree/internal/domain/repositories"
	"notetree/internal/handler"
	"notetree/internal/handler/sse"
	"notetree/internal/middleware"
	"notetree/internal/repository"
	"notetree/internal/repository/cache"
	"notetree/internal/service/notetree"
	"notetree/internal/service/retention"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logOutput, closeLog, err := config.SetupLogOutput(cfg.LogDir, cfg.LogMaxFiles)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	logger := config.NewLogger(cfg.Environment, logOutput)
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.StoreDriver,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	services := notetree.Setup(repo, cache.New(cfg.CacheSize), notetree.Options{
		HistoryDepth:  cfg.HistoryDepth,
		SortIncrement: cfg.SortIncrement,
	}, logger)

	// Start with whatever the store has; an unreachable store is retried via POST /api/reload
	if _, err := services.Coordinator.Reload(ctx); err != nil {
		logger.Error("initial load failed", "error", err)
	}

	if purgeable, ok := repo.(repositories.Purger); ok && cfg.PurgeAfter > 0 {
		purger := retention.NewPurger(purgeable, services.Coordinator, cfg.PurgeAfter, cfg.PurgeInterval, logger)
		go purger.Run(ctx)
		logger.Info("soft-delete purge enabled", "after", cfg.PurgeAfter, "interval", cfg.PurgeInterval)
	}

	mux := handler.NewRouter(services, sse.DefaultConfig(), logger)

	// Build middleware chain
	// Order: CORS → Recovery → RequestLogger → Routes
	var h http.Handler = mux
	h = middleware.RequestLogger(logger)(h)
	h = middleware.Recovery(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "X-Request-ID", "Last-Event-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		Debug:            cfg.Debug && cfg.Environment == "dev",
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		stop()
	}
	<-shutdownDone
}
