/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the kiosk ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and build configuration from env + flags
  2. Initialize SQLite store
  3. Wire the ledger service
  4. Configure HTTP router and the background checkpoint scheduler
  5. Start server with graceful shutdown

CONFIGURATION:
  Environment (or .env file), overridable by flags:
    KIOSK_ADDR            listen address (-a), default localhost:8080
    KIOSK_DB_PATH         SQLite path (-d), ":memory:" for in-memory
    KIOSK_LOG_LEVEL       logrus level (-l), default info
    KIOSK_CACHE_INTERVAL  checkpoint cadence (-c), default 10m

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the checkpoint scheduler
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration assembly
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/kiosk-ledger/api"
	"github.com/warp/kiosk-ledger/config"
	"github.com/warp/kiosk-ledger/ledger"
	"github.com/warp/kiosk-ledger/store/sqlite"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := config.NewBuilder(logger).
		FromEnv().
		FromFlags().
		GetConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	interval, err := time.ParseDuration(cfg.CacheInterval)
	if err != nil {
		logger.WithError(err).Fatal("invalid cache interval")
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	service := ledger.NewService(store, store, logger)
	handler := api.NewHandler(service)
	router := api.NewRouter(handler)

	scheduler := api.NewCacheScheduler(service, logger, interval)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("server forced to shutdown")
	}

	logger.Info("server stopped")
}
