/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the SKU budget allocator server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse flags
  2. Configure logrus
  3. Initialize SQLite store
  4. Create API handler and router
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/allocator.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port with debug logs
  PORT=3000 LOG_LEVEL=debug ./server

SEE ALSO:
  - config.go: Flags and environment
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
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

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/warp/sku-allocator/api"
	"github.com/warp/sku-allocator/store/sqlite"
)

func main() {
	// A missing .env is fine; the environment may be set by the host.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := loadConfig(os.Args[1:], os.Getenv)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	handler := api.NewHandler(store, log)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.AllowedOrigins})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "db": cfg.DBPath}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
		return
	}

	log.Info("server stopped")
}
