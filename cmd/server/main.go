/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the waterfall HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse flags
  2. Resolve waterfall terms (config file, then environment)
  3. Initialize SQLite store, optionally importing the CSV files
  4. Create API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: waterfall.db)
             Use ":memory:" for in-memory database
  -config    Optional YAML or JSON file with waterfall terms
  -data-dir  Directory holding the CSV files (default: ./data)
  -import    Load the CSV files into the database at startup
  -example   Use the test_ sample files for -import and /api/admin/import

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/waterfall.db"

  # In-memory database seeded with the sample files
  ./server -db=":memory:" -import -example

ENVIRONMENT:
  WATERFALL_LOG_LEVEL and the WATERFALL_*_PCT / WATERFALL_CURRENCY_SYMBOL
  overrides documented in factory/config.go. A .env file in the working
  directory is loaded first.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/i5m/waterfall/api"
	"github.com/i5m/waterfall/factory"
	"github.com/i5m/waterfall/ingest"
	"github.com/i5m/waterfall/logger"
	"github.com/i5m/waterfall/store/sqlite"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "waterfall.db", "SQLite database path")
	configPath := flag.String("config", "", "YAML or JSON file with waterfall terms")
	dataDir := flag.String("data-dir", "./data", "directory holding the CSV files")
	importCSV := flag.Bool("import", false, "load the CSV files at startup")
	example := flag.Bool("example", false, "use the test_ sample CSV files")
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	settings, err := factory.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer store.Close()

	if *importCSV {
		if _, err := ingest.LoadFiles(ctx, ingest.Paths(*dataDir, *example), store); err != nil {
			log.Fatal().Err(err).Msg("Failed to import CSV files")
		}
	}

	handler, err := api.NewHandler(store, settings, *dataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid waterfall config")
	}
	router := api.NewRouter(handler, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Int("port", *port).
			Str("db", *dbPath).
			Str("preferred_return_rate", settings.Waterfall.PreferredReturnRate().String()).
			Str("carried_interest_rate", settings.Waterfall.CarriedInterestRate().String()).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server stopped")
}
