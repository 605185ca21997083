/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the sales valuation and reporting server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize the structured logger
  3. Open the SQLite store
  4. Load the category map (optional)
  5. Create the API handler and router
  6. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -port        HTTP server port (default: 8080)
  -db          SQLite database path (default: sales.db, ":memory:" works)
  -categories  Path to the YAML category map (optional)
  -admins      Comma-separated actors allowed to view attribution
               (empty = everyone, development default)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  active requests, close the database, exit.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sachifps/sell-smart-start-sub000/api"
	"github.com/sachifps/sell-smart-start-sub000/engine"
	"github.com/sachifps/sell-smart-start-sub000/factory"
	"github.com/sachifps/sell-smart-start-sub000/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "sales.db", "SQLite database path")
	categoriesPath := flag.String("categories", "", "YAML category map path")
	admins := flag.String("admins", "", "comma-separated actors allowed to view attribution")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	var categories engine.CategoryMap
	if *categoriesPath != "" {
		categories, err = factory.LoadCategories(*categoriesPath)
		if err != nil {
			logger.Fatal("failed to load categories", zap.Error(err))
		}
		logger.Info("category map loaded", zap.Int("products", len(categories)))
	}

	var auth engine.Authorizer = api.AllowAll{}
	if *admins != "" {
		privileged := make(map[string]bool)
		for _, actor := range strings.Split(*admins, ",") {
			privileged[strings.TrimSpace(actor)] = true
		}
		auth = &api.StaticAuthorizer{Privileged: privileged}
	}

	handler := api.NewHandler(store, categories, auth, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
