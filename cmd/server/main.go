/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the trip insight engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Load per-diem rules from JSON, if provided
  4. Create tracker and API handler with dependencies
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: trips.db)
           Use ":memory:" for in-memory database
  -rules   Path to a per-diem rule set JSON file (optional)
  -lat     Station latitude for the static position source
  -lon     Station longitude for the static position source

POSITIONING:
  The standalone server has no device positioning gateway; session
  start and stop fixes come from a static point configured with
  -lat/-lon, and movement arrives via the sample endpoint.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database and a rule set
  ./server -db="./data/trips.db" -rules="./rules.json"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/trip-insight-engine/api"
	"github.com/warp/trip-insight-engine/diag"
	"github.com/warp/trip-insight-engine/factory"
	"github.com/warp/trip-insight-engine/geo"
	"github.com/warp/trip-insight-engine/store/sqlite"
	"github.com/warp/trip-insight-engine/tracking"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "trips.db", "SQLite database path")
	rulesPath := flag.String("rules", "", "per-diem rule set JSON file")
	lat := flag.Float64("lat", 0, "station latitude for the static position source")
	lon := flag.Float64("lon", 0, "station longitude for the static position source")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Load per-diem rules
	if *rulesPath != "" {
		if err := loadRules(store, *rulesPath); err != nil {
			log.Fatalf("Failed to load rules from %s: %v", *rulesPath, err)
		}
		log.Printf("Loaded per-diem rules from %s", *rulesPath)
	}

	// Initialize tracker and handler
	rec := diag.LogRecorder{}
	tracker := tracking.NewTracker(
		tracking.StaticProvider{Point: geo.Point{Lat: *lat, Lon: *lon}},
		tracking.CoordinateGeocoder{},
		rec,
	)
	handler := api.NewHandler(store, tracker, rec)

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// loadRules parses a rule set file and upserts every rule, marking the
// configured default.
func loadRules(store *sqlite.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ruleSet, err := factory.NewRuleFactory().ParseRuleSet(data)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for cc, rule := range ruleSet.Rules {
		if err := store.SaveRule(ctx, rule, cc == ruleSet.Default.CostCenter); err != nil {
			return err
		}
	}
	return nil
}
