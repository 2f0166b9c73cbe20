package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mhollis/dealflow/internal/config"
	"github.com/mhollis/dealflow/internal/db"
	"github.com/mhollis/dealflow/internal/export"
	"github.com/mhollis/dealflow/internal/middleware"
	"github.com/mhollis/dealflow/internal/negotiation"
	"github.com/mhollis/dealflow/internal/repository"

	"github.com/rs/cors"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DB, cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create store and repositories
	store := repository.NewPgStore(conn)
	partyRepo := repository.NewPartyRepository(conn.Pool)

	// Create services
	negotiationService := negotiation.NewService(store)
	exportService := export.NewService(store, partyRepo)

	// Start the expiry sweeper next to the server
	sweeper := negotiation.NewSweeper(negotiationService, cfg.SweepInterval)
	go sweeper.Run(ctx)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	withParties := middleware.PartyLoaderMiddleware(partyRepo)

	offerHandler := middleware.LoggingMiddleware(
		withParties(negotiation.NewHTTPHandler(negotiationService)),
	)
	transactionHandler := middleware.LoggingMiddleware(
		negotiation.NewTransactionHTTPHandler(negotiationService),
	)
	exportHandler := middleware.LoggingMiddleware(export.NewHTTPHandler(exportService))
	sweepHandler := middleware.LoggingMiddleware(negotiation.NewSweepHTTPHandler(negotiationService))

	mux := http.NewServeMux()
	mux.Handle("/offers", corsHandler.Handler(offerHandler))
	mux.Handle("/offers/", corsHandler.Handler(offerHandler))
	mux.Handle("/transactions/", corsHandler.Handler(&transactionRouter{
		transactions: transactionHandler,
		exports:      exportHandler,
	}))
	mux.Handle("/sweep", corsHandler.Handler(sweepHandler))

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting negotiation server on %s", cfg.HTTPAddr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// transactionRouter sends the export sub-path to the export handler and
// everything else under /transactions/ to the read endpoints.
type transactionRouter struct {
	transactions http.Handler
	exports      http.Handler
}

func (t *transactionRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/export") {
		t.exports.ServeHTTP(w, r)
		return
	}
	t.transactions.ServeHTTP(w, r)
}
