package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/ledger-service/internal/api/handlers"
	"github.com/dvloznov/ledger-service/internal/api/middleware"
	"github.com/dvloznov/ledger-service/internal/ledger"
	"github.com/dvloznov/ledger-service/internal/ledger/inmemory"
	"github.com/dvloznov/ledger-service/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		port = flag.String("port", defaultPort(), "HTTP server port (or set LEDGER_PORT env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	// Initialize the ledger: in-memory storage behind the engine. State lives
	// for the process lifetime only.
	store := inmemory.NewStore()
	service := ledger.NewService(store, log)

	// Initialize handlers
	ledgerHandler := handlers.NewLedgerHandler(service, log)

	// Create router
	mux := http.NewServeMux()

	// Ledger endpoints
	mux.HandleFunc("/ledger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ledgerHandler.GetLedger(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Account endpoints: /accounts/{accountId}/{transactions|balance|balanceAt}
	mux.HandleFunc("/accounts/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/accounts/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		accountID, action := parts[0], parts[1]

		switch action {
		case "transactions":
			switch r.Method {
			case http.MethodPost:
				ledgerHandler.RecordTransaction(w, r, accountID)
			case http.MethodGet:
				ledgerHandler.GetTransactionHistory(w, r, accountID)
			default:
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		case "balance":
			if r.Method == http.MethodGet {
				ledgerHandler.GetCurrentBalance(w, r, accountID)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		case "balanceAt":
			if r.Method == http.MethodGet {
				ledgerHandler.GetBalanceAt(w, r, accountID)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting ledger API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// defaultPort reads LEDGER_PORT, falling back to 8080.
func defaultPort() string {
	if p := os.Getenv("LEDGER_PORT"); p != "" {
		return p
	}
	return "8080"
}
