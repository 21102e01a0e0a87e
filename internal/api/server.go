// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/habit-stake/internal/logging"
	"github.com/habit-stake/internal/models"
	"github.com/habit-stake/internal/service"
	"github.com/habit-stake/internal/storage"
	"github.com/habit-stake/internal/types"
	"github.com/shopspring/decimal"
)

// Service interfaces for dependency injection and testing

// HabitServiceInterface defines the interface for habit lifecycle operations
type HabitServiceInterface interface {
	Create(ctx context.Context, input *service.CreateHabitInput) (*models.Habit, error)
	Get(ctx context.Context, habitID, ownerID string) (*service.HabitView, error)
	List(ctx context.Context, ownerID string) ([]*models.Habit, error)
	Update(ctx context.Context, input *service.UpdateHabitInput) (*models.Habit, error)
	Delete(ctx context.Context, habitID, ownerID string) error
}

// SettlementServiceInterface defines the interface for logging and ledger operations
type SettlementServiceInterface interface {
	Log(ctx context.Context, input *service.LogInput) (*service.LogResult, error)
	Stats(ctx context.Context, habitID, ownerID string) (*service.HabitStats, error)
	ListTransactions(ctx context.Context, filters *storage.TransactionFilters) ([]*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, txID string, status types.TransactionStatus, blockRef *uint64) (*models.Transaction, error)
	RetryTransaction(ctx context.Context, txID string) (*service.RetryResult, error)
}

// ReconciliationServiceInterface defines the interface for sweep operations
type ReconciliationServiceInterface interface {
	Run(ctx context.Context, input *service.RunInput) (*service.RunResult, error)
}

// BalanceReader exposes settlement-network balance lookups
type BalanceReader interface {
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
	ValidateAddress(address string) bool
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP API server.
type Server struct {
	router      *mux.Router
	httpServer  *http.Server
	habits      HabitServiceInterface
	settlement  SettlementServiceInterface
	reconciler  ReconciliationServiceInterface
	encourager  service.Encourager
	balances    BalanceReader
	dbPinger    Pinger
	cachePinger Pinger
	chainPinger Pinger
	config      *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestsPerSec  int
}

// ServerDeps bundles the collaborators the server routes to.
type ServerDeps struct {
	Habits      HabitServiceInterface
	Settlement  SettlementServiceInterface
	Reconciler  ReconciliationServiceInterface
	Encourager  service.Encourager
	Balances    BalanceReader
	DBPinger    Pinger
	CachePinger Pinger
	ChainPinger Pinger
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		habits:      deps.Habits,
		settlement:  deps.Settlement,
		reconciler:  deps.Reconciler,
		encourager:  deps.Encourager,
		balances:    deps.Balances,
		dbPinger:    deps.DBPinger,
		cachePinger: deps.CachePinger,
		chainPinger: deps.ChainPinger,
		config:      config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSec)

	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter)) // Rate limiting after CORS

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Habit endpoints
	api.HandleFunc("/habits", s.handleCreateHabit).Methods("POST")
	api.HandleFunc("/habits", s.handleListHabits).Methods("GET")
	api.HandleFunc("/habits/{id}", s.handleGetHabit).Methods("GET")
	api.HandleFunc("/habits/{id}", s.handleUpdateHabit).Methods("PUT")
	api.HandleFunc("/habits/{id}", s.handleDeleteHabit).Methods("DELETE")
	api.HandleFunc("/habits/{id}/log", s.handleLogHabit).Methods("POST")
	api.HandleFunc("/habits/{id}/stats", s.handleGetStats).Methods("GET")

	// Transaction ledger endpoints
	api.HandleFunc("/transactions", s.handleListTransactions).Methods("GET")
	api.HandleFunc("/transactions/{id}/status", s.handleUpdateTransactionStatus).Methods("PUT")
	api.HandleFunc("/transactions/{id}/retry", s.handleRetryTransaction).Methods("POST")

	// Wallet endpoints
	api.HandleFunc("/wallet/{address}/balance", s.handleGetBalance).Methods("GET")

	// Admin endpoints
	api.HandleFunc("/admin/reconcile", s.handleReconcile).Methods("POST")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	for name, p := range map[string]Pinger{
		"postgres": s.dbPinger,
		"redis":    s.cachePinger,
		"chain":    s.chainPinger,
	} {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			checks[name] = "unreachable"
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": "habit-stake",
		"checks":  checks,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
