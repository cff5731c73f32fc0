// Package server exposes the analytics toolkit over HTTP: portfolio
// valuation, optimization runs, signal backtests and system monitoring.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/modules/backtest"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/scheduler"
)

// Config holds everything the server needs wired in
type Config struct {
	Log                 zerolog.Logger
	Cfg                 *config.Config
	MarketDB            *database.DB
	LedgerDB            *database.DB
	PortfolioHandler    *portfolio.Handler
	OptimizationHandler *optimization.Handler
	BacktestHandler     *backtest.Handler
	Scheduler           *scheduler.Scheduler
	MaintenanceJob      scheduler.Job
	ReportJob           scheduler.Job
}

// Server is the HTTP front of the toolkit
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	portfolioH     *portfolio.Handler
	optimizationH  *optimization.Handler
	backtestH      *backtest.Handler
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Cfg.DataDir,
		map[string]*database.DB{
			"market": cfg.MarketDB,
			"ledger": cfg.LedgerDB,
		},
		cfg.Scheduler,
		cfg.MaintenanceJob,
		cfg.ReportJob,
	)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		portfolioH:     cfg.PortfolioHandler,
		optimizationH:  cfg.OptimizationHandler,
		backtestH:      cfg.BacktestHandler,
		systemHandlers: systemHandlers,
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// Optimization runs can be slow, the write timeout above is the cap
	s.router.Use(middleware.Timeout(120 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/databases", s.systemHandlers.HandleDatabaseStats)
			r.Post("/jobs/maintenance", s.systemHandlers.HandleTriggerMaintenance)
			r.Post("/jobs/report", s.systemHandlers.HandleTriggerReport)
		})

		r.Route("/portfolios/{uid}", func(r chi.Router) {
			r.Get("/summary", s.portfolioH.HandleSummary)
			r.Get("/weights", s.portfolioH.HandleWeights)
			r.Get("/concentrations", s.portfolioH.HandleConcentrations)
		})

		r.Route("/optimization", func(r chi.Router) {
			r.Get("/strategies", s.optimizationH.HandleStrategies)
			r.Post("/run", s.optimizationH.HandleOptimize)
		})

		r.Get("/backtest/{uid}", s.backtestH.HandleRun)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"status":"ok"}`)
}

// loggingMiddleware logs each request with latency
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

// Start begins serving. Blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// Router exposes the mux for tests
func (s *Server) Router() http.Handler { return s.router }
