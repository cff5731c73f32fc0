// Package main is the entry point for the Folio analytics server. It wires
// the market and ledger databases, the portfolio reconstruction and
// valuation services, the optimization engine and the signal backtester
// behind one HTTP API, with nightly maintenance and report jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/market"
	"github.com/aristath/folio/internal/modules/backtest"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/aristath/folio/internal/server"
	"github.com/aristath/folio/pkg/logger"
)

const (
	// Six-field cron expressions, seconds first. Both run well outside
	// trading hours.
	maintenanceSchedule = "0 30 3 * * *"
	reportSchedule      = "0 0 4 * * *"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Folio")

	// Market data is read-heavy and replaceable, the ledger is an
	// immutable audit trail.
	marketDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "market.db"),
		Profile: database.ProfileStandard,
		Name:    "market",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open market database")
	}
	defer marketDB.Close()

	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	if err := marketDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate market database")
	}
	if err := ledgerDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate ledger database")
	}

	// Zero t0 pins the evaluation date to the last trading day on record.
	calendar, err := market.LoadCalendar(marketDB, time.Time{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load trading calendar")
	}
	log.Info().
		Int("trading_days", calendar.Len()).
		Time("t0", calendar.T0()).
		Msg("Trading calendar loaded")

	mktCtx := market.NewContext(marketDB, ledgerDB, calendar, log)

	reconstructor := portfolio.NewReconstructor(mktCtx.Ledger, mktCtx, calendar, log)
	valuer := portfolio.NewValuer(mktCtx, mktCtx, mktCtx, log)
	portfolioHandler := portfolio.NewHandler(reconstructor, valuer, mktCtx.Ledger, log)

	builder := optimization.NewMatrixBuilder(mktCtx, mktCtx, mktCtx, log)
	engine := optimization.NewEngine(reconstructor, builder, calendar, mktCtx.Rates, optimization.Config{
		Iterations:     cfg.Iterations,
		Gamma:          cfg.Gamma,
		FrontierPoints: cfg.FrontierPoints,
		RiskFreeUID:    cfg.RiskFreeUID,
	}, log)
	optimizationHandler := optimization.NewHandler(engine, log)

	runner := backtest.NewRunner(mktCtx, log)
	backtestHandler := backtest.NewHandler(runner, log)

	dbs := map[string]*database.DB{
		"market": marketDB,
		"ledger": ledgerDB,
	}

	sched := scheduler.New(log)
	maintenanceJob := scheduler.NewMaintenanceJob(dbs, log)
	reportJob := scheduler.NewReportJob(engine, mktCtx.Ledger, log)

	if err := sched.AddJob(maintenanceSchedule, maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule maintenance job")
	}
	if err := sched.AddJob(reportSchedule, reportJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule report job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:                 log,
		Cfg:                 cfg,
		MarketDB:            marketDB,
		LedgerDB:            ledgerDB,
		PortfolioHandler:    portfolioHandler,
		OptimizationHandler: optimizationHandler,
		BacktestHandler:     backtestHandler,
		Scheduler:           sched,
		MaintenanceJob:      maintenanceJob,
		ReportJob:           reportJob,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
