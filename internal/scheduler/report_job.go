package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/modules/optimization"
)

// PortfolioLister enumerates the portfolios a job should cover
type PortfolioLister interface {
	ListPortfolios() ([]string, error)
}

// ReportJob runs the standard optimization strategies against every recorded
// portfolio and logs the outcome. Results are not persisted here, the job
// exists to surface data problems (missing prices, non-convergence) nightly
// instead of at request time.
type ReportJob struct {
	engine *optimization.Engine
	ledger PortfolioLister
	log    zerolog.Logger
}

// NewReportJob creates the nightly optimization report job
func NewReportJob(engine *optimization.Engine, ledger PortfolioLister, log zerolog.Logger) *ReportJob {
	return &ReportJob{
		engine: engine,
		ledger: ledger,
		log:    log.With().Str("job", "optimization_report").Logger(),
	}
}

// Name returns the job name
func (j *ReportJob) Name() string { return "optimization_report" }

// Run optimizes each portfolio with the default strategy set. Failures are
// logged per portfolio so one broken ledger does not mask the others; the
// job itself fails only when no portfolio could be processed.
func (j *ReportJob) Run() error {
	uids, err := j.ledger.ListPortfolios()
	if err != nil {
		return err
	}
	if len(uids) == 0 {
		return nil
	}

	strategies := map[string]optimization.StrategyParams{
		optimization.StrategyMinVariance: {},
		optimization.StrategyMaxSharpe:   {},
		optimization.StrategyRiskParity:  {},
	}

	processed := 0
	for _, uid := range uids {
		report, err := j.engine.Run(uid, strategies)
		if err != nil {
			j.log.Warn().Err(err).Str("portfolio", uid).Msg("Optimization report failed")
			continue
		}
		processed++

		for name, result := range report.Results {
			if !result.Success {
				j.log.Warn().
					Str("portfolio", uid).
					Str("strategy", name).
					Msg("Strategy did not converge")
			}
		}
		j.log.Info().
			Str("portfolio", uid).
			Str("report_id", report.ID).
			Int("strategies", len(report.Results)).
			Msg("Optimization report generated")
	}

	if processed == 0 {
		return fmt.Errorf("optimization report failed for all %d portfolios", len(uids))
	}
	return nil
}
