package optimization

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/market"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/pkg/formulas"
)

// Config carries the engine-level optimizer defaults
type Config struct {
	Iterations     int
	Workers        int
	Gamma          float64
	FrontierPoints int
	RiskFreeUID    string
}

// Report is the consolidated outcome of one optimization run: the shared
// inputs metadata plus one Result per requested strategy. Strategies that
// could not even be constructed land in Errors instead, one bad request
// entry does not abort the batch.
type Report struct {
	ID           string             `json:"id"`
	PortfolioUID string             `json:"portfolio_uid"`
	GeneratedAt  time.Time          `json:"generated_at"`
	From         time.Time          `json:"from"`
	To           time.Time          `json:"to"`
	UIDs         []string           `json:"uids"`
	Gamma        float64            `json:"gamma"`
	Results      map[string]*Result `json:"results"`
	Errors       map[string]string  `json:"errors,omitempty"`
}

// Engine orchestrates optimization runs: it reconstructs the portfolio,
// builds the shared annualized inputs once, and fans out to the requested
// strategies.
type Engine struct {
	reconstructor *portfolio.Reconstructor
	builder       *MatrixBuilder
	calendar      *market.Calendar
	rates         domain.RateSource
	cfg           Config
	log           zerolog.Logger
}

// NewEngine creates the optimization engine
func NewEngine(
	reconstructor *portfolio.Reconstructor,
	builder *MatrixBuilder,
	calendar *market.Calendar,
	rates domain.RateSource,
	cfg Config,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		reconstructor: reconstructor,
		builder:       builder,
		calendar:      calendar,
		rates:         rates,
		cfg:           cfg,
		log:           log.With().Str("service", "optimization").Logger(),
	}
}

// Run executes the requested strategies against one portfolio. Expected
// returns and covariance are computed once, annualized by the trading-day
// constant, and shared across strategies. The risk-free rate is fetched only
// when the CAL strategy is actually requested.
func (e *Engine) Run(portfolioUID string, requests map[string]StrategyParams) (*Report, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("no strategies requested")
	}

	p, err := e.reconstructor.Reconstruct(portfolioUID)
	if err != nil {
		return nil, err
	}
	if len(p.ConstituentUIDs) == 0 {
		return nil, fmt.Errorf("portfolio %s has no constituents to optimize", portfolioUID)
	}

	matrix, err := e.builder.Build(p.ConstituentUIDs, p.Info.BaseCurrency)
	if err != nil {
		return nil, err
	}

	mu, sigma, err := annualize(matrix)
	if err != nil {
		return nil, err
	}

	in := strategyInputs{
		labels: p.ConstituentUIDs,
		mu:     mu,
		sigma:  sigma,
		opts: Options{
			Budget:     1,
			Gamma:      e.cfg.Gamma,
			Iterations: e.cfg.Iterations,
			Workers:    e.cfg.Workers,
		},
		points: e.cfg.FrontierPoints,
	}

	if _, wantsCAL := requests[StrategyCAL]; wantsCAL {
		rf, err := e.rates.GetRate(e.cfg.RiskFreeUID, e.calendar.T0())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch risk-free rate: %w", err)
		}
		in.riskFree = rf
	}

	report := &Report{
		ID:           uuid.New().String(),
		PortfolioUID: portfolioUID,
		GeneratedAt:  time.Now().UTC(),
		From:         e.calendar.Start(),
		To:           e.calendar.T0(),
		UIDs:         p.ConstituentUIDs,
		Gamma:        e.cfg.Gamma,
		Results:      make(map[string]*Result, len(requests)),
	}

	for name, params := range requests {
		strategy, err := newStrategy(name, in, params)
		if err != nil {
			e.log.Warn().Err(err).Str("strategy", name).Msg("Skipping strategy")
			if report.Errors == nil {
				report.Errors = make(map[string]string)
			}
			report.Errors[name] = err.Error()
			continue
		}

		result := strategy.Result()
		report.Results[name] = result
		e.log.Info().
			Str("strategy", name).
			Bool("success", result.Success).
			Int("points", len(result.Weights)).
			Msg("Strategy completed")
	}

	return report, nil
}

// annualize derives the expected-return vector and covariance matrix from
// daily returns, scaled by the trading-days-per-year constant. Dates where
// any constituent has a NaN return are excluded from both estimates.
func annualize(m *mat.Dense) ([]float64, *mat.SymDense, error) {
	assets, dates := m.Dims()

	var complete [][]float64
	for d := 0; d < dates; d++ {
		col := make([]float64, assets)
		valid := true
		for a := 0; a < assets; a++ {
			col[a] = m.At(a, d)
			if math.IsNaN(col[a]) {
				valid = false
				break
			}
		}
		if valid {
			complete = append(complete, col)
		}
	}

	if len(complete) < 2 {
		return nil, nil, fmt.Errorf("not enough overlapping return observations (%d)", len(complete))
	}

	obs := mat.NewDense(len(complete), assets, nil)
	for r, col := range complete {
		obs.SetRow(r, col)
	}

	mu := make([]float64, assets)
	for a := 0; a < assets; a++ {
		mu[a] = stat.Mean(mat.Col(nil, a, obs), nil) * formulas.TradingDaysPerYear
	}

	sigma := mat.NewSymDense(assets, nil)
	stat.CovarianceMatrix(sigma, obs, nil)
	for i := 0; i < assets; i++ {
		for j := i; j < assets; j++ {
			sigma.SetSym(i, j, sigma.At(i, j)*formulas.TradingDaysPerYear)
		}
	}

	return mu, sigma, nil
}
