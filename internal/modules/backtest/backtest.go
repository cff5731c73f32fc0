// Package backtest replays simple long/flat technical signals over a price
// history and reports the resulting performance statistics.
package backtest

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/pkg/formulas"
)

// Signal emits a target exposure per bar: 1 for long, 0 for flat
type Signal interface {
	Name() string
	Positions(closes []float64) []float64
}

// SMACross goes long while the fast moving average is above the slow one
type SMACross struct {
	Fast int
	Slow int
}

// Name returns the signal identifier
func (s SMACross) Name() string { return fmt.Sprintf("sma_cross_%d_%d", s.Fast, s.Slow) }

// Positions computes the per-bar exposure
func (s SMACross) Positions(closes []float64) []float64 {
	fast := talib.Sma(closes, s.Fast)
	slow := talib.Sma(closes, s.Slow)

	pos := make([]float64, len(closes))
	for i := range closes {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) && fast[i] > slow[i] && slow[i] != 0 {
			pos[i] = 1
		}
	}
	return pos
}

// RSIReversion goes long when the RSI drops below the oversold threshold and
// exits once it recovers past the overbought one.
type RSIReversion struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// Name returns the signal identifier
func (s RSIReversion) Name() string { return fmt.Sprintf("rsi_reversion_%d", s.Period) }

// Positions computes the per-bar exposure
func (s RSIReversion) Positions(closes []float64) []float64 {
	rsi := talib.Rsi(closes, s.Period)

	pos := make([]float64, len(closes))
	holding := false
	for i := range closes {
		if math.IsNaN(rsi[i]) || rsi[i] == 0 {
			continue
		}
		if !holding && rsi[i] < s.Oversold {
			holding = true
		} else if holding && rsi[i] > s.Overbought {
			holding = false
		}
		if holding {
			pos[i] = 1
		}
	}
	return pos
}

// Summary holds the outcome of one backtest run
type Summary struct {
	UID                  string    `json:"uid"`
	Signal               string    `json:"signal"`
	Bars                 int       `json:"bars"`
	Trades               int       `json:"trades"`
	TotalReturn          float64   `json:"total_return"`
	AnnualizedReturn     float64   `json:"annualized_return"`
	AnnualizedVolatility float64   `json:"annualized_volatility"`
	Sharpe               float64   `json:"sharpe"`
	MaxDrawdown          float64   `json:"max_drawdown"`
	HitRate              float64   `json:"hit_rate"` // share of invested bars with a positive return
	Equity               []float64 `json:"equity"`
}

// Runner executes signals against stored price histories
type Runner struct {
	prices domain.PriceSource
	log    zerolog.Logger
}

// NewRunner creates a backtest runner
func NewRunner(prices domain.PriceSource, log zerolog.Logger) *Runner {
	return &Runner{
		prices: prices,
		log:    log.With().Str("service", "backtest").Logger(),
	}
}

// Run replays one signal over the uid's full price history. Exposure is
// lagged one bar: the position decided at bar i earns bar i+1's return.
func (r *Runner) Run(uid string, sig Signal) (*Summary, error) {
	series, err := r.prices.GetPrices(uid)
	if err != nil {
		return nil, err
	}

	closes := compact(series.Values)
	if len(closes) < 3 {
		return nil, fmt.Errorf("not enough price observations for %s", uid)
	}

	pos := sig.Positions(closes)
	rets := formulas.SimpleReturns(closes)

	equity := make([]float64, len(closes))
	equity[0] = 1
	var strategyReturns []float64
	trades := 0
	invested, wins := 0, 0

	for i := 1; i < len(closes); i++ {
		exposure := pos[i-1]
		ret := 0.0
		if exposure != 0 && !math.IsNaN(rets[i-1]) {
			ret = exposure * rets[i-1]
			invested++
			if ret > 0 {
				wins++
			}
		}
		equity[i] = equity[i-1] * (1 + ret)
		strategyReturns = append(strategyReturns, ret)

		if pos[i] != pos[i-1] {
			trades++
		}
	}

	hitRate := 0.0
	if invested > 0 {
		hitRate = float64(wins) / float64(invested)
	}

	vol := formulas.AnnualizedVolatility(strategyReturns)
	annRet := formulas.AnnualizedReturn(strategyReturns)

	s := &Summary{
		UID:                  uid,
		Signal:               sig.Name(),
		Bars:                 len(closes),
		Trades:               trades,
		TotalReturn:          equity[len(equity)-1] - 1,
		AnnualizedReturn:     annRet,
		AnnualizedVolatility: vol,
		Sharpe:               formulas.Sharpe(annRet, vol*vol),
		MaxDrawdown:          maxDrawdown(equity),
		HitRate:              hitRate,
		Equity:               equity,
	}

	r.log.Debug().
		Str("uid", uid).
		Str("signal", s.Signal).
		Int("trades", s.Trades).
		Float64("total_return", s.TotalReturn).
		Msg("Backtest completed")

	return s, nil
}

// compact drops NaN prices, keeping the tradable observations
func compact(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// maxDrawdown is the largest peak-to-trough loss of the equity curve,
// reported as a positive fraction.
func maxDrawdown(equity []float64) float64 {
	peak := equity[0]
	worst := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := 1 - v/peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
