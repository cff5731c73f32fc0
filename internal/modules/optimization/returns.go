// Package optimization builds currency-adjusted return matrices and runs
// portfolio optimization strategies over them: minimal variance, max Sharpe,
// the Markowitz efficient frontier, risk parity and the capital allocation
// line.
package optimization

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/market"
)

// MatrixBuilder assembles the assets x dates matrix of base-currency simple
// returns the optimizers consume. It is stateless: price histories may change
// between calls, so nothing is cached here.
type MatrixBuilder struct {
	prices domain.PriceSource
	fx     domain.FxSource
	assets domain.AssetSource
	log    zerolog.Logger
}

// NewMatrixBuilder creates a new returns matrix builder
func NewMatrixBuilder(prices domain.PriceSource, fx domain.FxSource, assets domain.AssetSource, log zerolog.Logger) *MatrixBuilder {
	return &MatrixBuilder{
		prices: prices,
		fx:     fx,
		assets: assets,
		log:    log.With().Str("component", "returns_matrix").Logger(),
	}
}

// Build returns one row of adjusted returns per uid, rows aligned 1:1 with
// the input order. Currency uids yield their conversion return series into
// the base currency (a constant zero series for the base itself). Asset uids
// that cannot be resolved fall back to the currency path; if that fails too
// the error propagates, there is no silent substitution.
func (b *MatrixBuilder) Build(uids []string, baseCurrency string) (*mat.Dense, error) {
	if len(uids) == 0 {
		return nil, domain.NewMissingData("", "no uids to build returns for")
	}

	var cols int
	rows := make([]domain.Series, len(uids))
	for i, uid := range uids {
		s, err := b.seriesFor(uid, baseCurrency)
		if err != nil {
			return nil, err
		}
		rows[i] = s
		cols = s.Len()
	}

	m := mat.NewDense(len(uids), cols, nil)
	for i, s := range rows {
		m.SetRow(i, s.Values)
	}
	return m, nil
}

func (b *MatrixBuilder) seriesFor(uid, baseCurrency string) (domain.Series, error) {
	asset, err := b.assets.GetAsset(uid)
	if err != nil {
		if !domain.IsMissingData(err) {
			return domain.Series{}, err
		}
		return b.currencySeries(uid, baseCurrency)
	}

	if asset.Type == domain.AssetCash || asset.Type == domain.AssetCurrency {
		return b.currencySeries(uid, baseCurrency)
	}

	return market.AdjustedReturns(b.prices, b.fx, uid, asset.Currency, baseCurrency)
}

// currencySeries is the conversion return series of a currency into the base
func (b *MatrixBuilder) currencySeries(uid, baseCurrency string) (domain.Series, error) {
	conv, err := b.fx.GetConversion(uid, baseCurrency)
	if err != nil {
		return domain.Series{}, err
	}
	return conv.Returns(), nil
}
