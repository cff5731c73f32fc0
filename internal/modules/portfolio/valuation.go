package portfolio

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/market"
)

// Valuation is the portfolio priced in its base currency as of one date
type Valuation struct {
	Date    time.Time          `json:"date"`
	Total   float64            `json:"total"`
	Values  map[string]float64 `json:"values"`
	Weights map[string]float64 `json:"weights"`
}

// Bucket is one slice of a concentration breakdown
type Bucket struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// SummaryLine is one position row in a portfolio summary
type SummaryLine struct {
	UID       string           `json:"uid"`
	Type      domain.AssetType `json:"type"`
	Quantity  float64          `json:"quantity"`
	ALP       float64          `json:"alp"`
	CostBasis float64          `json:"cost_basis"`
	Value     float64          `json:"value"`
	Weight    float64          `json:"weight"`
}

// PortfolioSummary is the full human-facing portfolio report
type PortfolioSummary struct {
	Date        time.Time     `json:"date"`
	Total       float64       `json:"total"`
	Deposits    float64       `json:"deposits"`
	Withdrawals float64       `json:"withdrawals"`
	NetDeposits float64       `json:"net_deposits"`
	Lines       []SummaryLine `json:"lines"`
}

// Valuer prices reconstructed portfolios in their base currency
type Valuer struct {
	prices domain.PriceSource
	fx     domain.FxSource
	assets domain.AssetSource
	log    zerolog.Logger
}

// NewValuer creates a new portfolio valuer
func NewValuer(prices domain.PriceSource, fx domain.FxSource, assets domain.AssetSource, log zerolog.Logger) *Valuer {
	return &Valuer{
		prices: prices,
		fx:     fx,
		assets: assets,
		log:    log.With().Str("component", "valuer").Logger(),
	}
}

// Value prices every open position at-or-before the given date. Instrument
// legs use the last valid observed price, cash legs are face value, and
// everything is converted to the portfolio base currency. A zero total value
// yields NaN weights rather than clamped ones.
func (v *Valuer) Value(p *Portfolio, on time.Time) (*Valuation, error) {
	row := rowFor(p.History, on)
	if row < 0 {
		return nil, fmt.Errorf("date %s predates portfolio history", on.Format("2006-01-02"))
	}

	val := &Valuation{
		Date:    p.History.Dates[row],
		Values:  make(map[string]float64),
		Weights: make(map[string]float64),
	}

	for _, uid := range p.History.UIDs {
		qty := p.History.Quantity(row, uid)
		if math.IsNaN(qty) || qty == 0 {
			continue
		}

		value, err := v.positionValue(p, uid, qty, on)
		if err != nil {
			return nil, err
		}
		val.Values[uid] = value
		val.Total += value
	}

	for uid, value := range val.Values {
		if val.Total == 0 {
			val.Weights[uid] = math.NaN()
		} else {
			val.Weights[uid] = value / val.Total
		}
	}

	return val, nil
}

// positionValue prices a single leg in the base currency
func (v *Valuer) positionValue(p *Portfolio, uid string, qty float64, on time.Time) (float64, error) {
	base := p.Info.BaseCurrency

	if v.isCash(p, uid) {
		factor, err := v.conversionFactor(uid, base, on)
		if err != nil {
			return 0, err
		}
		return qty * factor, nil
	}

	series, err := v.prices.GetPrices(uid)
	if err != nil {
		return 0, err
	}
	price, ok := market.LastValid(series, on)
	if !ok {
		return 0, domain.NewMissingData(uid, fmt.Sprintf("no valid price at or before %s", on.Format("2006-01-02")))
	}

	currency := v.positionCurrency(p, uid)
	factor, err := v.conversionFactor(currency, base, on)
	if err != nil {
		return 0, err
	}

	return qty * price * factor, nil
}

func (v *Valuer) conversionFactor(src, tgt string, on time.Time) (float64, error) {
	if src == tgt {
		return 1, nil
	}
	conv, err := v.fx.GetConversion(src, tgt)
	if err != nil {
		return 0, err
	}
	return conv.At(on)
}

// isCash reports whether a uid is a cash leg, preferring the position
// record, then reference data; the ISO-code shape is a last resort for
// uids the asset store does not know.
func (v *Valuer) isCash(p *Portfolio, uid string) bool {
	if pos, ok := p.Positions[uid]; ok {
		return pos.IsCash()
	}
	if a, err := v.assets.GetAsset(uid); err == nil {
		return a.Type == domain.AssetCash || a.Type == domain.AssetCurrency
	}
	return looksLikeCurrency(uid)
}

// positionCurrency resolves the holding currency, preferring the position
// record and falling back to the asset store.
func (v *Valuer) positionCurrency(p *Portfolio, uid string) string {
	if pos, ok := p.Positions[uid]; ok && pos.Currency != "" {
		return pos.Currency
	}
	if a, err := v.assets.GetAsset(uid); err == nil && a.Currency != "" {
		return a.Currency
	}
	return p.Info.BaseCurrency
}

// WeightVector returns constituent weights in ConstituentUIDs order
func (v *Valuer) WeightVector(p *Portfolio, val *Valuation) []float64 {
	out := make([]float64, len(p.ConstituentUIDs))
	for i, uid := range p.ConstituentUIDs {
		w, ok := val.Weights[uid]
		if !ok {
			w = 0
		}
		out[i] = w
	}
	return out
}

// Covariance computes (and caches on the portfolio) the sample covariance
// matrix of the constituents' base-currency daily returns. Rows with any NaN
// entry are dropped before estimation.
func (v *Valuer) Covariance(p *Portfolio) (*mat.SymDense, error) {
	if p.covariance != nil {
		return p.covariance, nil
	}

	data, err := v.returnRows(p)
	if err != nil {
		return nil, err
	}

	n := len(p.ConstituentUIDs)
	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, data, nil)
	p.covariance = cov
	return cov, nil
}

// Correlation computes (and caches) the constituents' correlation matrix
func (v *Valuer) Correlation(p *Portfolio) (*mat.SymDense, error) {
	if p.correlation != nil {
		return p.correlation, nil
	}

	data, err := v.returnRows(p)
	if err != nil {
		return nil, err
	}

	n := len(p.ConstituentUIDs)
	corr := mat.NewSymDense(n, nil)
	stat.CorrelationMatrix(corr, data, nil)
	p.correlation = corr
	return corr, nil
}

// returnRows assembles the complete (NaN-free) rows of the constituents'
// adjusted return series as a dense observations x assets matrix.
func (v *Valuer) returnRows(p *Portfolio) (*mat.Dense, error) {
	n := len(p.ConstituentUIDs)
	if n == 0 {
		return nil, fmt.Errorf("portfolio %s has no constituents", p.Info.UID)
	}

	series := make([]domain.Series, n)
	for i, uid := range p.ConstituentUIDs {
		s, err := market.AdjustedReturns(v.prices, v.fx, uid, v.positionCurrency(p, uid), p.Info.BaseCurrency)
		if err != nil {
			return nil, err
		}
		series[i] = s
	}

	rows := series[0].Len()
	var complete [][]float64
	for r := 0; r < rows; r++ {
		row := make([]float64, n)
		valid := true
		for c := 0; c < n; c++ {
			row[c] = series[c].Values[r]
			if math.IsNaN(row[c]) {
				valid = false
				break
			}
		}
		if valid {
			complete = append(complete, row)
		}
	}

	if len(complete) < 2 {
		return nil, fmt.Errorf("not enough overlapping return observations for %d constituents", n)
	}

	data := mat.NewDense(len(complete), n, nil)
	for r, row := range complete {
		data.SetRow(r, row)
	}
	return data, nil
}

// Concentrations breaks portfolio weight down by country, currency and
// sector. Positions sharing a label are summed, labels are sorted, and the
// base cash leg rolls into its currency bucket like any other leg.
func (v *Valuer) Concentrations(p *Portfolio, val *Valuation) map[string][]Bucket {
	byCountry := make(map[string]float64)
	byCurrency := make(map[string]float64)
	bySector := make(map[string]float64)

	for uid, w := range val.Weights {
		currency := v.positionCurrency(p, uid)
		country, sector := "", ""
		if a, err := v.assets.GetAsset(uid); err == nil {
			country, sector = a.Country, a.Sector
		}
		if v.isCash(p, uid) {
			currency = uid
		}

		byCurrency[labelOr(currency, "unknown")] += w
		byCountry[labelOr(country, "unknown")] += w
		bySector[labelOr(sector, "unknown")] += w
	}

	return map[string][]Bucket{
		"country":  sortedBuckets(byCountry),
		"currency": sortedBuckets(byCurrency),
		"sector":   sortedBuckets(bySector),
	}
}

// Summary builds the position report: one line per open position sorted by
// (type, uid), plus the total value and the external cash flows. Withdrawals
// are reported as a positive amount.
func (v *Valuer) Summary(p *Portfolio, val *Valuation, flows []domain.CashFlow) *PortfolioSummary {
	s := &PortfolioSummary{
		Date:  val.Date,
		Total: val.Total,
	}

	for _, f := range flows {
		if f.Amount >= 0 {
			s.Deposits += f.Amount
		} else {
			s.Withdrawals -= f.Amount
		}
	}
	s.NetDeposits = s.Deposits - s.Withdrawals

	for uid, value := range val.Values {
		line := SummaryLine{
			UID:    uid,
			Value:  value,
			Weight: val.Weights[uid],
		}
		if pos, ok := p.Positions[uid]; ok {
			line.Type = pos.Type
			line.Quantity = pos.Quantity
			line.ALP = pos.ALP
			line.CostBasis = pos.CostBasis()
		} else if v.isCash(p, uid) {
			line.Type = domain.AssetCash
		}
		s.Lines = append(s.Lines, line)
	}

	sort.Slice(s.Lines, func(i, j int) bool {
		if s.Lines[i].Type != s.Lines[j].Type {
			return s.Lines[i].Type < s.Lines[j].Type
		}
		return s.Lines[i].UID < s.Lines[j].UID
	})

	return s
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

func sortedBuckets(m map[string]float64) []Bucket {
	out := make([]Bucket, 0, len(m))
	for label, w := range m {
		out = append(out, Bucket{Label: label, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// rowFor locates the matrix row at-or-before a date
func rowFor(m *PositionMatrix, on time.Time) int {
	i := sort.Search(len(m.Dates), func(k int) bool { return m.Dates[k].After(on) })
	return i - 1
}
