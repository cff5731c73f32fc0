package market

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// FxService resolves currency conversions from the market database.
// Both lookup directions are tried explicitly and the result carries a
// direction tag, so callers never branch on "not found" errors to try
// the inverted pair themselves.
type FxService struct {
	db       *database.DB
	calendar *Calendar
	log      zerolog.Logger
}

// NewFxService creates a new FX service
func NewFxService(db *database.DB, calendar *Calendar, log zerolog.Logger) *FxService {
	return &FxService{
		db:       db,
		calendar: calendar,
		log:      log.With().Str("service", "fx").Logger(),
	}
}

// conversion is the concrete domain.Conversion
type conversion struct {
	prices    domain.Series
	returns   domain.Series
	direction domain.FxDirection
	src, tgt  string
}

func (c *conversion) Prices() domain.Series         { return c.prices }
func (c *conversion) Returns() domain.Series        { return c.returns }
func (c *conversion) Direction() domain.FxDirection { return c.direction }

func (c *conversion) At(date time.Time) (float64, error) {
	v, ok := LastValid(c.prices, date)
	if !ok {
		return 0, domain.NewMissingData(
			c.src+"/"+c.tgt,
			fmt.Sprintf("no conversion rate at or before %s", date.Format(dateLayout)),
		)
	}
	return v, nil
}

// GetConversion resolves a src -> tgt currency conversion. Resolution order:
// identity, pegged parity, direct pair, inverted pair. A missing pair in
// all four yields MissingDataError.
func (s *FxService) GetConversion(src, tgt string) (domain.Conversion, error) {
	if src == tgt {
		return s.constantConversion(src, tgt, 1.0, domain.FxIdentity), nil
	}

	if parity, ok, err := s.peggedParity(src, tgt); err != nil {
		return nil, err
	} else if ok {
		return s.constantConversion(src, tgt, parity, domain.FxPegged), nil
	}

	direct, err := s.loadPair(src, tgt)
	if err != nil {
		return nil, err
	}
	if direct != nil {
		return s.seriesConversion(src, tgt, direct, domain.FxDirect), nil
	}

	inverted, err := s.loadPair(tgt, src)
	if err != nil {
		return nil, err
	}
	if inverted != nil {
		for k, v := range inverted {
			if v != 0 {
				inverted[k] = 1 / v
			}
		}
		return s.seriesConversion(src, tgt, inverted, domain.FxInverted), nil
	}

	return nil, domain.NewMissingData(src+"/"+tgt, "no conversion pair in either direction")
}

// peggedParity checks the pegged_currencies table in both directions
func (s *FxService) peggedParity(src, tgt string) (float64, bool, error) {
	var parity float64
	err := s.db.QueryRow(
		`SELECT parity FROM pegged_currencies WHERE currency = ? AND pegged_to = ?`,
		src, tgt,
	).Scan(&parity)
	if err == nil {
		return parity, true, nil
	}

	err = s.db.QueryRow(
		`SELECT parity FROM pegged_currencies WHERE currency = ? AND pegged_to = ?`,
		tgt, src,
	).Scan(&parity)
	if err == nil && parity != 0 {
		return 1 / parity, true, nil
	}

	return 0, false, nil
}

// loadPair reads the fx_rates rows for an exact (base, quote) pair.
// A nil map means the pair has no rows at all.
func (s *FxService) loadPair(base, quote string) (map[string]float64, error) {
	rows, err := s.db.Query(
		`SELECT date, rate FROM fx_rates WHERE base_currency = ? AND quote_currency = ? ORDER BY date`,
		base, quote,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query fx pair %s/%s: %w", base, quote, err)
	}
	defer rows.Close()

	var observed map[string]float64
	for rows.Next() {
		var date string
		var rate float64
		if err := rows.Scan(&date, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan fx rate %s/%s: %w", base, quote, err)
		}
		if observed == nil {
			observed = make(map[string]float64)
		}
		observed[date] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return observed, nil
}

func (s *FxService) constantConversion(src, tgt string, level float64, dir domain.FxDirection) *conversion {
	dates := s.calendar.TradingDates()
	prices := make([]float64, len(dates))
	returns := make([]float64, len(dates))
	for i := range dates {
		prices[i] = level
	}
	if len(returns) > 0 {
		returns[0] = math.NaN()
	}

	return &conversion{
		prices:    domain.Series{Dates: dates, Values: prices},
		returns:   domain.Series{Dates: dates, Values: returns},
		direction: dir,
		src:       src,
		tgt:       tgt,
	}
}

func (s *FxService) seriesConversion(src, tgt string, observed map[string]float64, dir domain.FxDirection) *conversion {
	dates := s.calendar.TradingDates()
	prices := make([]float64, len(dates))

	last := math.NaN()
	for i, d := range dates {
		if v, ok := observed[d.Format(dateLayout)]; ok {
			last = v
		}
		prices[i] = last
	}

	priceSeries := domain.Series{Dates: dates, Values: prices}
	return &conversion{
		prices:    priceSeries,
		returns:   ReturnsFromPrices(priceSeries),
		direction: dir,
		src:       src,
		tgt:       tgt,
	}
}
