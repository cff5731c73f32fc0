package market

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// PriceRepository serves asset reference data and daily price/return series
// from the market database, aligned to the shared calendar grid.
type PriceRepository struct {
	db       *database.DB
	calendar *Calendar
	log      zerolog.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *database.DB, calendar *Calendar, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:       db,
		calendar: calendar,
		log:      log.With().Str("repository", "prices").Logger(),
	}
}

// GetAsset resolves the reference data for a uid
func (r *PriceRepository) GetAsset(uid string) (*domain.Asset, error) {
	var a domain.Asset
	var typ string
	err := r.db.QueryRow(
		`SELECT uid, asset_type, currency, description, country, sector FROM assets WHERE uid = ?`,
		uid,
	).Scan(&a.UID, &typ, &a.Currency, &a.Description, &a.Country, &a.Sector)
	if err == sql.ErrNoRows {
		return nil, domain.NewMissingData(uid, "unknown asset")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", uid, err)
	}
	a.Type = domain.AssetType(typ)
	return &a, nil
}

// GetPrices returns the daily price series for a uid on the calendar grid.
// Dates before the first observation are NaN; gaps after it are forward
// filled with the last known price.
func (r *PriceRepository) GetPrices(uid string) (domain.Series, error) {
	rows, err := r.db.Query(`SELECT date, price FROM prices WHERE uid = ? ORDER BY date`, uid)
	if err != nil {
		return domain.Series{}, fmt.Errorf("failed to query prices for %s: %w", uid, err)
	}
	defer rows.Close()

	observed := make(map[string]float64)
	count := 0
	for rows.Next() {
		var date string
		var price float64
		if err := rows.Scan(&date, &price); err != nil {
			return domain.Series{}, fmt.Errorf("failed to scan price for %s: %w", uid, err)
		}
		observed[date] = price
		count++
	}
	if err := rows.Err(); err != nil {
		return domain.Series{}, err
	}
	if count == 0 {
		return domain.Series{}, domain.NewMissingData(uid, "no price history")
	}

	return r.alignToGrid(observed), nil
}

// GetReturns returns the daily simple-return series for a uid on the
// calendar grid. The first entry is undefined (NaN), as are entries whose
// base price is unknown.
func (r *PriceRepository) GetReturns(uid string) (domain.Series, error) {
	prices, err := r.GetPrices(uid)
	if err != nil {
		return domain.Series{}, err
	}
	return ReturnsFromPrices(prices), nil
}

// alignToGrid projects observed (date -> value) points onto the calendar
// grid with forward-fill after the first observation.
func (r *PriceRepository) alignToGrid(observed map[string]float64) domain.Series {
	dates := r.calendar.TradingDates()
	values := make([]float64, len(dates))

	last := math.NaN()
	for i, d := range dates {
		if v, ok := observed[d.Format(dateLayout)]; ok {
			last = v
		}
		values[i] = last
	}

	return domain.Series{Dates: dates, Values: values}
}

// ReturnsFromPrices derives a simple-return series from a price series on
// the same grid. The output has the same length as the input with a NaN
// leading entry.
func ReturnsFromPrices(prices domain.Series) domain.Series {
	values := make([]float64, prices.Len())
	for i := range values {
		if i == 0 {
			values[i] = math.NaN()
			continue
		}
		prev, cur := prices.Values[i-1], prices.Values[i]
		if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
			values[i] = math.NaN()
			continue
		}
		values[i] = (cur - prev) / prev
	}
	return domain.Series{Dates: prices.Dates, Values: values}
}

// LastValid returns the most recent non-NaN value of a series at-or-before
// the given date. The boolean is false when no such value exists.
func LastValid(s domain.Series, on time.Time) (float64, bool) {
	d := normalize(on)
	for i := s.Len() - 1; i >= 0; i-- {
		if s.Dates[i].After(d) {
			continue
		}
		if !math.IsNaN(s.Values[i]) {
			return s.Values[i], true
		}
	}
	return 0, false
}
