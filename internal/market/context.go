package market

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Context is the per-run resolution context. It bundles the calendar and
// the repositories and memoizes resolved assets and FX conversions, so a
// single analysis run resolves each uid once. The cache lifetime is the
// Context itself: a new run gets a fresh Context, which is also the
// invalidation boundary when underlying price data changes.
type Context struct {
	Calendar *Calendar
	Prices   *PriceRepository
	Fx       *FxService
	Ledger   *LedgerRepository
	Rates    *RateRepository

	assets      map[string]*domain.Asset
	conversions map[string]domain.Conversion
	log         zerolog.Logger
}

// NewContext creates a resolution context over the market and ledger
// databases.
func NewContext(marketDB, ledgerDB *database.DB, calendar *Calendar, log zerolog.Logger) *Context {
	return &Context{
		Calendar:    calendar,
		Prices:      NewPriceRepository(marketDB, calendar, log),
		Fx:          NewFxService(marketDB, calendar, log),
		Ledger:      NewLedgerRepository(ledgerDB, log),
		Rates:       NewRateRepository(marketDB, log),
		assets:      make(map[string]*domain.Asset),
		conversions: make(map[string]domain.Conversion),
		log:         log.With().Str("component", "market_context").Logger(),
	}
}

// GetAsset resolves reference data for a uid, memoized for the run
func (c *Context) GetAsset(uid string) (*domain.Asset, error) {
	if a, ok := c.assets[uid]; ok {
		return a, nil
	}

	a, err := c.Prices.GetAsset(uid)
	if err != nil {
		return nil, err
	}

	c.assets[uid] = a
	return a, nil
}

// GetConversion resolves a currency conversion, memoized for the run
func (c *Context) GetConversion(src, tgt string) (domain.Conversion, error) {
	key := src + "/" + tgt
	if conv, ok := c.conversions[key]; ok {
		return conv, nil
	}

	conv, err := c.Fx.GetConversion(src, tgt)
	if err != nil {
		return nil, err
	}

	c.conversions[key] = conv
	return conv, nil
}

// GetPrices resolves the price series for a uid
func (c *Context) GetPrices(uid string) (domain.Series, error) {
	return c.Prices.GetPrices(uid)
}

// GetReturns resolves the simple-return series for a uid
func (c *Context) GetReturns(uid string) (domain.Series, error) {
	return c.Prices.GetReturns(uid)
}

// RateRepository reads rate series levels (e.g. the risk-free leg)
type RateRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRateRepository creates a new rate repository
func NewRateRepository(db *database.DB, log zerolog.Logger) *RateRepository {
	return &RateRepository{
		db:  db,
		log: log.With().Str("repository", "rates").Logger(),
	}
}

// GetRate returns the level of a rate series at-or-before the given date
func (r *RateRepository) GetRate(uid string, on time.Time) (float64, error) {
	var value float64
	err := r.db.QueryRow(
		`SELECT value FROM rates WHERE uid = ? AND date <= ? ORDER BY date DESC LIMIT 1`,
		uid, on.Format(dateLayout),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, domain.NewMissingData(uid, fmt.Sprintf("no rate at or before %s", on.Format(dateLayout)))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load rate %s: %w", uid, err)
	}

	return value, nil
}
