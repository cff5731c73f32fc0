package domain

import "time"

// Series is an ordered daily (date, value) sequence aligned to the shared
// trading calendar. Dates and Values always have equal length.
type Series struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of points in the series
func (s Series) Len() int { return len(s.Dates) }

// PriceSource resolves price and simple-return histories for a uid.
// Implementations return MissingDataError when the uid has no data.
type PriceSource interface {
	GetPrices(uid string) (Series, error)
	GetReturns(uid string) (Series, error)
}

// FxDirection tags how a conversion pair was resolved in the store
type FxDirection int

const (
	FxNotFound FxDirection = iota
	FxDirect
	FxInverted
	FxPegged
	FxIdentity
)

// Conversion exposes the price level and return series for converting
// amounts between two currencies.
type Conversion interface {
	Prices() Series
	Returns() Series
	// At returns the conversion factor at-or-before the given date
	// (last valid value semantics).
	At(date time.Time) (float64, error)
	Direction() FxDirection
}

// FxSource resolves currency conversions. Both lookup directions are tried
// explicitly; the returned Conversion reports which one matched.
type FxSource interface {
	GetConversion(src, tgt string) (Conversion, error)
}

// AssetSource resolves reference data for a uid
type AssetSource interface {
	GetAsset(uid string) (*Asset, error)
}

// RateSource resolves the level of a rate series (e.g. the risk-free leg)
// as of a date.
type RateSource interface {
	GetRate(uid string, on time.Time) (float64, error)
}

// TradeLedger fetches a portfolio's recorded history in ascending date order
type TradeLedger interface {
	GetPortfolio(uid string) (*PortfolioInfo, error)
	GetTrades(portfolioUID string, from, to time.Time) ([]Trade, error)
	GetSplits(positionUIDs []string) ([]Split, error)
	GetCheckpoints(portfolioUID string) ([]Checkpoint, error)
	GetCashFlows(portfolioUID string) ([]CashFlow, error)
}
