// Package domain holds the shared object model of the analytics toolkit:
// assets, positions, ledger events and the narrow interfaces the core
// consumes from the storage layer.
package domain

import "time"

// AssetType tags the kind of instrument a uid resolves to
type AssetType string

const (
	AssetEquity    AssetType = "Equity"
	AssetBond      AssetType = "Bond"
	AssetCash      AssetType = "Cash"
	AssetCurrency  AssetType = "Currency"
	AssetRate      AssetType = "Rate"
	AssetPortfolio AssetType = "Portfolio"
	AssetIndex     AssetType = "Index"
	AssetCompany   AssetType = "Company"
)

// Asset is the resolved reference data for a uid. Price and FX series are
// looked up through the market context, not stored on the asset.
type Asset struct {
	UID         string    `json:"uid"`
	Type        AssetType `json:"type"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	Country     string    `json:"country"`
	Sector      string    `json:"sector"`
}

// TradeSide encodes the direction of a ledger trade
type TradeSide int

const (
	SideBuy  TradeSide = 1
	SideSell TradeSide = 2
)

// Sign returns +1 for buys and -1 for sells
func (s TradeSide) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// Trade is one immutable ledger event. Trades are consumed strictly in
// ascending date order, grouped by position uid.
type Trade struct {
	PortfolioUID string    `json:"portfolio_uid"`
	Date         time.Time `json:"date"`
	PositionUID  string    `json:"position_uid"`
	Side         TradeSide `json:"side"`
	Currency     string    `json:"currency"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	Costs        float64   `json:"costs"`
	Market       string    `json:"market"`
}

// IsFractional reports whether the trade quantity is non-integral.
// Fractional trades settle after splits in the replay ordering.
func (t Trade) IsFractional() bool {
	return t.Quantity != float64(int64(t.Quantity))
}

// CashDelta is the signed cash movement the trade causes in its currency:
// buys consume cash (quantity*price + costs), sells release it
// (quantity*price - costs).
func (t Trade) CashDelta() float64 {
	gross := t.Quantity * t.Price
	if t.Side == SideSell {
		return gross - t.Costs
	}
	return -(gross + t.Costs)
}

// QuantityDelta is the signed position quantity change of the trade
func (t Trade) QuantityDelta() float64 {
	return t.Side.Sign() * t.Quantity
}

// Split is a corporate action dividing the outstanding quantity by Ratio.
// The adjustment settles the trading day before the recorded effective date.
type Split struct {
	PositionUID   string    `json:"position_uid"`
	EffectiveDate time.Time `json:"effective_date"`
	Ratio         float64   `json:"ratio"`
}

// Checkpoint is a ground-truth position snapshot recorded in the ledger.
// For cash positions the checkpoint quantity overwrites the replayed value
// (dividends and fees drift naturally); for anything else a mismatch is a
// data-integrity bug.
type Checkpoint struct {
	PortfolioUID string    `json:"portfolio_uid"`
	PositionUID  string    `json:"position_uid"`
	Date         time.Time `json:"date"`
	Quantity     float64   `json:"quantity"`
	ALP          float64   `json:"alp"`
}

// Position is one constituent holding inside a portfolio at a point in time
type Position struct {
	UID      string    `json:"uid"`
	Date     time.Time `json:"date"`
	Type     AssetType `json:"type"`
	Currency string    `json:"currency"`
	ALP      float64   `json:"alp"` // average load price, cost basis per unit in holding currency
	Quantity float64   `json:"quantity"`
}

// CostBasis is the total cost of the position in its holding currency
func (p Position) CostBasis() float64 {
	return p.ALP * p.Quantity
}

// IsCash reports whether the position is a cash leg (uid == currency code)
func (p Position) IsCash() bool {
	return p.Type == AssetCash || p.Type == AssetCurrency || p.UID == p.Currency
}

// PortfolioInfo is the ledger's static description of a portfolio
type PortfolioInfo struct {
	UID           string    `json:"uid"`
	Name          string    `json:"name"`
	BaseCurrency  string    `json:"base_currency"`
	InceptionDate time.Time `json:"inception_date"`
}

// CashFlow is an external deposit (positive) or withdrawal (negative)
type CashFlow struct {
	PortfolioUID string    `json:"portfolio_uid"`
	Date         time.Time `json:"date"`
	Currency     string    `json:"currency"`
	Amount       float64   `json:"amount"`
}
