package portfolio

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/market"
)

// testGrid is ten consecutive weekdays
var testGrid = []time.Time{
	time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
}

func day(i int) time.Time { return testGrid[i] }

func testCalendar() *market.Calendar {
	cal, err := market.NewCalendar(testGrid, day(len(testGrid)-1))
	if err != nil {
		panic(err)
	}
	return cal
}

func testLogger() zerolog.Logger { return zerolog.Nop() }

type fakeLedger struct {
	info        *domain.PortfolioInfo
	trades      []domain.Trade
	splits      []domain.Split
	checkpoints []domain.Checkpoint
	flows       []domain.CashFlow
}

func (f *fakeLedger) GetPortfolio(uid string) (*domain.PortfolioInfo, error) {
	if f.info == nil || f.info.UID != uid {
		return nil, domain.NewMissingData(uid, "portfolio not found")
	}
	return f.info, nil
}

func (f *fakeLedger) GetTrades(portfolioUID string, from, to time.Time) ([]domain.Trade, error) {
	return f.trades, nil
}

func (f *fakeLedger) GetSplits(positionUIDs []string) ([]domain.Split, error) {
	return f.splits, nil
}

func (f *fakeLedger) GetCheckpoints(portfolioUID string) ([]domain.Checkpoint, error) {
	return f.checkpoints, nil
}

func (f *fakeLedger) GetCashFlows(portfolioUID string) ([]domain.CashFlow, error) {
	return f.flows, nil
}

type fakePrices struct {
	series map[string]domain.Series
}

func (f *fakePrices) GetPrices(uid string) (domain.Series, error) {
	s, ok := f.series[uid]
	if !ok {
		return domain.Series{}, domain.NewMissingData(uid, "no prices")
	}
	return s, nil
}

func (f *fakePrices) GetReturns(uid string) (domain.Series, error) {
	s, err := f.GetPrices(uid)
	if err != nil {
		return domain.Series{}, err
	}
	return market.ReturnsFromPrices(s), nil
}

// priceSeries builds a grid-aligned series from explicit values.
// Pass math.NaN() for missing observations.
func priceSeries(values ...float64) domain.Series {
	if len(values) != len(testGrid) {
		panic(fmt.Sprintf("priceSeries needs %d values, got %d", len(testGrid), len(values)))
	}
	return domain.Series{Dates: testGrid, Values: values}
}

type fakeFx struct {
	rates map[string]float64 // "SRC/TGT" -> constant rate
}

func (f *fakeFx) GetConversion(src, tgt string) (domain.Conversion, error) {
	if src == tgt {
		return constConv{rate: 1, dir: domain.FxIdentity}, nil
	}
	if r, ok := f.rates[src+"/"+tgt]; ok {
		return constConv{rate: r, dir: domain.FxDirect}, nil
	}
	if r, ok := f.rates[tgt+"/"+src]; ok {
		return constConv{rate: 1 / r, dir: domain.FxInverted}, nil
	}
	return nil, domain.NewMissingData(src+"/"+tgt, "no conversion")
}

type constConv struct {
	rate float64
	dir  domain.FxDirection
}

func (c constConv) Prices() domain.Series {
	values := make([]float64, len(testGrid))
	for i := range values {
		values[i] = c.rate
	}
	return domain.Series{Dates: testGrid, Values: values}
}

func (c constConv) Returns() domain.Series {
	values := make([]float64, len(testGrid))
	values[0] = math.NaN()
	return domain.Series{Dates: testGrid, Values: values}
}

func (c constConv) At(date time.Time) (float64, error) { return c.rate, nil }

func (c constConv) Direction() domain.FxDirection { return c.dir }

type fakeAssets struct {
	assets map[string]*domain.Asset
}

func (f *fakeAssets) GetAsset(uid string) (*domain.Asset, error) {
	if a, ok := f.assets[uid]; ok {
		return a, nil
	}
	return nil, domain.NewMissingData(uid, "asset not found")
}

func buy(date time.Time, uid, currency string, qty, price, costs float64) domain.Trade {
	return domain.Trade{
		PortfolioUID: "pf-1",
		Date:         date,
		PositionUID:  uid,
		Side:         domain.SideBuy,
		Currency:     currency,
		Quantity:     qty,
		Price:        price,
		Costs:        costs,
	}
}

func sell(date time.Time, uid, currency string, qty, price, costs float64) domain.Trade {
	t := buy(date, uid, currency, qty, price, costs)
	t.Side = domain.SideSell
	return t
}
