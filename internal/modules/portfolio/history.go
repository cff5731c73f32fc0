package portfolio

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/market"
)

// checkpointTolerance bounds the acceptable drift between a replayed
// non-cash quantity and its ledger checkpoint.
const checkpointTolerance = 1e-6

// Reconstructor replays a portfolio's ledger into a daily position matrix.
// Replay is event-driven: only dates carrying at least one event mutate the
// running position, every other date forward-fills the last known value.
type Reconstructor struct {
	ledger   domain.TradeLedger
	assets   domain.AssetSource
	calendar *market.Calendar
	log      zerolog.Logger
}

// NewReconstructor creates a new position reconstructor
func NewReconstructor(ledger domain.TradeLedger, assets domain.AssetSource, calendar *market.Calendar, log zerolog.Logger) *Reconstructor {
	return &Reconstructor{
		ledger:   ledger,
		assets:   assets,
		calendar: calendar,
		log:      log.With().Str("component", "reconstructor").Logger(),
	}
}

// dayEvents collects everything that settles on one trading day.
// Application order within a day is fixed: cash flows and regular trades,
// then splits, then fractional trades, then checkpoints.
type dayEvents struct {
	flows       []domain.CashFlow
	regular     []domain.Trade
	splits      []domain.Split
	fractional  []domain.Trade
	checkpoints []domain.Checkpoint
}

// Reconstruct replays the full ledger of a portfolio from inception to the
// calendar's t0 and returns the populated Portfolio aggregate.
func (r *Reconstructor) Reconstruct(portfolioUID string) (*Portfolio, error) {
	info, err := r.ledger.GetPortfolio(portfolioUID)
	if err != nil {
		return nil, err
	}

	if info.InceptionDate.Before(r.calendar.Start()) {
		return nil, &domain.UnsupportedScenarioError{
			Scenario: fmt.Sprintf("portfolio %s inception %s predates calendar start %s",
				portfolioUID,
				info.InceptionDate.Format("2006-01-02"),
				r.calendar.Start().Format("2006-01-02")),
		}
	}

	inceptionIdx := r.calendar.FloorIndex(info.InceptionDate)
	t0Idx := r.calendar.FloorIndex(r.calendar.T0())
	if inceptionIdx < 0 || t0Idx < inceptionIdx {
		return nil, fmt.Errorf("portfolio %s has no tradable dates between inception and t0", portfolioUID)
	}

	trades, err := r.ledger.GetTrades(portfolioUID, info.InceptionDate, r.calendar.T0())
	if err != nil {
		return nil, err
	}
	checkpoints, err := r.ledger.GetCheckpoints(portfolioUID)
	if err != nil {
		return nil, err
	}
	flows, err := r.ledger.GetCashFlows(portfolioUID)
	if err != nil {
		return nil, err
	}

	uids := collectUIDs(info.BaseCurrency, trades, checkpoints, flows)

	splits, err := r.ledger.GetSplits(uids)
	if err != nil {
		return nil, err
	}

	events, err := r.bucketEvents(uids, inceptionIdx, trades, splits, checkpoints, flows)
	if err != nil {
		return nil, err
	}

	matrix := NewPositionMatrix(r.calendar.TradingDates(), uids)
	positions := map[string]*domain.Position{
		info.BaseCurrency: {
			UID:      info.BaseCurrency,
			Currency: info.BaseCurrency,
			Type:     domain.AssetCash,
			ALP:      1, // unit-of-account leg, cost basis is identically 1
		},
	}

	for i := inceptionIdx; i <= t0Idx; i++ {
		if i > inceptionIdx {
			matrix.CopyRow(i-1, i)
		} else {
			// The base cash leg exists from inception
			matrix.Set(i, matrix.Col(info.BaseCurrency), 0)
		}

		day, ok := events[i]
		if !ok {
			continue
		}

		if err := r.applyDay(matrix, positions, i, day); err != nil {
			return nil, err
		}
	}

	p := &Portfolio{
		Info:      *info,
		Positions: positions,
		History:   matrix,
	}
	p.ConstituentUIDs = r.finalConstituents(matrix, t0Idx, info.BaseCurrency)
	r.finalizePositions(p, t0Idx)

	r.log.Debug().
		Str("portfolio", portfolioUID).
		Int("positions", len(uids)).
		Int("constituents", len(p.ConstituentUIDs)).
		Msg("Reconstructed position history")

	return p, nil
}

// bucketEvents indexes every ledger event by the calendar row it settles on
func (r *Reconstructor) bucketEvents(
	uids []string,
	inceptionIdx int,
	trades []domain.Trade,
	splits []domain.Split,
	checkpoints []domain.Checkpoint,
	flows []domain.CashFlow,
) (map[int]*dayEvents, error) {
	events := make(map[int]*dayEvents)
	at := func(i int) *dayEvents {
		if events[i] == nil {
			events[i] = &dayEvents{}
		}
		return events[i]
	}

	for _, f := range flows {
		i := r.calendar.FloorIndex(f.Date)
		if i < inceptionIdx {
			i = inceptionIdx
		}
		at(i).flows = append(at(i).flows, f)
	}

	for _, t := range trades {
		i := r.calendar.FloorIndex(t.Date)
		if i < inceptionIdx {
			return nil, fmt.Errorf("trade on %s predates portfolio inception", t.Date.Format("2006-01-02"))
		}
		// Currency trades always settle in the regular phase; only
		// fractional instrument trades (post-split cleanups) settle late.
		if t.IsFractional() && !r.isCash(t.PositionUID) {
			at(i).fractional = append(at(i).fractional, t)
		} else {
			at(i).regular = append(at(i).regular, t)
		}
	}

	for _, s := range splits {
		effIdx := r.calendar.FloorIndex(s.EffectiveDate)
		// The adjustment settles the trading day before the recorded date
		applyIdx := effIdx - 1
		if applyIdx < inceptionIdx {
			continue
		}
		at(applyIdx).splits = append(at(applyIdx).splits, s)
	}

	for _, c := range checkpoints {
		i := r.calendar.FloorIndex(c.Date)
		if i < inceptionIdx {
			continue
		}
		at(i).checkpoints = append(at(i).checkpoints, c)
	}

	return events, nil
}

// applyDay mutates row i of the matrix with one day's events, in the fixed
// intra-day order.
func (r *Reconstructor) applyDay(m *PositionMatrix, positions map[string]*domain.Position, i int, day *dayEvents) error {
	get := func(col int) float64 {
		v := m.At(i, col)
		if math.IsNaN(v) {
			return 0
		}
		return v
	}

	for _, f := range day.flows {
		col := m.Col(f.Currency)
		m.Set(i, col, get(col)+f.Amount)
		r.ensureCashPosition(positions, f.Currency)
	}

	for _, t := range day.regular {
		r.applyTrade(m, positions, i, t, get)
	}

	for _, s := range day.splits {
		col := m.Col(s.PositionUID)
		if col < 0 {
			continue
		}
		qty := m.At(i, col)
		if math.IsNaN(qty) || qty == 0 {
			continue
		}
		m.Set(i, col, qty/s.Ratio)
		if pos := positions[s.PositionUID]; pos != nil {
			pos.Quantity /= s.Ratio
			pos.ALP *= s.Ratio // total cost basis is unchanged by the split
		}
	}

	for _, t := range day.fractional {
		r.applyTrade(m, positions, i, t, get)
	}

	for _, c := range day.checkpoints {
		col := m.Col(c.PositionUID)
		if r.isCash(c.PositionUID) {
			// Dividends and fees drift cash naturally: the checkpoint is
			// authoritative and overwrites the replayed value.
			m.Set(i, col, c.Quantity)
			pos := r.ensureCashPosition(positions, c.PositionUID)
			pos.Quantity = c.Quantity
			continue
		}

		replayed := get(col)
		if math.Abs(replayed-c.Quantity) > checkpointTolerance {
			return &domain.IntegrityError{
				PositionUID: c.PositionUID,
				Date:        m.Dates[i].Format("2006-01-02"),
				Expected:    c.Quantity,
				Replayed:    replayed,
			}
		}
		if pos := positions[c.PositionUID]; pos != nil && c.ALP > 0 {
			pos.ALP = c.ALP
		}
	}

	return nil
}

// applyTrade applies the cash and quantity deltas of a single trade
func (r *Reconstructor) applyTrade(
	m *PositionMatrix,
	positions map[string]*domain.Position,
	i int,
	t domain.Trade,
	get func(int) float64,
) {
	qtyCol := m.Col(t.PositionUID)
	cashCol := m.Col(t.Currency)

	m.Set(i, qtyCol, get(qtyCol)+t.QuantityDelta())
	m.Set(i, cashCol, get(cashCol)+t.CashDelta())
	r.ensureCashPosition(positions, t.Currency)

	pos := positions[t.PositionUID]
	if pos == nil {
		pos = &domain.Position{
			UID:      t.PositionUID,
			Currency: t.Currency,
			Type:     r.assetType(t.PositionUID),
		}
		positions[t.PositionUID] = pos
	}

	if t.Side == domain.SideBuy {
		newQty := pos.Quantity + t.Quantity
		if newQty > 0 {
			pos.ALP = (pos.ALP*pos.Quantity + t.Quantity*t.Price) / newQty
		}
		pos.Quantity = newQty
	} else {
		// Sells release quantity at unchanged cost basis
		pos.Quantity -= t.Quantity
	}
}

// ensureCashPosition lazily creates the cash leg for a currency
func (r *Reconstructor) ensureCashPosition(positions map[string]*domain.Position, currency string) *domain.Position {
	if pos, ok := positions[currency]; ok {
		return pos
	}
	pos := &domain.Position{
		UID:      currency,
		Currency: currency,
		Type:     domain.AssetCash,
		ALP:      1,
	}
	positions[currency] = pos
	return pos
}

// assetType resolves the instrument type from reference data, falling back
// to a currency/equity guess when the uid is not in the asset store.
func (r *Reconstructor) assetType(uid string) domain.AssetType {
	if r.assets != nil {
		if a, err := r.assets.GetAsset(uid); err == nil {
			return a.Type
		}
	}
	if looksLikeCurrency(uid) {
		return domain.AssetCash
	}
	return domain.AssetEquity
}

// isCash reports whether a uid is a cash leg. Reference data decides; the
// ISO-code shape is only consulted for uids absent from the asset store, so
// an equity ticker that happens to be three capital letters stays an equity.
func (r *Reconstructor) isCash(uid string) bool {
	t := r.assetType(uid)
	return t == domain.AssetCash || t == domain.AssetCurrency
}

// finalizePositions stamps each position with the t0 date and drops closed
// non-cash positions from the map.
func (r *Reconstructor) finalizePositions(p *Portfolio, t0Idx int) {
	for uid, pos := range p.Positions {
		pos.Date = p.History.Dates[t0Idx]
		q := p.History.Quantity(t0Idx, uid)
		if !math.IsNaN(q) {
			pos.Quantity = q
		}
		if !pos.IsCash() && pos.Quantity <= 0 {
			delete(p.Positions, uid)
		}
	}
}

// collectUIDs assembles the column set: the base cash leg first, then every
// position uid in first-seen order, then every settlement currency.
func collectUIDs(baseCurrency string, trades []domain.Trade, checkpoints []domain.Checkpoint, flows []domain.CashFlow) []string {
	seen := map[string]bool{baseCurrency: true}
	uids := []string{baseCurrency}
	add := func(uid string) {
		if !seen[uid] {
			seen[uid] = true
			uids = append(uids, uid)
		}
	}

	for _, t := range trades {
		add(t.PositionUID)
		add(t.Currency)
	}
	for _, c := range checkpoints {
		add(c.PositionUID)
	}
	for _, f := range flows {
		add(f.Currency)
	}

	return uids
}

// finalConstituents lists the non-cash uids still held at t0, preserving
// column order.
func (r *Reconstructor) finalConstituents(m *PositionMatrix, t0Idx int, baseCurrency string) []string {
	var out []string
	for _, uid := range m.UIDs {
		if uid == baseCurrency || r.isCash(uid) {
			continue
		}
		q := m.Quantity(t0Idx, uid)
		if !math.IsNaN(q) && q > 0 {
			out = append(out, uid)
		}
	}
	return out
}
