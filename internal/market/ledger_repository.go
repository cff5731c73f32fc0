package market

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// LedgerRepository reads the immutable trade ledger: portfolios, trades,
// splits, checkpoints and external cash flows.
type LedgerRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB, log zerolog.Logger) *LedgerRepository {
	return &LedgerRepository{
		db:  db,
		log: log.With().Str("repository", "ledger").Logger(),
	}
}

// GetPortfolio loads the static description of a portfolio
func (r *LedgerRepository) GetPortfolio(uid string) (*domain.PortfolioInfo, error) {
	var p domain.PortfolioInfo
	var inception string
	err := r.db.QueryRow(
		`SELECT uid, name, base_currency, inception_date FROM portfolios WHERE uid = ?`,
		uid,
	).Scan(&p.UID, &p.Name, &p.BaseCurrency, &inception)
	if err == sql.ErrNoRows {
		return nil, domain.NewMissingData(uid, "unknown portfolio")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio %s: %w", uid, err)
	}

	p.InceptionDate, err = time.Parse(dateLayout, inception)
	if err != nil {
		return nil, fmt.Errorf("malformed inception date for %s: %w", uid, err)
	}

	return &p, nil
}

// ListPortfolios returns the uid of every recorded portfolio
func (r *LedgerRepository) ListPortfolios() ([]string, error) {
	rows, err := r.db.Query(`SELECT uid FROM portfolios ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio uid: %w", err)
		}
		uids = append(uids, uid)
	}

	return uids, rows.Err()
}

// GetTrades fetches a portfolio's trades in [from, to], ascending by date
// then insertion order.
func (r *LedgerRepository) GetTrades(portfolioUID string, from, to time.Time) ([]domain.Trade, error) {
	rows, err := r.db.Query(
		`SELECT portfolio_uid, date, position_uid, side, currency, quantity, price, costs, market
		 FROM trades
		 WHERE portfolio_uid = ? AND date >= ? AND date <= ?
		 ORDER BY date, id`,
		portfolioUID, from.Format(dateLayout), to.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for %s: %w", portfolioUID, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var date string
		var side int
		if err := rows.Scan(&t.PortfolioUID, &date, &t.PositionUID, &side, &t.Currency,
			&t.Quantity, &t.Price, &t.Costs, &t.Market); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Side = domain.TradeSide(side)
		t.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("malformed trade date %q: %w", date, err)
		}
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// GetSplits fetches split events for the given position uids, ascending by
// effective date.
func (r *LedgerRepository) GetSplits(positionUIDs []string) ([]domain.Split, error) {
	if len(positionUIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(positionUIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(positionUIDs))
	for i, uid := range positionUIDs {
		args[i] = uid
	}

	rows, err := r.db.Query(
		`SELECT position_uid, effective_date, ratio FROM splits
		 WHERE position_uid IN (`+placeholders+`) ORDER BY effective_date, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query splits: %w", err)
	}
	defer rows.Close()

	var splits []domain.Split
	for rows.Next() {
		var s domain.Split
		var date string
		if err := rows.Scan(&s.PositionUID, &date, &s.Ratio); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		s.EffectiveDate, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("malformed split date %q: %w", date, err)
		}
		splits = append(splits, s)
	}

	return splits, rows.Err()
}

// GetCheckpoints fetches recorded position snapshots for a portfolio,
// ascending by date.
func (r *LedgerRepository) GetCheckpoints(portfolioUID string) ([]domain.Checkpoint, error) {
	rows, err := r.db.Query(
		`SELECT portfolio_uid, position_uid, date, quantity, alp
		 FROM position_snapshots WHERE portfolio_uid = ? ORDER BY date`,
		portfolioUID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints for %s: %w", portfolioUID, err)
	}
	defer rows.Close()

	var checkpoints []domain.Checkpoint
	for rows.Next() {
		var c domain.Checkpoint
		var date string
		if err := rows.Scan(&c.PortfolioUID, &c.PositionUID, &date, &c.Quantity, &c.ALP); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		c.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("malformed checkpoint date %q: %w", date, err)
		}
		checkpoints = append(checkpoints, c)
	}

	return checkpoints, rows.Err()
}

// GetCashFlows fetches external deposits and withdrawals, ascending by date
func (r *LedgerRepository) GetCashFlows(portfolioUID string) ([]domain.CashFlow, error) {
	rows, err := r.db.Query(
		`SELECT portfolio_uid, date, currency, amount
		 FROM cash_flows WHERE portfolio_uid = ? ORDER BY date, id`,
		portfolioUID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash flows for %s: %w", portfolioUID, err)
	}
	defer rows.Close()

	var flows []domain.CashFlow
	for rows.Next() {
		var f domain.CashFlow
		var date string
		if err := rows.Scan(&f.PortfolioUID, &date, &f.Currency, &f.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow: %w", err)
		}
		f.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("malformed cash flow date %q: %w", date, err)
		}
		flows = append(flows, f)
	}

	return flows, rows.Err()
}
