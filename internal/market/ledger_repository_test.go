package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/domain"
)

func seedPortfolio(t *testing.T, repo *LedgerRepository) {
	t.Helper()
	_, err := repo.db.Exec(
		`INSERT INTO portfolios (uid, name, base_currency, inception_date) VALUES (?, ?, ?, ?)`,
		"PTF1", "Main", "EUR", "2024-01-01",
	)
	require.NoError(t, err)
}

func TestGetPortfolio(t *testing.T) {
	repo := NewLedgerRepository(newLedgerDB(t), testLogger())
	seedPortfolio(t, repo)

	p, err := repo.GetPortfolio("PTF1")
	require.NoError(t, err)

	assert.Equal(t, "EUR", p.BaseCurrency)
	assert.Equal(t, day(t, "2024-01-01"), p.InceptionDate)

	_, err = repo.GetPortfolio("NOPE")
	assert.True(t, domain.IsMissingData(err))
}

func TestGetTrades_OrderedAndFiltered(t *testing.T) {
	repo := NewLedgerRepository(newLedgerDB(t), testLogger())
	seedPortfolio(t, repo)

	insert := func(date, uid string, side int, qty, price float64) {
		_, err := repo.db.Exec(
			`INSERT INTO trades (portfolio_uid, date, position_uid, side, currency, quantity, price, costs)
			 VALUES ('PTF1', ?, ?, ?, 'USD', ?, ?, 1.0)`,
			date, uid, side, qty, price,
		)
		require.NoError(t, err)
	}

	// Inserted out of chronological order on purpose
	insert("2024-01-05", "AAPL", 2, 5, 110)
	insert("2024-01-02", "AAPL", 1, 10, 100)
	insert("2024-01-02", "MSFT", 1, 3, 300)
	insert("2024-01-09", "AAPL", 1, 2, 120) // outside range below

	trades, err := repo.GetTrades("PTF1", day(t, "2024-01-01"), day(t, "2024-01-05"))
	require.NoError(t, err)
	require.Len(t, trades, 3)

	assert.Equal(t, day(t, "2024-01-02"), trades[0].Date)
	assert.Equal(t, "AAPL", trades[0].PositionUID)
	assert.Equal(t, domain.SideBuy, trades[0].Side)
	assert.Equal(t, "MSFT", trades[1].PositionUID)
	assert.Equal(t, domain.SideSell, trades[2].Side)
}

func TestGetSplits(t *testing.T) {
	repo := NewLedgerRepository(newLedgerDB(t), testLogger())

	_, err := repo.db.Exec(
		`INSERT INTO splits (position_uid, effective_date, ratio) VALUES ('AAPL', '2024-01-08', 2.0)`,
	)
	require.NoError(t, err)

	splits, err := repo.GetSplits([]string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, splits, 1)
	assert.Equal(t, 2.0, splits[0].Ratio)

	splits, err = repo.GetSplits(nil)
	require.NoError(t, err)
	assert.Empty(t, splits)
}

func TestGetCheckpointsAndCashFlows(t *testing.T) {
	repo := NewLedgerRepository(newLedgerDB(t), testLogger())
	seedPortfolio(t, repo)

	_, err := repo.db.Exec(
		`INSERT INTO position_snapshots (portfolio_uid, position_uid, date, quantity, alp)
		 VALUES ('PTF1', 'EUR', '2024-01-05', 990.5, 1.0)`,
	)
	require.NoError(t, err)

	_, err = repo.db.Exec(
		`INSERT INTO cash_flows (portfolio_uid, date, currency, amount) VALUES
		 ('PTF1', '2024-01-01', 'EUR', 1000),
		 ('PTF1', '2024-01-08', 'EUR', -200)`,
	)
	require.NoError(t, err)

	checkpoints, err := repo.GetCheckpoints("PTF1")
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, 990.5, checkpoints[0].Quantity)

	flows, err := repo.GetCashFlows("PTF1")
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, 1000.0, flows[0].Amount)
	assert.Equal(t, -200.0, flows[1].Amount)
	assert.True(t, flows[0].Date.Before(flows[1].Date))
}

func TestGetTrades_EmptyRange(t *testing.T) {
	repo := NewLedgerRepository(newLedgerDB(t), testLogger())

	trades, err := repo.GetTrades("PTF1", time.Time{}, day(t, "2024-01-12"))
	require.NoError(t, err)
	assert.Empty(t, trades)
}
