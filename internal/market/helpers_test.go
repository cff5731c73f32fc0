package market

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/database"
)

// testGrid is ten consecutive weekdays in January 2024
var testGrid = []string{
	"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
	"2024-01-08", "2024-01-09", "2024-01-10", "2024-01-11", "2024-01-12",
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	return d
}

func newMarketDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "market.db"),
		Profile: database.ProfileStandard,
		Name:    "market",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	for _, d := range testGrid {
		_, err := db.Exec(`INSERT INTO trading_days (date) VALUES (?)`, d)
		require.NoError(t, err)
	}

	return db
}

func newLedgerDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newTestCalendar(t *testing.T) *Calendar {
	t.Helper()

	dates := make([]time.Time, len(testGrid))
	for i, s := range testGrid {
		dates[i] = day(t, s)
	}
	cal, err := NewCalendar(dates, time.Time{})
	require.NoError(t, err)
	return cal
}

func insertPrices(t *testing.T, db *database.DB, uid string, points map[string]float64) {
	t.Helper()
	for date, price := range points {
		_, err := db.Exec(`INSERT INTO prices (uid, date, price) VALUES (?, ?, ?)`, uid, date, price)
		require.NoError(t, err)
	}
}

func insertAsset(t *testing.T, db *database.DB, uid, typ, currency, country, sector string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO assets (uid, asset_type, currency, country, sector) VALUES (?, ?, ?, ?, ?)`,
		uid, typ, currency, country, sector,
	)
	require.NoError(t, err)
}

func insertFx(t *testing.T, db *database.DB, base, quote string, points map[string]float64) {
	t.Helper()
	for date, rate := range points {
		_, err := db.Exec(
			`INSERT INTO fx_rates (base_currency, quote_currency, date, rate) VALUES (?, ?, ?, ?)`,
			base, quote, date, rate,
		)
		require.NoError(t, err)
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
