package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestNew_DefaultsToStandardProfile(t *testing.T) {
	db, err := New(Config{
		Path: filepath.Join(t.TempDir(), "plain.db"),
		Name: "plain",
	})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "plain", db.Name())
}

func TestMigrate_AppliesEmbeddedSchema(t *testing.T) {
	db := newTestDB(t, "market", ProfileStandard)

	require.NoError(t, db.Migrate())

	// Schema is idempotent
	require.NoError(t, db.Migrate())

	_, err := db.Exec(`INSERT INTO assets (uid, asset_type, currency) VALUES ('AAPL', 'Equity', 'USD')`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM assets`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch", ProfileCache)
	assert.NoError(t, db.Migrate())
}

func TestLedgerSchema_TradesRoundTrip(t *testing.T) {
	db := newTestDB(t, "ledger", ProfileLedger)
	require.NoError(t, db.Migrate())

	_, err := db.Exec(
		`INSERT INTO trades (portfolio_uid, date, position_uid, side, currency, quantity, price, costs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"PTF1", "2024-01-02", "AAPL", 1, "USD", 10, 185.5, 1.5,
	)
	require.NoError(t, err)

	var qty float64
	err = db.QueryRow(`SELECT quantity FROM trades WHERE portfolio_uid = 'PTF1'`).Scan(&qty)
	require.NoError(t, err)
	assert.Equal(t, 10.0, qty)
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t, "market", ProfileStandard)
	require.NoError(t, db.Migrate())

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, db.QuickCheck(context.Background()))
}

func TestWALCheckpointAndStats(t *testing.T) {
	db := newTestDB(t, "market", ProfileStandard)
	require.NoError(t, db.Migrate())

	require.NoError(t, db.WALCheckpoint(""))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}
