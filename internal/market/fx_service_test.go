package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/domain"
)

func TestGetConversion_Identity(t *testing.T) {
	db := newMarketDB(t)
	fx := NewFxService(db, newTestCalendar(t), testLogger())

	conv, err := fx.GetConversion("EUR", "EUR")
	require.NoError(t, err)

	assert.Equal(t, domain.FxIdentity, conv.Direction())
	assert.Equal(t, 1.0, conv.Prices().Values[0])

	// Return series is constant zero after the undefined first entry
	assert.True(t, math.IsNaN(conv.Returns().Values[0]))
	for _, r := range conv.Returns().Values[1:] {
		assert.Equal(t, 0.0, r)
	}
}

func TestGetConversion_Direct(t *testing.T) {
	db := newMarketDB(t)
	insertFx(t, db, "USD", "EUR", map[string]float64{
		"2024-01-01": 0.90,
		"2024-01-02": 0.92,
	})
	fx := NewFxService(db, newTestCalendar(t), testLogger())

	conv, err := fx.GetConversion("USD", "EUR")
	require.NoError(t, err)

	assert.Equal(t, domain.FxDirect, conv.Direction())
	assert.Equal(t, 0.90, conv.Prices().Values[0])
	assert.Equal(t, 0.92, conv.Prices().Values[1])
	// Forward-filled beyond the last observation
	assert.Equal(t, 0.92, conv.Prices().Values[9])
	assert.InDelta(t, 0.92/0.90-1, conv.Returns().Values[1], 1e-12)
}

func TestGetConversion_Inverted(t *testing.T) {
	db := newMarketDB(t)
	insertFx(t, db, "USD", "EUR", map[string]float64{"2024-01-01": 0.80})
	fx := NewFxService(db, newTestCalendar(t), testLogger())

	// Only USD->EUR is stored; EUR->USD resolves through the inverse
	conv, err := fx.GetConversion("EUR", "USD")
	require.NoError(t, err)

	assert.Equal(t, domain.FxInverted, conv.Direction())
	assert.InDelta(t, 1.25, conv.Prices().Values[0], 1e-12)
}

func TestGetConversion_Pegged(t *testing.T) {
	db := newMarketDB(t)
	_, err := db.Exec(
		`INSERT INTO pegged_currencies (currency, pegged_to, parity) VALUES ('DKK', 'EUR', 0.134)`,
	)
	require.NoError(t, err)
	fx := NewFxService(db, newTestCalendar(t), testLogger())

	conv, err := fx.GetConversion("DKK", "EUR")
	require.NoError(t, err)
	assert.Equal(t, domain.FxPegged, conv.Direction())
	assert.Equal(t, 0.134, conv.Prices().Values[0])

	// Reverse direction uses the inverse parity
	conv, err = fx.GetConversion("EUR", "DKK")
	require.NoError(t, err)
	assert.Equal(t, domain.FxPegged, conv.Direction())
	assert.InDelta(t, 1/0.134, conv.Prices().Values[0], 1e-12)
}

func TestGetConversion_NotFound(t *testing.T) {
	db := newMarketDB(t)
	fx := NewFxService(db, newTestCalendar(t), testLogger())

	_, err := fx.GetConversion("GBP", "JPY")
	assert.True(t, domain.IsMissingData(err))
}

func TestConversion_At(t *testing.T) {
	db := newMarketDB(t)
	insertFx(t, db, "USD", "EUR", map[string]float64{"2024-01-03": 0.91})
	fx := NewFxService(db, newTestCalendar(t), testLogger())

	conv, err := fx.GetConversion("USD", "EUR")
	require.NoError(t, err)

	// Last valid value at-or-before the date
	v, err := conv.At(day(t, "2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, 0.91, v)

	// No observation yet
	_, err = conv.At(day(t, "2024-01-01"))
	assert.True(t, domain.IsMissingData(err))
}
