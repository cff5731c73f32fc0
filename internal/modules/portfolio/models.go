// Package portfolio reconstructs position histories from the trade ledger
// and derives portfolio value, weights and concentration breakdowns.
package portfolio

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/folio/internal/domain"
)

// Portfolio is the aggregate built from the ledger: static info, the final
// position set and the reconstructed quantity history.
type Portfolio struct {
	Info      domain.PortfolioInfo
	Positions map[string]*domain.Position
	History   *PositionMatrix

	// ConstituentUIDs is the ordered list of non-cash constituents.
	// Its ordering defines the column order of every derived matrix.
	ConstituentUIDs []string

	// Cached derived state, cleared by InvalidateCaches
	covariance  *mat.SymDense
	correlation *mat.SymDense
}

// BaseCash returns the base-currency cash leg
func (p *Portfolio) BaseCash() *domain.Position {
	return p.Positions[p.Info.BaseCurrency]
}

// InvalidateCaches clears cached covariance state. Call whenever
// constituents, weights or the portfolio date change.
func (p *Portfolio) InvalidateCaches() {
	p.covariance = nil
	p.correlation = nil
}

// PositionMatrix is a dense date x position table of outstanding quantities.
// Entries are NaN before a column's first event and forward-filled after it.
type PositionMatrix struct {
	Dates  []time.Time
	UIDs   []string
	colIdx map[string]int
	values []float64 // row-major, len(Dates)*len(UIDs)
}

// NewPositionMatrix creates a NaN-initialized matrix.
func NewPositionMatrix(dates []time.Time, uids []string) *PositionMatrix {
	colIdx := make(map[string]int, len(uids))
	for i, uid := range uids {
		colIdx[uid] = i
	}

	values := make([]float64, len(dates)*len(uids))
	for i := range values {
		values[i] = math.NaN()
	}

	return &PositionMatrix{
		Dates:  dates,
		UIDs:   uids,
		colIdx: colIdx,
		values: values,
	}
}

// Col returns the column index for a position uid, or -1
func (m *PositionMatrix) Col(uid string) int {
	if i, ok := m.colIdx[uid]; ok {
		return i
	}
	return -1
}

// At returns the quantity at row (date index) and column (position index)
func (m *PositionMatrix) At(row, col int) float64 {
	return m.values[row*len(m.UIDs)+col]
}

// Set writes the quantity at row and column
func (m *PositionMatrix) Set(row, col int, v float64) {
	m.values[row*len(m.UIDs)+col] = v
}

// Quantity returns the quantity of a uid at a row, NaN for unknown uids
func (m *PositionMatrix) Quantity(row int, uid string) float64 {
	col := m.Col(uid)
	if col < 0 {
		return math.NaN()
	}
	return m.At(row, col)
}

// CopyRow forward-fills row from the previous row
func (m *PositionMatrix) CopyRow(from, to int) {
	copy(m.values[to*len(m.UIDs):(to+1)*len(m.UIDs)], m.values[from*len(m.UIDs):(from+1)*len(m.UIDs)])
}

// Rows returns the number of dates
func (m *PositionMatrix) Rows() int { return len(m.Dates) }

// Cols returns the number of position columns
func (m *PositionMatrix) Cols() int { return len(m.UIDs) }

// looksLikeCurrency reports whether a uid is a plain ISO currency code.
// Currency legs in the ledger use the code itself as position uid.
func looksLikeCurrency(uid string) bool {
	if len(uid) != 3 {
		return false
	}
	for _, r := range uid {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
