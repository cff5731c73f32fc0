// Package market implements the storage-backed collaborators of the
// analytics core: the trading calendar, price and FX lookups and the trade
// ledger, plus the per-run resolution context that caches them.
package market

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/folio/internal/database"
)

const dateLayout = "2006-01-02"

// Calendar is the shared grid of trading dates every series aligns to.
// Dates are sorted ascending and unique.
type Calendar struct {
	dates []time.Time
	index map[string]int
	t0    time.Time
}

// NewCalendar creates a calendar from a list of trading dates. The t0
// "as of" date defaults to the last date when zero.
func NewCalendar(dates []time.Time, t0 time.Time) (*Calendar, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("calendar requires at least one trading date")
	}

	sorted := make([]time.Time, len(dates))
	for i, d := range dates {
		sorted[i] = normalize(d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	index := make(map[string]int, len(sorted))
	for i, d := range sorted {
		key := d.Format(dateLayout)
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("duplicate trading date %s", key)
		}
		index[key] = i
	}

	if t0.IsZero() {
		t0 = sorted[len(sorted)-1]
	} else {
		t0 = normalize(t0)
	}

	return &Calendar{dates: sorted, index: index, t0: t0}, nil
}

// LoadCalendar reads the trading_days table from the market database
func LoadCalendar(db *database.DB, t0 time.Time) (*Calendar, error) {
	rows, err := db.Query(`SELECT date FROM trading_days ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trading days: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan trading day: %w", err)
		}
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("malformed trading day %q: %w", s, err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return NewCalendar(dates, t0)
}

// TradingDates returns the ordered trading-date grid
func (c *Calendar) TradingDates() []time.Time {
	return c.dates
}

// Len returns the number of trading dates
func (c *Calendar) Len() int { return len(c.dates) }

// T0 is the "as of" date valuation and reconstruction run up to
func (c *Calendar) T0() time.Time { return c.t0 }

// Start is the first date on the grid
func (c *Calendar) Start() time.Time { return c.dates[0] }

// Index returns the grid position of an exact trading date, or -1
func (c *Calendar) Index(date time.Time) int {
	if i, ok := c.index[normalize(date).Format(dateLayout)]; ok {
		return i
	}
	return -1
}

// FloorIndex returns the position of the last trading date at-or-before
// the given date, or -1 when the date precedes the grid.
func (c *Calendar) FloorIndex(date time.Time) int {
	d := normalize(date)
	i := sort.Search(len(c.dates), func(i int) bool { return c.dates[i].After(d) })
	return i - 1
}

// Shift moves a date by n trading days, forward or backward. The input is
// first floored onto the grid; results clamp at the grid edges.
func (c *Calendar) Shift(date time.Time, n int, forward bool) time.Time {
	i := c.FloorIndex(date)
	if i < 0 {
		i = 0
	}
	if forward {
		i += n
	} else {
		i -= n
	}
	if i < 0 {
		i = 0
	}
	if i >= len(c.dates) {
		i = len(c.dates) - 1
	}
	return c.dates[i]
}

func normalize(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
