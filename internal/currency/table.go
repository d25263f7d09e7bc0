package currency

import (
	"slices"

	"github.com/KotFed0t/quote_server/internal/date"
)

const Base = "EUR"

// series is the rate history of one currency, quoted per 1 EUR.
type series struct {
	dates  []date.Date
	values []float64
}

// nearest returns the value of the closest date, the earlier one on a tie.
func (s series) nearest(on date.Date) float64 {
	i, found := slices.BinarySearchFunc(s.dates, on, date.Date.Compare)
	switch {
	case found:
		return s.values[i]
	case i == 0:
		return s.values[0]
	case i == len(s.dates):
		return s.values[len(s.values)-1]
	}
	if on.Sub(s.dates[i-1]) <= s.dates[i].Sub(on) {
		return s.values[i-1]
	}
	return s.values[i]
}

// Table is an immutable set of daily reference rates.
type Table struct {
	byCurrency map[string]series
	days       int
}

// NewTable indexes daily rates given as date -> currency -> units per EUR.
// Non positive rates are dropped.
func NewTable(daily map[date.Date]map[string]float64) *Table {
	t := &Table{byCurrency: make(map[string]series), days: len(daily)}
	for _, d := range sortedDays(daily) {
		for code, v := range daily[d] {
			if v <= 0 {
				continue
			}
			s := t.byCurrency[code]
			s.dates = append(s.dates, d)
			s.values = append(s.values, v)
			t.byCurrency[code] = s
		}
	}
	return t
}

func sortedDays(daily map[date.Date]map[string]float64) []date.Date {
	days := make([]date.Date, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	slices.SortFunc(days, date.Date.Compare)
	return days
}

// perEUR returns how many units of code one EUR buys on the given day.
func (t *Table) perEUR(code string, on date.Date) (float64, bool) {
	if code == Base {
		return 1, true
	}
	s, ok := t.byCurrency[code]
	if !ok || len(s.dates) == 0 {
		return 0, false
	}
	return s.nearest(on), true
}

func (t *Table) Days() int { return t.days }

func (t *Table) Currencies() []string {
	codes := make([]string, 0, len(t.byCurrency)+1)
	codes = append(codes, Base)
	for code := range t.byCurrency {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}
