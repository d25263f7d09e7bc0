package model

import (
	"slices"

	"github.com/KotFed0t/quote_server/internal/date"
)

// Snapshot is a partial set of security attributes as produced by a fetcher or the
// seed configuration. Nil fields are absent and never touch the security. A pointer
// to a zero date clears that date (e.g. a perpetual maturity).
type Snapshot struct {
	// Kind is only used when a security is created, it never changes afterwards.
	Kind            *Kind
	Name            *string
	URL             *string
	Currency        *string
	Last            *float64
	High            *float64
	Low             *float64
	LastPriceUpdate *date.Date

	// bond only, ignored for other kinds
	InterestRate           *float64
	InterestFrom           *date.Date
	Maturity               *date.Date
	InterestDates          []DayMonth
	AccruedInterestFetched *float64
}

// FieldChange describes one attribute the merge looked at.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// MergeResult lists the attributes replaced and the ones left alone because
// overwriting was disabled.
type MergeResult struct {
	Changed    []FieldChange
	Suppressed []FieldChange
}

func (r MergeResult) NothingNew() bool { return len(r.Changed) == 0 && len(r.Suppressed) == 0 }

type merger struct {
	overwrite bool
	res       MergeResult
}

// decide reports whether the incoming value must be written.
func (m *merger) decide(field string, hasOld, equal bool, old, incoming any) bool {
	if equal {
		return false
	}
	change := FieldChange{Field: field, Old: old, New: incoming}
	if hasOld && !m.overwrite {
		m.res.Suppressed = append(m.res.Suppressed, change)
		return false
	}
	m.res.Changed = append(m.res.Changed, change)
	return true
}

func mergeString(m *merger, field string, dst *string, src *string) {
	if src == nil {
		return
	}
	if m.decide(field, *dst != "", *dst == *src, *dst, *src) {
		*dst = *src
	}
}

func mergeFloat(m *merger, field string, dst **float64, src *float64) {
	if src == nil {
		return
	}
	var old any
	equal := false
	if *dst != nil {
		old = **dst
		equal = **dst == *src
	}
	if m.decide(field, *dst != nil, equal, old, *src) {
		v := *src
		*dst = &v
	}
}

func mergeDate(m *merger, field string, dst *date.Date, src *date.Date) {
	if src == nil {
		return
	}
	if m.decide(field, !dst.IsZero(), *dst == *src, *dst, *src) {
		*dst = *src
	}
}

func mergeDayMonths(m *merger, field string, dst *[]DayMonth, src []DayMonth) {
	if src == nil {
		return
	}
	if m.decide(field, len(*dst) > 0, slices.Equal(*dst, src), *dst, src) {
		*dst = slices.Clone(src)
	}
}

// MergeSnapshot applies snap to sec field by field. Equal values are a no-op,
// differing values are replaced when overwrite is set; without overwrite only
// attributes that had no value yet are filled in.
func MergeSnapshot(sec *Security, snap Snapshot, overwrite bool) MergeResult {
	m := &merger{overwrite: overwrite}

	mergeString(m, "name", &sec.Name, snap.Name)
	mergeString(m, "url", &sec.URL, snap.URL)
	mergeString(m, "currency", &sec.Currency, snap.Currency)
	mergeFloat(m, "last", &sec.Last, snap.Last)
	mergeFloat(m, "high", &sec.High, snap.High)
	mergeFloat(m, "low", &sec.Low, snap.Low)
	mergeDate(m, "last_price_update", &sec.LastPriceUpdate, snap.LastPriceUpdate)

	if b := sec.Bond; b != nil {
		mergeFloat(m, "interest_rate", &b.InterestRate, snap.InterestRate)
		mergeDate(m, "interest_from", &b.InterestFrom, snap.InterestFrom)
		mergeDate(m, "maturity", &b.Maturity, snap.Maturity)
		mergeDayMonths(m, "interest_dates", &b.InterestDates, snap.InterestDates)
		mergeFloat(m, "accrued_interest_fetched", &b.AccruedInterestFetched, snap.AccruedInterestFetched)
	}

	return m.res
}

// HistoricResult counts what MergeHistoric did.
type HistoricResult struct {
	Added    int
	Replaced int
}

// MergeHistoric inserts new dates into the price history. Existing dates with a
// different price are replaced only when overwrite is set.
func MergeHistoric(sec *Security, series map[date.Date]float64, overwrite bool) HistoricResult {
	var res HistoricResult
	if sec.PriceHistory == nil {
		sec.PriceHistory = make(map[date.Date]float64, len(series))
	}
	for d, price := range series {
		old, ok := sec.PriceHistory[d]
		switch {
		case !ok:
			sec.PriceHistory[d] = price
			res.Added++
		case old != price && overwrite:
			sec.PriceHistory[d] = price
			res.Replaced++
		}
	}
	return res
}
