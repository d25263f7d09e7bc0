package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/KotFed0t/quote_server/internal/date"
)

// DayMonth is one entry of the yearly coupon payment pattern.
type DayMonth struct {
	Day   int
	Month int
}

// in returns the coupon date in the given year, clamped to the end of the month.
func (dm DayMonth) in(year int) date.Date {
	return date.Clamped(year, time.Month(dm.Month), dm.Day)
}

// BondTerms holds the coupon schedule of a bond.
type BondTerms struct {
	InterestFrom date.Date // zero when unknown
	Maturity     date.Date // zero for perpetual bonds
	InterestRate *float64  // annual coupon in percent, 3.5 means 3.5%
	// InterestDates repeats every year, its length is the number of payments per year.
	InterestDates          []DayMonth
	AccruedInterestFetched *float64
}

// DeriveInterestDates builds the yearly coupon pattern for n payments per year,
// starting from the accrual start date.
func DeriveInterestDates(interestFrom date.Date, paymentsPerYear int) []DayMonth {
	if interestFrom.IsZero() || paymentsPerYear <= 0 {
		return nil
	}
	dates := make([]DayMonth, 0, paymentsPerYear)
	for k := range paymentsPerYear {
		d := interestFrom.AddMonths(12 * k / paymentsPerYear)
		dates = append(dates, DayMonth{Day: d.Day(), Month: int(d.Month())})
	}
	return dates
}

// AccruedInterest returns the interest accrued since the last coupon date at target.
//
// A value fetched from the source wins for today. Matured bonds accrue nothing.
// Otherwise the coupon pattern is used with a simple days/365 count on the
// percentage rate.
func (s *Security) AccruedInterest(target, today date.Date) (float64, error) {
	b := s.Bond
	if b == nil {
		return 0, fmt.Errorf("accrued interest for %s: %w", s.symbol, ErrNotBond)
	}

	if target == today && b.AccruedInterestFetched != nil {
		return *b.AccruedInterestFetched, nil
	}

	if !b.Maturity.IsZero() && target.After(b.Maturity) {
		return 0, nil
	}

	if len(b.InterestDates) > 0 && b.InterestRate != nil {
		next := nextCouponDate(b.InterestDates, target)
		months := 12 / len(b.InterestDates)
		periodStart := next.AddMonths(-months)

		accruedDays := next.Sub(periodStart) - next.Sub(target)
		return float64(accruedDays) * *b.InterestRate / 365, nil
	}

	return 0, fmt.Errorf("%w for %s at date %s", ErrInsufficientData, s.symbol, target)
}

// nextCouponDate returns the first coupon date on or after target, looking into
// the following year when none is left in target's year.
func nextCouponDate(pattern []DayMonth, target date.Date) date.Date {
	candidates := make([]date.Date, 0, len(pattern))
	for _, dm := range pattern {
		candidates = append(candidates, dm.in(target.Year()))
	}
	slices.SortFunc(candidates, date.Date.Compare)
	for _, c := range candidates {
		if !c.Before(target) {
			return c
		}
	}

	next := pattern[0].in(target.Year() + 1)
	for _, dm := range pattern[1:] {
		if c := dm.in(target.Year() + 1); c.Before(next) {
			next = c
		}
	}
	return next
}

// CurrentYield is the coupon rate over the clean last price, zero after maturity.
func (s *Security) CurrentYield(today date.Date) *float64 {
	b := s.Bond
	if b == nil || b.InterestRate == nil || s.Last == nil || *s.Last == 0 {
		return nil
	}
	y := 0.0
	if b.Maturity.IsZero() || !today.After(b.Maturity) {
		y = *b.InterestRate / *s.Last
	}
	return &y
}
