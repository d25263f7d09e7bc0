package model

import (
	"fmt"

	"github.com/KotFed0t/quote_server/internal/date"
)

// Converter returns the factor turning an amount in from into an amount in to,
// using the exchange rate of the given day.
type Converter interface {
	Rate(from, to string, on date.Date) (float64, error)
}

// ConvertValue converts a single amount at the rate of the day on. An absent value
// stays absent.
func ConvertValue(conv Converter, v *float64, from, to string, on date.Date) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	if to == "" || to == from {
		out := *v
		return &out, nil
	}
	rate, err := conv.Rate(from, to, on)
	if err != nil {
		return nil, err
	}
	out := *v * rate
	return &out, nil
}

// ConvertSeries converts every entry at the rate of its own date.
func ConvertSeries(conv Converter, series map[date.Date]float64, from, to string) (map[date.Date]float64, error) {
	if series == nil {
		return nil, nil
	}
	out := make(map[date.Date]float64, len(series))
	if to == "" || to == from {
		for d, v := range series {
			out[d] = v
		}
		return out, nil
	}
	for d, v := range series {
		rate, err := conv.Rate(from, to, d)
		if err != nil {
			return nil, err
		}
		out[d] = v * rate
	}
	return out, nil
}

// Pricer exposes the currency aware clean and dirty prices of securities.
type Pricer struct {
	conv  Converter
	today func() date.Date
}

func NewPricer(conv Converter, today func() date.Date) *Pricer {
	if today == nil {
		today = date.Today
	}
	return &Pricer{conv: conv, today: today}
}

func (p *Pricer) Today() date.Date { return p.today() }

func (p *Pricer) scalar(sec *Security, v *float64, target string) (*float64, error) {
	return ConvertValue(p.conv, v, sec.Currency, target, p.today())
}

func (p *Pricer) Last(sec *Security, target string) (*float64, error) {
	return p.scalar(sec, sec.Last, target)
}

func (p *Pricer) High(sec *Security, target string) (*float64, error) {
	return p.scalar(sec, sec.High, target)
}

func (p *Pricer) Low(sec *Security, target string) (*float64, error) {
	return p.scalar(sec, sec.Low, target)
}

func (p *Pricer) PriceHistory(sec *Security, target string) (map[date.Date]float64, error) {
	return ConvertSeries(p.conv, sec.PriceHistory, sec.Currency, target)
}

// AccruedInterest is the bond's accrued interest at target in its native currency.
func (p *Pricer) AccruedInterest(sec *Security, target date.Date) (float64, error) {
	return sec.AccruedInterest(target, p.today())
}

func (p *Pricer) dirty(sec *Security, clean *float64, target string) (*float64, error) {
	if !sec.IsBond() {
		return nil, fmt.Errorf("%s: %w", sec.symbol, ErrNotBond)
	}
	if clean == nil {
		return nil, nil
	}
	today := p.today()
	ai, err := sec.AccruedInterest(today, today)
	if err != nil {
		return nil, err
	}
	v := *clean + ai
	return ConvertValue(p.conv, &v, sec.Currency, target, today)
}

func (p *Pricer) DirtyLast(sec *Security, target string) (*float64, error) {
	return p.dirty(sec, sec.Last, target)
}

func (p *Pricer) DirtyHigh(sec *Security, target string) (*float64, error) {
	return p.dirty(sec, sec.High, target)
}

func (p *Pricer) DirtyLow(sec *Security, target string) (*float64, error) {
	return p.dirty(sec, sec.Low, target)
}

// DirtyPriceHistory adds the accrued interest of each date to its clean price.
func (p *Pricer) DirtyPriceHistory(sec *Security, target string) (map[date.Date]float64, error) {
	if !sec.IsBond() {
		return nil, fmt.Errorf("%s: %w", sec.symbol, ErrNotBond)
	}
	today := p.today()
	dirty := make(map[date.Date]float64, len(sec.PriceHistory))
	for d, clean := range sec.PriceHistory {
		ai, err := sec.AccruedInterest(d, today)
		if err != nil {
			return nil, err
		}
		dirty[d] = clean + ai
	}
	return ConvertSeries(p.conv, dirty, sec.Currency, target)
}
