package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/utils"
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyNotFound = errors.New("currency not found")
	ErrRatesNotLoaded   = errors.New("exchange rates are not loaded")
)

// Rates is the wire form of a rate table: date -> currency -> units per EUR.
type Rates = map[date.Date]map[string]float64

type RatesFetcher interface {
	FetchRates(ctx context.Context) (Rates, error)
}

type RatesCache interface {
	GetRates(ctx context.Context) (Rates, error)
	SetRates(ctx context.Context, rates Rates) error
}

// Converter turns amounts between currencies using ECB reference rates. A missing
// day falls back to the nearest day with a published rate.
type Converter struct {
	fetcher RatesFetcher
	cache   RatesCache

	mu    sync.RWMutex
	table *Table
}

// New returns a converter without rates, call Load before use. cache may be nil.
func New(fetcher RatesFetcher, cache RatesCache) *Converter {
	return &Converter{fetcher: fetcher, cache: cache}
}

// NewWithTable returns a converter serving a fixed table.
func NewWithTable(t *Table) *Converter {
	return &Converter{table: t}
}

// Load fills the table from the cache and downloads it when the cache is empty.
func (c *Converter) Load(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Converter.Load"

	if c.cache != nil {
		rates, err := c.cache.GetRates(ctx)
		if err == nil && len(rates) > 0 {
			c.swap(NewTable(rates))
			slog.Info("exchange rates loaded from cache", slog.String("rqID", rqID), slog.String("op", op), slog.Int("days", len(rates)))
			return nil
		}
		if err != nil {
			slog.Info("exchange rates cache miss", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	return c.Refresh(ctx)
}

// Refresh downloads the rates, stores them in the cache and swaps the table.
func (c *Converter) Refresh(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Converter.Refresh"

	if c.fetcher == nil {
		return fmt.Errorf("%s: no rates fetcher", op)
	}

	rates, err := c.fetcher.FetchRates(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(rates) == 0 {
		return fmt.Errorf("%s: empty rates table", op)
	}

	c.swap(NewTable(rates))
	slog.Info("exchange rates refreshed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("days", len(rates)))

	if c.cache != nil {
		if err := c.cache.SetRates(ctx, rates); err != nil {
			slog.Error("can't store exchange rates in cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}
	return nil
}

func (c *Converter) swap(t *Table) {
	c.mu.Lock()
	c.table = t
	c.mu.Unlock()
}

func (c *Converter) current() *Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// Rate returns the factor converting an amount in from into to on the given day.
func (c *Converter) Rate(from, to string, on date.Date) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if to == "" || to == from {
		return 1, nil
	}
	if err := Validate(from); err != nil {
		return 0, err
	}
	if err := Validate(to); err != nil {
		return 0, err
	}

	t := c.current()
	if t == nil {
		return 0, ErrRatesNotLoaded
	}

	fromRate, ok := t.perEUR(from, on)
	if !ok {
		return 0, fmt.Errorf("no exchange rate for %s: %w", from, ErrCurrencyNotFound)
	}
	toRate, ok := t.perEUR(to, on)
	if !ok {
		return 0, fmt.Errorf("no exchange rate for %s: %w", to, ErrCurrencyNotFound)
	}
	return toRate / fromRate, nil
}

// Validate checks that code is an ISO 4217 currency code.
func Validate(code string) error {
	if money.GetCurrency(strings.ToUpper(code)) == nil {
		return fmt.Errorf("unknown currency code %q: %w", code, ErrCurrencyNotFound)
	}
	return nil
}

// Display formats an amount with the currency's symbol and precision, for logs
// and HTML pages.
func Display(amount float64, code string) string {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return fmt.Sprintf("%.2f %s", amount, code)
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}
