package currency

import (
	"context"
	"errors"
	"testing"

	"github.com/KotFed0t/quote_server/internal/date"
)

var testRates = Rates{
	date.New(2024, 1, 2): {"USD": 1.10, "GBP": 0.86},
	date.New(2024, 1, 5): {"USD": 1.20, "GBP": 0.88},
	date.New(2024, 1, 9): {"USD": 1.40},
}

func TestRateIdentity(t *testing.T) {
	c := New(nil, nil)
	for _, to := range []string{"", "EUR", "eur"} {
		r, err := c.Rate("EUR", to, date.New(2024, 1, 1))
		if err != nil || r != 1 {
			t.Errorf("Rate(EUR, %q) = %v, %v want 1", to, r, err)
		}
	}
}

func TestRate(t *testing.T) {
	c := NewWithTable(NewTable(testRates))
	// computed at run time like the converter does, not as exact constants
	usd2, usd5, gbp2 := 1.10, 1.20, 0.86

	tests := []struct {
		from, to string
		on       date.Date
		want     float64
	}{
		{"EUR", "USD", date.New(2024, 1, 2), 1.10},
		{"USD", "EUR", date.New(2024, 1, 5), 1 / usd5},
		{"USD", "GBP", date.New(2024, 1, 2), gbp2 / usd2},
		// missing day, nearest is 2024-01-05
		{"EUR", "USD", date.New(2024, 1, 6), 1.20},
		// 2024-01-07 is two days from both neighbours, the earlier wins
		{"EUR", "USD", date.New(2024, 1, 7), 1.20},
		{"EUR", "USD", date.New(2024, 1, 8), 1.40},
		// outside the table the first or last rate is used
		{"EUR", "USD", date.New(2023, 6, 1), 1.10},
		{"EUR", "USD", date.New(2025, 1, 1), 1.40},
		// GBP has no rate on 2024-01-09, its own history is used
		{"EUR", "GBP", date.New(2024, 1, 9), 0.88},
	}
	for _, tt := range tests {
		got, err := c.Rate(tt.from, tt.to, tt.on)
		if err != nil {
			t.Errorf("Rate(%s, %s, %s) unexpected error %v", tt.from, tt.to, tt.on, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Rate(%s, %s, %s) = %v want %v", tt.from, tt.to, tt.on, got, tt.want)
		}
	}
}

func TestRateUnknownCurrency(t *testing.T) {
	c := NewWithTable(NewTable(testRates))
	for _, code := range []string{"XXQ", "JPY"} {
		if _, err := c.Rate("EUR", code, date.New(2024, 1, 2)); !errors.Is(err, ErrCurrencyNotFound) {
			t.Errorf("Rate(EUR, %s) error = %v want ErrCurrencyNotFound", code, err)
		}
		if _, err := c.Rate(code, "EUR", date.New(2024, 1, 2)); !errors.Is(err, ErrCurrencyNotFound) {
			t.Errorf("Rate(%s, EUR) error = %v want ErrCurrencyNotFound", code, err)
		}
	}
}

func TestRateNotLoaded(t *testing.T) {
	c := New(nil, nil)
	if _, err := c.Rate("EUR", "USD", date.New(2024, 1, 2)); !errors.Is(err, ErrRatesNotLoaded) {
		t.Errorf("Rate() error = %v want ErrRatesNotLoaded", err)
	}
}

type stubFetcher struct {
	rates Rates
	err   error
	calls int
}

func (f *stubFetcher) FetchRates(ctx context.Context) (Rates, error) {
	f.calls++
	return f.rates, f.err
}

type memCache struct {
	rates Rates
	sets  int
}

func (m *memCache) GetRates(ctx context.Context) (Rates, error) {
	if m.rates == nil {
		return nil, errors.New("miss")
	}
	return m.rates, nil
}

func (m *memCache) SetRates(ctx context.Context, rates Rates) error {
	m.rates = rates
	m.sets++
	return nil
}

func TestLoadPrefersCache(t *testing.T) {
	fetcher := &stubFetcher{rates: testRates}
	cache := &memCache{rates: Rates{date.New(2024, 1, 2): {"USD": 2}}}
	c := New(fetcher, cache)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() unexpected error %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("Load() downloaded rates despite a cached table")
	}
	if r, _ := c.Rate("EUR", "USD", date.New(2024, 1, 2)); r != 2 {
		t.Errorf("Rate() = %v want cached 2", r)
	}
}

func TestLoadFillsCache(t *testing.T) {
	fetcher := &stubFetcher{rates: testRates}
	cache := &memCache{}
	c := New(fetcher, cache)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() unexpected error %v", err)
	}
	if fetcher.calls != 1 || cache.sets != 1 {
		t.Errorf("Load() fetched %d times and cached %d times want 1 and 1", fetcher.calls, cache.sets)
	}
}

func TestRefreshFailureKeepsTable(t *testing.T) {
	fetcher := &stubFetcher{rates: testRates}
	c := New(fetcher, nil)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() unexpected error %v", err)
	}

	fetcher.err = errors.New("ecb down")
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() want error")
	}
	if r, err := c.Rate("EUR", "USD", date.New(2024, 1, 2)); err != nil || r != 1.10 {
		t.Errorf("Rate() after failed refresh = %v, %v want 1.10", r, err)
	}
}

func TestTableCurrencies(t *testing.T) {
	tbl := NewTable(testRates)
	got := tbl.Currencies()
	want := []string{"EUR", "GBP", "USD"}
	if len(got) != len(want) {
		t.Fatalf("Currencies() = %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Currencies() = %v want %v", got, want)
		}
	}
	if tbl.Days() != 3 {
		t.Errorf("Days() = %d want 3", tbl.Days())
	}
}

func TestDisplay(t *testing.T) {
	if got := Display(12.5, "GBP"); got != "£12.50" {
		t.Errorf("Display(GBP) = %q", got)
	}
	if got := Display(3, "ZZZ"); got != "3.00 ZZZ" {
		t.Errorf("Display(unknown) = %q", got)
	}
}
