package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/KotFed0t/quote_server/internal/date"
)

var (
	ErrMissingHook      = errors.New("fetch hook is not configured")
	ErrInsufficientData = errors.New("not enough information to compute accrued interest")
	ErrNotBond          = errors.New("dirty prices are only available for bonds")
)

type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindStock      Kind = "stock"
	KindETF        Kind = "etf"
	KindBond       Kind = "bond"
	KindDerivative Kind = "derivative"
)

// ParseKind maps free text to a Kind, anything unrecognised is KindUnknown.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindStock, KindETF, KindBond, KindDerivative:
		return k
	case "fund":
		return KindETF
	default:
		return KindUnknown
	}
}

type InfoFetcher func(ctx context.Context) (Snapshot, error)

type HistoricFetcher func(ctx context.Context, start, end date.Date) (map[date.Date]float64, error)

// Security is a tradeable asset with its latest quote and cached price history.
// Prices are in the security's native Currency.
//
// A Security is not safe for concurrent use, callers serialize access per symbol.
type Security struct {
	symbol string
	kind   Kind

	Name     string
	URL      string
	Currency string

	Last *float64
	High *float64
	Low  *float64

	LastPriceUpdate date.Date
	PriceHistory    map[date.Date]float64

	// Bond is set iff the security is a bond.
	Bond *BondTerms

	FetchInfo     InfoFetcher
	FetchHistoric HistoricFetcher
}

// New returns an empty security of the given kind.
func New(symbol string, kind Kind) *Security {
	s := &Security{
		symbol:       symbol,
		kind:         kind,
		PriceHistory: make(map[date.Date]float64),
	}
	if kind == KindBond {
		s.Bond = &BondTerms{}
	}
	return s
}

func (s *Security) Symbol() string { return s.symbol }
func (s *Security) Kind() Kind     { return s.kind }
func (s *Security) IsBond() bool   { return s.Bond != nil }

func (s *Security) String() string {
	return fmt.Sprintf("<%s: symbol %s>", s.kind, s.symbol)
}

// LatestQuoteDate returns the most recent date of the price history and false if
// the history is empty.
func (s *Security) LatestQuoteDate() (date.Date, bool) {
	var latest date.Date
	for d := range s.PriceHistory {
		if latest.IsZero() || d.After(latest) {
			latest = d
		}
	}
	return latest, !latest.IsZero()
}

// SortedDates returns the dates of the price history in ascending order.
func SortedDates(history map[date.Date]float64) []date.Date {
	days := make([]date.Date, 0, len(history))
	for d := range history {
		days = append(days, d)
	}
	slices.SortFunc(days, date.Date.Compare)
	return days
}

// Update fetches the latest snapshot and merges it, overwriting differing values.
func (s *Security) Update(ctx context.Context) (MergeResult, error) {
	if s.FetchInfo == nil {
		return MergeResult{}, fmt.Errorf("update %s: %w", s.symbol, ErrMissingHook)
	}
	snap, err := s.FetchInfo(ctx)
	if err != nil {
		return MergeResult{}, fmt.Errorf("fetch info for %s: %w", s.symbol, err)
	}
	return MergeSnapshot(s, snap, true), nil
}

// UpdateHistoric fetches quotes between start and end (inclusive) and merges them.
func (s *Security) UpdateHistoric(ctx context.Context, start, end date.Date) (HistoricResult, error) {
	if s.FetchHistoric == nil {
		return HistoricResult{}, fmt.Errorf("update historic %s: %w", s.symbol, ErrMissingHook)
	}
	series, err := s.FetchHistoric(ctx, start, end)
	if err != nil {
		return HistoricResult{}, fmt.Errorf("fetch historic quotes for %s: %w", s.symbol, err)
	}
	return MergeHistoric(s, series, true), nil
}
