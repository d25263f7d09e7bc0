package quoteApiConverter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/internal/model"
	"github.com/KotFed0t/quote_server/internal/model/quoteApiModel"
)

func ConvertSecurity(raw quoteApiModel.RawSecurity) (model.Snapshot, error) {
	kind := model.ParseKind(raw.Type)
	snap := model.Snapshot{
		Kind:                   &kind,
		Name:                   raw.Name,
		URL:                    raw.URL,
		Last:                   raw.Last,
		High:                   raw.High,
		Low:                    raw.Low,
		LastPriceUpdate:        raw.LastPriceUpdate,
		InterestRate:           raw.InterestRate,
		InterestFrom:           raw.InterestFrom,
		AccruedInterestFetched: raw.AccruedInterest,
	}

	if raw.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*raw.Currency))
		snap.Currency = &c
	}

	if len(raw.Maturity) > 0 {
		m, err := convertMaturity(raw.Maturity)
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Maturity = &m
	}

	if raw.CouponsPerYear != nil && raw.InterestFrom != nil {
		snap.InterestDates = model.DeriveInterestDates(*raw.InterestFrom, *raw.CouponsPerYear)
	}

	return snap, nil
}

// convertMaturity maps null and "perpetual" to the zero date.
func convertMaturity(raw json.RawMessage) (date.Date, error) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return date.Date{}, fmt.Errorf("invalid maturity %s: %w", raw, err)
	}
	if s == nil || *s == "" || strings.EqualFold(*s, "perpetual") {
		return date.Date{}, nil
	}
	return date.Parse(*s)
}

// ConvertHistory keeps the quotes with a price inside [from, to].
func ConvertHistory(raw quoteApiModel.RawHistory, from, to date.Date) map[date.Date]float64 {
	res := make(map[date.Date]float64, len(raw.Quotes))
	for _, q := range raw.Quotes {
		if q.Close == nil || q.Date.IsZero() || q.Date.Before(from) || q.Date.After(to) {
			continue
		}
		res[q.Date] = *q.Close
	}
	return res
}
