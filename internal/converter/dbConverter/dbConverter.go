package dbConverter

import (
	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/internal/model"
	"github.com/KotFed0t/quote_server/internal/model/dbModel"
	"github.com/shopspring/decimal"
)

func ConvertQuotes(dbQuotes []dbModel.Quote) map[date.Date]float64 {
	history := make(map[date.Date]float64, len(dbQuotes))
	for _, q := range dbQuotes {
		history[date.New(q.QuoteDate.Date())] = q.Last.InexactFloat64()
	}
	return history
}

// ConvertHistory returns the rows of a history in date order.
func ConvertHistory(symbol string, history map[date.Date]float64) []dbModel.Quote {
	quotes := make([]dbModel.Quote, 0, len(history))
	for _, d := range model.SortedDates(history) {
		quotes = append(quotes, dbModel.Quote{
			Symbol:    symbol,
			QuoteDate: d.Time(),
			Last:      decimal.NewFromFloat(history[d]),
		})
	}
	return quotes
}
