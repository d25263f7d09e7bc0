package model

import (
	"fmt"

	"github.com/KotFed0t/quote_server/internal/date"
)

// QuoteTable is the latest quote of a security as served to portfolio tools.
type QuoteTable struct {
	Symbol   string
	Name     string
	URL      string
	Date     date.Date
	High     *float64
	Low      *float64
	Last     *float64
	Currency string
	Note     string
}

type PricePoint struct {
	Date  date.Date
	Price float64
}

// HistoryTable is a price history in ascending date order.
type HistoryTable struct {
	Symbol   string
	Name     string
	URL      string
	Currency string
	Dirty    bool
	Note     string
	Prices   []PricePoint
}

func PriceKind(dirty bool) string {
	if dirty {
		return "dirty"
	}
	return "clean"
}

func RatesNote(dirty bool, currency string) string {
	return fmt.Sprintf("All rates are %s and, if necessary, converted to %s.", PriceKind(dirty), currency)
}

func NewPricePoints(history map[date.Date]float64) []PricePoint {
	points := make([]PricePoint, 0, len(history))
	for _, d := range SortedDates(history) {
		points = append(points, PricePoint{Date: d, Price: history[d]})
	}
	return points
}
