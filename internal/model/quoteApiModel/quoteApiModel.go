package quoteApiModel

import (
	"encoding/json"

	"github.com/KotFed0t/quote_server/internal/date"
)

type RawSecurity struct {
	Type            string     `json:"type"`
	Name            *string    `json:"name"`
	URL             *string    `json:"url"`
	Currency        *string    `json:"currency"`
	Last            *float64   `json:"last"`
	High            *float64   `json:"high"`
	Low             *float64   `json:"low"`
	InterestRate    *float64   `json:"interestRate"`
	InterestFrom    *date.Date `json:"interestFrom"`
	CouponsPerYear  *int       `json:"couponsPerYear"`
	AccruedInterest *float64   `json:"accruedInterest"`
	LastPriceUpdate *date.Date `json:"lastPriceUpdate"`
	// Maturity is a date, "perpetual" or null. Absent means unknown.
	Maturity json.RawMessage `json:"maturity"`
}

type RawHistory struct {
	Quotes []RawQuote `json:"quotes"`
}

type RawQuote struct {
	Date  date.Date `json:"date"`
	Close *float64  `json:"close"`
}
