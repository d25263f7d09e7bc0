package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Symbol    string          `db:"symbol"`
	QuoteDate time.Time       `db:"quote_date"`
	Last      decimal.Decimal `db:"last"`
}
