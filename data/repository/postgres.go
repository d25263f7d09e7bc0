package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/quote_server/internal/converter/dbConverter"
	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/internal/model/dbModel"
	"github.com/KotFed0t/quote_server/utils"
	"github.com/jmoiron/sqlx"
)

// Postgres keeps quotes in the quotes table, one row per symbol and day.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Save replaces every stored quote of symbol with history in one transaction.
func (r *Postgres) Save(ctx context.Context, symbol string, history map[date.Date]float64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.Save"

	slog.Debug("Save start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.Int("quotes", len(history)))
	defer func() {
		if err != nil {
			slog.Error("Save failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			err = fmt.Errorf("%w: %w", ErrQuoteStoreUnavailable, err)
		} else {
			slog.Debug("Save completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM quotes WHERE symbol = $1`, symbol); err != nil {
		return err
	}

	quotes := dbConverter.ConvertHistory(symbol, history)
	if len(quotes) > 0 {
		query, args := insertQuotesQuery(quotes)
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertQuotesQuery(quotes []dbModel.Quote) (string, []any) {
	sb := strings.Builder{}
	args := make([]any, 0, len(quotes)*3)

	sb.WriteString(`INSERT INTO quotes (symbol, quote_date, last) VALUES `)

	for i, q := range quotes {
		args = append(args, q.Symbol, q.QuoteDate, q.Last)

		start := i*3 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d)", start, start+1, start+2))

		if i < len(quotes)-1 {
			sb.WriteString(",")
		}
	}

	return sb.String(), args
}

func (r *Postgres) Load(ctx context.Context, symbol string) (history map[date.Date]float64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.Load"
	query := `
		SELECT symbol, quote_date, last
		FROM quotes
		WHERE symbol = $1
		ORDER BY quote_date
		`

	slog.Debug("Load start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("symbol", symbol))
	defer func() {
		if err != nil {
			slog.Error("Load failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			err = fmt.Errorf("%w: %w", ErrQuoteStoreUnavailable, err)
		} else {
			slog.Debug("Load completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("quotes", len(history)))
		}
	}()

	var quotes []dbModel.Quote
	if err = r.db.SelectContext(ctx, &quotes, query, symbol); err != nil {
		return nil, err
	}

	return dbConverter.ConvertQuotes(quotes), nil
}
