package quoteApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KotFed0t/quote_server/config"
	"github.com/KotFed0t/quote_server/internal/converter/quoteApiConverter"
	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/internal/externalApi"
	"github.com/KotFed0t/quote_server/internal/model"
	"github.com/KotFed0t/quote_server/internal/model/quoteApiModel"
	"github.com/KotFed0t/quote_server/utils"
	"github.com/go-resty/resty/v2"
)

type QuoteApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *QuoteApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.QuoteApi.Url)
	return &QuoteApi{client: client}
}

func (a *QuoteApi) get(ctx context.Context, op, url string, pathParams, query map[string]string, out any) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start "+op+" request", slog.String("rqID", rqID), slog.Any("params", pathParams))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetPathParams(pathParams).
		SetQueryParams(query).
		Get(url)
	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return externalApi.ErrNotFound
	default:
		slog.Error("unexpected QuoteApi status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return fmt.Errorf("%w: status %d", externalApi.ErrUnexpectedResp, resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		slog.Error("can't unmarshall QuoteApi response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%w: %w", externalApi.ErrUnexpectedResp, err)
	}

	slog.Debug(op+" request complete", slog.String("rqID", rqID))
	return nil
}

// GetSecurity returns the current attributes of symbol.
func (a *QuoteApi) GetSecurity(ctx context.Context, symbol string) (model.Snapshot, error) {
	raw := quoteApiModel.RawSecurity{}
	err := a.get(ctx, "QuoteApi.GetSecurity", "/securities/{symbol}", map[string]string{"symbol": symbol}, nil, &raw)
	if err != nil {
		return model.Snapshot{}, err
	}
	return quoteApiConverter.ConvertSecurity(raw)
}

// GetHistory returns the closing prices of symbol between from and to inclusive.
func (a *QuoteApi) GetHistory(ctx context.Context, symbol string, from, to date.Date) (map[date.Date]float64, error) {
	raw := quoteApiModel.RawHistory{}
	query := map[string]string{"from": from.String(), "to": to.String()}
	err := a.get(ctx, "QuoteApi.GetHistory", "/securities/{symbol}/history", map[string]string{"symbol": symbol}, query, &raw)
	if err != nil {
		return nil, err
	}
	return quoteApiConverter.ConvertHistory(raw, from, to), nil
}

// Hooks binds the fetchers of a security to this client.
func (a *QuoteApi) Hooks(symbol string) (model.InfoFetcher, model.HistoricFetcher) {
	info := func(ctx context.Context) (model.Snapshot, error) {
		return a.GetSecurity(ctx, symbol)
	}
	historic := func(ctx context.Context, start, end date.Date) (map[date.Date]float64, error) {
		return a.GetHistory(ctx, symbol, start, end)
	}
	return info, historic
}
