package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KotFed0t/quote_server/config"
	"github.com/KotFed0t/quote_server/internal/currency"
	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/internal/model"
	"github.com/KotFed0t/quote_server/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/quote_server/internal/service"
	"github.com/gin-gonic/gin"
)

type call struct {
	symbol   string
	dirty    bool
	currency string
}

type fakeService struct {
	calls []call
	err   error
}

func (f *fakeService) Quote(ctx context.Context, symbol string, dirty bool, target string) (model.QuoteTable, error) {
	f.calls = append(f.calls, call{symbol, dirty, target})
	if f.err != nil {
		return model.QuoteTable{}, f.err
	}
	last := 101.5
	return model.QuoteTable{
		Symbol:   symbol,
		Name:     "Xyz Bond",
		Date:     date.New(2024, 9, 15),
		High:     &last,
		Low:      &last,
		Last:     &last,
		Currency: target,
		Note:     model.RatesNote(dirty, target),
	}, nil
}

func (f *fakeService) History(ctx context.Context, symbol string, dirty bool, target string) (model.HistoryTable, error) {
	f.calls = append(f.calls, call{symbol, dirty, target})
	if f.err != nil {
		return model.HistoryTable{}, f.err
	}
	return model.HistoryTable{
		Symbol:   symbol,
		Currency: target,
		Dirty:    dirty,
		Note:     model.RatesNote(dirty, target),
		Prices: []model.PricePoint{
			{Date: date.New(2024, 1, 2), Price: 100},
			{Date: date.New(2024, 1, 3), Price: 100.5},
		},
	}, nil
}

func newTestRouter(srv QuoteService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{DefaultCurrency: "eur"}
	router := gin.New()
	NewController(cfg, srv, xlsxGenerator.New()).RegisterRoutes(router)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestServeQuote(t *testing.T) {
	srv := &fakeService{}
	router := newTestRouter(srv)

	w := get(router, "/quote/XYZ/dirty/usd")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"Xyz Bond", "2024-09-15", "101.5000", "USD", "All rates are dirty and, if necessary, converted to USD."} {
		if !strings.Contains(body, want) {
			t.Errorf("body does not contain %q:\n%s", want, body)
		}
	}
	if srv.calls[0] != (call{"XYZ", true, "USD"}) {
		t.Errorf("service called with %+v", srv.calls[0])
	}
}

func TestServeDefaults(t *testing.T) {
	tests := []struct {
		path string
		want call
	}{
		{"/quote/XYZ", call{"XYZ", false, "EUR"}},
		{"/quote/12345/clean", call{"12345", false, "EUR"}},
		{"/historic/XYZ/dirty", call{"XYZ", true, "EUR"}},
		{"/historical/XYZ/clean/gbp", call{"XYZ", false, "GBP"}},
	}
	for _, tt := range tests {
		srv := &fakeService{}
		w := get(newTestRouter(srv), tt.path)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", tt.path, w.Code)
			continue
		}
		if len(srv.calls) != 1 || srv.calls[0] != tt.want {
			t.Errorf("%s: service called with %+v want %+v", tt.path, srv.calls, tt.want)
		}
	}
}

func TestServeHistory(t *testing.T) {
	w := get(newTestRouter(&fakeService{}), "/historic/XYZ")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	first := strings.Index(body, "<td>2024-01-02</td><td>100.0000</td>")
	second := strings.Index(body, "<td>2024-01-03</td><td>100.5000</td>")
	if first < 0 || second < first {
		t.Errorf("history rows missing or out of order:\n%s", body)
	}
}

func TestServeXLSX(t *testing.T) {
	w := get(newTestRouter(&fakeService{}), "/xlsx/XYZ/clean/USD")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxGenerator.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "XYZ_clean_USD.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.Len() == 0 {
		t.Error("empty workbook")
	}
}

func TestServeBadRoute(t *testing.T) {
	for _, path := range []string{"/chart/XYZ", "/quote/XYZ/mixed", "/quote/XYZ/dirtyish/EUR"} {
		srv := &fakeService{}
		w := get(newTestRouter(srv), path)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d want 404", path, w.Code)
		}
		if len(srv.calls) != 0 {
			t.Errorf("%s: service must not be called", path)
		}
	}
}

func TestServeErrors(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{fmt.Errorf("AAPL: %w", model.ErrNotBond), http.StatusBadRequest, "Dirty prices are only available for bonds."},
		{fmt.Errorf("NOPE: %w", service.ErrNotFound), http.StatusNotFound, "NOPE"},
		{fmt.Errorf("XYZ: %w: timeout", service.ErrFetchFailed), http.StatusBadGateway, "price source unavailable"},
		{fmt.Errorf("no exchange rate for XAU: %w", currency.ErrCurrencyNotFound), http.StatusBadRequest, "XAU"},
		{currency.ErrRatesNotLoaded, http.StatusServiceUnavailable, "exchange rates"},
		{fmt.Errorf("unexpected"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		w := get(newTestRouter(&fakeService{err: tt.err}), "/quote/XYZ/dirty")
		if w.Code != tt.wantCode || !strings.Contains(w.Body.String(), tt.wantBody) {
			t.Errorf("%v: got %d %q want %d containing %q", tt.err, w.Code, w.Body.String(), tt.wantCode, tt.wantBody)
		}
	}
}
