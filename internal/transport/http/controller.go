package http

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/KotFed0t/quote_server/config"
	"github.com/KotFed0t/quote_server/internal/currency"
	"github.com/KotFed0t/quote_server/internal/model"
	"github.com/KotFed0t/quote_server/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/quote_server/internal/service"
	"github.com/KotFed0t/quote_server/utils"
	"github.com/gin-gonic/gin"
)

const (
	modeQuote      = "quote"
	modeHistoric   = "historic"
	modeHistorical = "historical"
	modeXLSX       = "xlsx"

	priceClean = "clean"
	priceDirty = "dirty"

	msgBadRoute = "Please specify symbol, mode, and currency correctly."
	msgNotBond  = "Dirty prices are only available for bonds."
)

//go:embed templates/*.html
var templatesFS embed.FS

type QuoteService interface {
	Quote(ctx context.Context, symbol string, dirty bool, target string) (model.QuoteTable, error)
	History(ctx context.Context, symbol string, dirty bool, target string) (model.HistoryTable, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, history model.HistoryTable) (fileBytes []byte, fileExtension string, err error)
}

// Controller serves quote tables in the format Portfolio Performance imports.
type Controller struct {
	srv             QuoteService
	report          ReportGenerator
	defaultCurrency string
	pages           *template.Template
}

func NewController(cfg *config.Config, srv QuoteService, report ReportGenerator) *Controller {
	pages := template.Must(template.New("pages").Funcs(template.FuncMap{
		"price": formatPrice,
	}).ParseFS(templatesFS, "templates/*.html"))

	return &Controller{
		srv:             srv,
		report:          report,
		defaultCurrency: strings.ToUpper(cfg.DefaultCurrency),
		pages:           pages,
	}
}

func formatPrice(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.4f", *v)
}

// RegisterRoutes binds /:mode/:symbol[/:price[/:currency]]. A missing price
// means clean, a missing currency the configured default.
func (ctrl *Controller) RegisterRoutes(router *gin.Engine) {
	router.GET("/:mode/:symbol", ctrl.Serve)
	router.GET("/:mode/:symbol/:price", ctrl.Serve)
	router.GET("/:mode/:symbol/:price/:currency", ctrl.Serve)
}

type request struct {
	mode     string
	symbol   string
	dirty    bool
	currency string
}

func (ctrl *Controller) parseRequest(c *gin.Context) (request, bool) {
	rq := request{
		mode:     c.Param("mode"),
		symbol:   c.Param("symbol"),
		currency: strings.ToUpper(c.Param("currency")),
	}
	if rq.currency == "" {
		rq.currency = ctrl.defaultCurrency
	}

	switch c.Param("price") {
	case "", priceClean:
	case priceDirty:
		rq.dirty = true
	default:
		return rq, false
	}

	switch rq.mode {
	case modeQuote, modeHistoric, modeHistorical, modeXLSX:
	default:
		return rq, false
	}

	return rq, rq.symbol != ""
}

func (ctrl *Controller) Serve(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	rq, ok := ctrl.parseRequest(c)
	if !ok {
		slog.Info("bad route", slog.String("rqID", rqID), slog.String("path", c.Request.URL.Path))
		c.String(http.StatusNotFound, msgBadRoute)
		return
	}

	switch rq.mode {
	case modeQuote:
		ctrl.quote(ctx, c, rq)
	case modeXLSX:
		ctrl.xlsx(ctx, c, rq)
	default:
		ctrl.history(ctx, c, rq)
	}
}

func (ctrl *Controller) quote(ctx context.Context, c *gin.Context, rq request) {
	table, err := ctrl.srv.Quote(ctx, rq.symbol, rq.dirty, rq.currency)
	if err != nil {
		ctrl.handleError(ctx, c, err)
		return
	}
	ctrl.render(ctx, c, "quote.html", table)
}

func (ctrl *Controller) history(ctx context.Context, c *gin.Context, rq request) {
	table, err := ctrl.srv.History(ctx, rq.symbol, rq.dirty, rq.currency)
	if err != nil {
		ctrl.handleError(ctx, c, err)
		return
	}
	ctrl.render(ctx, c, "history.html", table)
}

func (ctrl *Controller) xlsx(ctx context.Context, c *gin.Context, rq request) {
	table, err := ctrl.srv.History(ctx, rq.symbol, rq.dirty, rq.currency)
	if err != nil {
		ctrl.handleError(ctx, c, err)
		return
	}

	fileBytes, ext, err := ctrl.report.Generate(ctx, table)
	if err != nil {
		ctrl.handleError(ctx, c, err)
		return
	}

	filename := fmt.Sprintf("%s_%s_%s%s", xlsxGenerator.SheetName(table.Symbol), model.PriceKind(rq.dirty), rq.currency, ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxGenerator.ContentType, fileBytes)
}

func (ctrl *Controller) render(ctx context.Context, c *gin.Context, name string, data any) {
	var buf bytes.Buffer
	if err := ctrl.pages.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("template execution failed", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("template", name), slog.String("err", err.Error()))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (ctrl *Controller) handleError(ctx context.Context, c *gin.Context, err error) {
	status, msg := statusFor(err)
	attrs := []any{slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.Int("status", status), slog.String("err", err.Error())}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Info("request rejected", attrs...)
	}
	c.String(status, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrNotBond):
		return http.StatusBadRequest, msgNotBond
	case errors.Is(err, currency.ErrCurrencyNotFound):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrFetchFailed):
		return http.StatusBadGateway, "price source unavailable"
	case errors.Is(err, xlsxGenerator.ErrEmptyHistory):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, model.ErrInsufficientData):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, currency.ErrRatesNotLoaded):
		return http.StatusServiceUnavailable, "exchange rates not loaded yet"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
