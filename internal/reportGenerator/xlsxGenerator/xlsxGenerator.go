package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/quote_server/internal/model"
	"github.com/KotFed0t/quote_server/utils"
	"github.com/xuri/excelize/v2"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	firstPriceRow = 5
	maxSheetName  = 31
)

var ErrEmptyHistory = errors.New("empty price history")

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders a price history as a single sheet workbook.
func (g *XLSXGenerator) Generate(ctx context.Context, history model.HistoryTable) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(history.Prices) == 0 {
		return nil, "", fmt.Errorf("%s: %w", history.Symbol, ErrEmptyHistory)
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", history.Symbol), slog.Int("rows", len(history.Prices)))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	sheetName := SheetName(history.Symbol)
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		slog.Error("got error while renaming Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := g.fillSheet(f, sheetName, history); err != nil {
		slog.Error("got error while filling sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillSheet(f *excelize.File, sheetName string, history model.HistoryTable) error {
	title := history.Symbol
	if history.Name != "" {
		title = fmt.Sprintf("%s (%s)", history.Name, history.Symbol)
	}

	if err := f.MergeCell(sheetName, "A1", "B1"); err != nil {
		return err
	}
	_ = f.SetCellStr(sheetName, "A1", title)

	titleStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", titleStyle); err != nil {
		return fmt.Errorf("apply title style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", history.Note)
	if history.URL != "" {
		_ = f.SetCellStr(sheetName, "A3", history.URL)
		_ = f.SetCellHyperLink(sheetName, "A3", history.URL, "External")
	}

	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", firstPriceRow-1), "date")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", firstPriceRow-1), fmt.Sprintf("%s price (%s)", model.PriceKind(history.Dirty), history.Currency))

	dateFmt := "yyyy-mm-dd"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return err
	}

	row := firstPriceRow
	for _, p := range history.Prices {
		dateCell := fmt.Sprintf("A%d", row)
		if err := f.SetCellValue(sheetName, dateCell, p.Date.Time()); err != nil {
			return err
		}
		_ = f.SetCellStyle(sheetName, dateCell, dateCell, dateStyle)
		_ = f.SetCellFloat(sheetName, fmt.Sprintf("B%d", row), p.Price, -1, 64)
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 14)
	_ = f.SetColWidth(sheetName, "B", "B", 20)

	return nil
}

// SheetName makes a symbol usable as a worksheet name.
func SheetName(symbol string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, symbol)
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	if name == "" {
		name = "history"
	}
	return name
}
