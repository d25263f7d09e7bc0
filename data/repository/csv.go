package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/internal/model"
	"github.com/KotFed0t/quote_server/utils"
	"github.com/shopspring/decimal"
)

const (
	quotesExt  = ".quotes"
	dateColumn = "date"
	lastColumn = "last"
)

// CSVQuotes keeps one <symbol>.quotes file per security in dir. A file has a
// date,last header and one row per day in ascending order.
type CSVQuotes struct {
	dir string
}

func NewCSVQuotes(dir string) (*CSVQuotes, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuoteStoreUnavailable, err)
	}
	return &CSVQuotes{dir: dir}, nil
}

func (s *CSVQuotes) path(symbol string) (string, error) {
	if symbol == "" || strings.ContainsAny(symbol, `/\`) {
		return "", fmt.Errorf("invalid symbol %q", symbol)
	}
	return filepath.Join(s.dir, symbol+quotesExt), nil
}

func (s *CSVQuotes) Save(ctx context.Context, symbol string, history map[date.Date]float64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CSVQuotes.Save"

	slog.Debug("Save start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.Int("quotes", len(history)))
	defer func() {
		if err != nil {
			slog.Error("Save failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Save completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	path, err := s.path(symbol)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(history)+1)
	rows = append(rows, []string{dateColumn, lastColumn})
	for _, d := range model.SortedDates(history) {
		rows = append(rows, []string{d.String(), decimal.NewFromFloat(history[d]).String()})
	}

	if err = atomicWriteCSV(path, rows); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrQuoteStoreUnavailable, symbol, err)
	}
	return nil
}

// Load returns an empty history when the symbol was never saved.
func (s *CSVQuotes) Load(ctx context.Context, symbol string) (history map[date.Date]float64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CSVQuotes.Load"

	slog.Debug("Load start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		if err != nil {
			slog.Error("Load failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Load completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("quotes", len(history)))
		}
	}()

	path, err := s.path(symbol)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[date.Date]float64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuoteStoreUnavailable, err)
	}
	defer f.Close()

	history, err = readQuotes(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQuoteStoreUnavailable, f.Name(), err)
	}
	return history, nil
}

// readQuotes locates the date and last columns by name, other columns are ignored.
func readQuotes(r io.Reader) (map[date.Date]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return map[date.Date]float64{}, nil
	}
	if err != nil {
		return nil, err
	}

	dateIdx, lastIdx := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case dateColumn:
			dateIdx = i
		case lastColumn:
			lastIdx = i
		}
	}
	if dateIdx < 0 || lastIdx < 0 {
		return nil, fmt.Errorf("header %v lacks %s or %s column", header, dateColumn, lastColumn)
	}

	history := make(map[date.Date]float64)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if dateIdx >= len(record) || lastIdx >= len(record) {
			return nil, fmt.Errorf("short row %v", record)
		}

		d, err := date.Parse(strings.TrimSpace(record[dateIdx]))
		if err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(strings.TrimSpace(record[lastIdx]))
		if err != nil {
			return nil, fmt.Errorf("price on %s: %w", d, err)
		}
		history[d] = v.InexactFloat64()
	}
	return history, nil
}

// atomicWriteCSV writes to a temp file next to path and renames it over path.
func atomicWriteCSV(path string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "tmp-*"+quotesExt)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
