package ecbApi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/KotFed0t/quote_server/config"
	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/internal/externalApi"
	"github.com/KotFed0t/quote_server/utils"
	"github.com/go-resty/resty/v2"
)

// EcbApi downloads the historic euro foreign exchange reference rates.
type EcbApi struct {
	client *resty.Client
	url    string
}

func New(cfg *config.Config) *EcbApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout)
	return &EcbApi{client: client, url: cfg.API.EcbApi.Url}
}

func (a *EcbApi) FetchRates(ctx context.Context) (map[date.Date]map[string]float64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "EcbApi.FetchRates"

	slog.Debug("start EcbApi.FetchRates request", slog.String("rqID", rqID), slog.String("op", op))

	resp, err := a.client.R().
		SetContext(ctx).
		Get(a.url)
	if err != nil {
		slog.Error("error while dialing EcbApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		slog.Error("unexpected EcbApi status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: status %d", externalApi.ErrUnexpectedResp, resp.StatusCode())
	}

	rates, err := ParseZip(resp.Body())
	if err != nil {
		slog.Error("can't parse ECB rates", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("EcbApi.FetchRates request complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("days", len(rates)))

	return rates, nil
}

// ParseZip reads the first CSV file of the archive.
func ParseZip(b []byte) (map[date.Date]map[string]float64, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open rates archive: %w", err)
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return ParseCSV(rc)
	}
	return nil, errors.New("rates archive holds no csv file")
}

// ParseCSV reads the ECB layout: a Date column followed by one column per
// currency. N/A and empty cells are skipped.
func ParseCSV(r io.Reader) (map[date.Date]map[string]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read rates header: %w", err)
	}
	if len(header) == 0 || strings.TrimSpace(header[0]) != "Date" {
		return nil, fmt.Errorf("unexpected rates header %v", header)
	}
	codes := make([]string, len(header))
	for i, h := range header {
		codes[i] = strings.ToUpper(strings.TrimSpace(h))
	}

	rates := make(map[date.Date]map[string]float64)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rates: %w", err)
		}

		day, err := date.Parse(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, err
		}

		row := make(map[string]float64, len(record)-1)
		for i := 1; i < len(record) && i < len(codes); i++ {
			cell := strings.TrimSpace(record[i])
			if codes[i] == "" || cell == "" || cell == "N/A" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("rate %s on %s: %w", codes[i], day, err)
			}
			row[codes[i]] = v
		}
		rates[day] = row
	}

	return rates, nil
}
