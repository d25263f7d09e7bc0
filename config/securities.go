package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/internal/model"
	"gopkg.in/yaml.v3"
)

const perpetual = "perpetual"

// seedEntry is one security of the seed file. Keys follow the snake_case style
// of the file, everything is optional.
type seedEntry struct {
	Type            string     `yaml:"type"`
	Name            *string    `yaml:"name"`
	URL             *string    `yaml:"url"`
	Currency        *string    `yaml:"currency"`
	InterestRate    *float64   `yaml:"interest_rate"`
	InterestFrom    *date.Date `yaml:"interest_from"`
	Maturity        *string    `yaml:"maturity"`
	InterestDates   [][]int    `yaml:"interest_dates"`
	CouponsPerYear  *int       `yaml:"coupons_per_year"`
	AccruedInterest *float64   `yaml:"accrued_interest"`
}

func (e seedEntry) snapshot() (model.Snapshot, error) {
	kind := model.KindBond
	if e.Type != "" {
		kind = model.ParseKind(e.Type)
	}

	snap := model.Snapshot{
		Kind:                   &kind,
		Name:                   e.Name,
		URL:                    e.URL,
		Currency:               e.Currency,
		InterestRate:           e.InterestRate,
		InterestFrom:           e.InterestFrom,
		AccruedInterestFetched: e.AccruedInterest,
	}
	if snap.Currency != nil {
		c := strings.ToUpper(*snap.Currency)
		snap.Currency = &c
	}

	if e.Maturity != nil {
		var m date.Date
		if *e.Maturity != perpetual {
			parsed, err := date.Parse(*e.Maturity)
			if err != nil {
				return model.Snapshot{}, fmt.Errorf("maturity: %w", err)
			}
			m = parsed
		}
		snap.Maturity = &m
	}

	for _, pair := range e.InterestDates {
		if len(pair) != 2 {
			return model.Snapshot{}, fmt.Errorf("interest_dates entry %v want [day, month]", pair)
		}
		dm := model.DayMonth{Day: pair[0], Month: pair[1]}
		if dm.Day < 1 || dm.Day > 31 || dm.Month < 1 || dm.Month > 12 {
			return model.Snapshot{}, fmt.Errorf("invalid interest date %v", pair)
		}
		snap.InterestDates = append(snap.InterestDates, dm)
	}

	if snap.InterestDates == nil && e.CouponsPerYear != nil && e.InterestFrom != nil {
		snap.InterestDates = model.DeriveInterestDates(*e.InterestFrom, *e.CouponsPerYear)
	}

	return snap, nil
}

// LoadSecurities reads the seed file. A missing file is an empty configuration.
// Symbols are taken verbatim from the keys, so a bare number such as 12345 becomes
// the symbol "12345".
func LoadSecurities(path string) (map[string]model.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("no securities file found", slog.String("path", path))
		return map[string]model.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read securities file: %w", err)
	}
	slog.Info("found securities file", slog.String("path", path))
	return ParseSecurities(raw)
}

func ParseSecurities(raw []byte) (map[string]model.Snapshot, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse securities file: %w", err)
	}

	res := make(map[string]model.Snapshot)
	if len(doc.Content) == 0 {
		return res, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("securities file line %d: want a mapping of symbols", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		symbol := strings.TrimSpace(key.Value)
		if symbol == "" {
			return nil, fmt.Errorf("securities file line %d: empty symbol", key.Line)
		}

		var entry seedEntry
		if err := value.Decode(&entry); err != nil {
			return nil, fmt.Errorf("security %s: %w", symbol, err)
		}
		snap, err := entry.snapshot()
		if err != nil {
			return nil, fmt.Errorf("security %s: %w", symbol, err)
		}
		res[symbol] = snap
	}

	return res, nil
}
