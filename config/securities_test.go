package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/internal/model"
)

const seed = `
12345:
  name: Some Bond
  currency: eur
  interest_rate: 4.0
  interest_from: 2020-06-15
  maturity: 2030-06-15
  interest_dates: [[15, 6], [15, 12]]
"A1B2C3":
  type: stock
  name: Quoted
PERP:
  interest_rate: 2.5
  interest_from: 2019-01-31
  coupons_per_year: 4
  maturity: perpetual
`

func TestParseSecurities(t *testing.T) {
	got, err := ParseSecurities([]byte(seed))
	if err != nil {
		t.Fatalf("ParseSecurities() unexpected error %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ParseSecurities() = %d securities want 3", len(got))
	}

	bond, ok := got["12345"]
	if !ok {
		t.Fatalf("numeric symbol not normalized to text, got keys %v", keys(got))
	}
	if *bond.Kind != model.KindBond || *bond.Name != "Some Bond" || *bond.Currency != "EUR" {
		t.Errorf("12345 = kind %v name %v currency %v", *bond.Kind, *bond.Name, *bond.Currency)
	}
	if *bond.InterestRate != 4.0 || *bond.InterestFrom != date.New(2020, 6, 15) || *bond.Maturity != date.New(2030, 6, 15) {
		t.Errorf("12345 bond terms = %v %v %v", *bond.InterestRate, *bond.InterestFrom, *bond.Maturity)
	}
	if len(bond.InterestDates) != 2 || bond.InterestDates[1] != (model.DayMonth{Day: 15, Month: 12}) {
		t.Errorf("12345 interest dates = %v", bond.InterestDates)
	}

	if stock := got["A1B2C3"]; *stock.Kind != model.KindStock || stock.InterestRate != nil {
		t.Errorf("A1B2C3 = %+v", stock)
	}

	perp := got["PERP"]
	if perp.Maturity == nil || !perp.Maturity.IsZero() {
		t.Errorf("PERP maturity = %v want explicit perpetual", perp.Maturity)
	}
	if len(perp.InterestDates) != 4 || perp.InterestDates[1] != (model.DayMonth{Day: 30, Month: 4}) {
		t.Errorf("PERP derived interest dates = %v", perp.InterestDates)
	}
}

func TestParseSecuritiesInvalid(t *testing.T) {
	tests := map[string]string{
		"not a mapping":     "- a\n- b\n",
		"bad coupon date":   "X:\n  interest_dates: [[32, 1]]\n",
		"bad coupon pair":   "X:\n  interest_dates: [[1, 2, 3]]\n",
		"bad maturity":      "X:\n  maturity: someday\n",
		"bad interest rate": "X:\n  interest_rate: high\n",
	}
	for name, raw := range tests {
		if _, err := ParseSecurities([]byte(raw)); err == nil {
			t.Errorf("%s: ParseSecurities() want error", name)
		}
	}
}

func TestLoadSecuritiesMissingFile(t *testing.T) {
	got, err := LoadSecurities(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || len(got) != 0 {
		t.Errorf("LoadSecurities(missing) = %v, %v want empty", got, err)
	}
}

func TestLoadSecuritiesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "securities.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSecurities(path)
	if err != nil || len(got) != 0 {
		t.Errorf("LoadSecurities(empty) = %v, %v want empty", got, err)
	}
}

func keys(m map[string]model.Snapshot) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
