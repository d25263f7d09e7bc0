package model

import (
	"context"
	"errors"
	"maps"
	"testing"

	"github.com/KotFed0t/quote_server/internal/date"
)

func TestMergeSnapshotOverwrite(t *testing.T) {
	s := New("XYZ", KindBond)
	s.Name = "old name"
	s.Last = ptr(100.0)

	res := MergeSnapshot(s, Snapshot{
		Name:         ptr("new name"),
		Last:         ptr(100.0),
		Currency:     ptr("EUR"),
		InterestRate: ptr(3.5),
	}, true)

	if s.Name != "new name" || *s.Last != 100.0 || s.Currency != "EUR" || *s.Bond.InterestRate != 3.5 {
		t.Errorf("MergeSnapshot() left %+v", s)
	}
	if len(res.Changed) != 3 {
		t.Errorf("MergeSnapshot() changed %v want name, currency, interest_rate", res.Changed)
	}
	if len(res.Suppressed) != 0 {
		t.Errorf("MergeSnapshot() suppressed %v want none", res.Suppressed)
	}
}

func TestMergeSnapshotNoOverwrite(t *testing.T) {
	s := New("XYZ", KindBond)
	s.Name = "kept"
	s.Last = ptr(99.0)
	s.Bond.Maturity = date.New(2030, 1, 1)

	res := MergeSnapshot(s, Snapshot{
		Name:     ptr("ignored"),
		Last:     ptr(101.0),
		Currency: ptr("USD"),
		Maturity: ptr(date.New(2031, 1, 1)),
		High:     ptr(102.0),
	}, false)

	if s.Name != "kept" || *s.Last != 99.0 || s.Bond.Maturity != date.New(2030, 1, 1) {
		t.Errorf("MergeSnapshot(overwrite=false) changed existing values: %+v", s)
	}
	if s.Currency != "USD" || s.High == nil || *s.High != 102.0 {
		t.Errorf("MergeSnapshot(overwrite=false) did not fill empty attributes: %+v", s)
	}
	if len(res.Suppressed) != 3 {
		t.Errorf("MergeSnapshot() suppressed %v want name, last, maturity", res.Suppressed)
	}
}

func TestMergeSnapshotNoChange(t *testing.T) {
	s := New("XYZ", KindStock)
	s.Currency = "EUR"
	res := MergeSnapshot(s, Snapshot{Currency: ptr("EUR")}, true)
	if !res.NothingNew() {
		t.Errorf("MergeSnapshot() = %+v want nothing new", res)
	}
}

func TestMergeSnapshotBondFieldsIgnoredForStock(t *testing.T) {
	s := New("AAPL", KindStock)
	res := MergeSnapshot(s, Snapshot{InterestRate: ptr(3.0), Maturity: ptr(date.New(2030, 1, 1))}, true)
	if s.Bond != nil || !res.NothingNew() {
		t.Errorf("bond fields must be ignored for stocks, got %+v", res)
	}
}

func TestMergeSnapshotClearsMaturity(t *testing.T) {
	s := New("XYZ", KindBond)
	s.Bond.Maturity = date.New(2030, 1, 1)
	MergeSnapshot(s, Snapshot{Maturity: &date.Date{}}, true)
	if !s.Bond.Maturity.IsZero() {
		t.Errorf("maturity = %v want perpetual", s.Bond.Maturity)
	}
}

func TestMergeSnapshotCopiesValues(t *testing.T) {
	s := New("XYZ", KindBond)
	last := 10.0
	dates := []DayMonth{{1, 1}}
	MergeSnapshot(s, Snapshot{Last: &last, InterestDates: dates}, true)
	last = 11
	dates[0].Day = 2
	if *s.Last != 10 || s.Bond.InterestDates[0].Day != 1 {
		t.Errorf("merged values alias the snapshot")
	}
}

func TestMergeHistoric(t *testing.T) {
	d1, d2, d3 := date.New(2024, 1, 1), date.New(2024, 1, 2), date.New(2024, 1, 3)
	s := New("XYZ", KindStock)
	s.PriceHistory[d1] = 10
	s.PriceHistory[d2] = 20

	res := MergeHistoric(s, map[date.Date]float64{d1: 10, d2: 21, d3: 30}, false)
	if res.Added != 1 || res.Replaced != 0 {
		t.Errorf("MergeHistoric(overwrite=false) = %+v", res)
	}
	if s.PriceHistory[d2] != 20 || s.PriceHistory[d3] != 30 {
		t.Errorf("MergeHistoric(overwrite=false) history = %v", s.PriceHistory)
	}

	res = MergeHistoric(s, map[date.Date]float64{d2: 21}, true)
	if res.Replaced != 1 || s.PriceHistory[d2] != 21 {
		t.Errorf("MergeHistoric(overwrite=true) = %+v, history %v", res, s.PriceHistory)
	}
}

func TestMergeHistoricIdempotent(t *testing.T) {
	series := map[date.Date]float64{
		date.New(2024, 1, 1): 1,
		date.New(2024, 1, 2): 2,
	}
	s := New("XYZ", KindStock)
	s.PriceHistory[date.New(2024, 1, 1)] = 5

	MergeHistoric(s, series, true)
	once := maps.Clone(s.PriceHistory)
	res := MergeHistoric(s, series, true)

	if !maps.Equal(once, s.PriceHistory) {
		t.Errorf("second merge changed history: %v -> %v", once, s.PriceHistory)
	}
	if res.Added != 0 || res.Replaced != 0 {
		t.Errorf("second merge = %+v want no-op", res)
	}
}

func TestUpdateMissingHook(t *testing.T) {
	s := New("XYZ", KindStock)
	if _, err := s.Update(context.Background()); !errors.Is(err, ErrMissingHook) {
		t.Errorf("Update() error = %v want ErrMissingHook", err)
	}
	if _, err := s.UpdateHistoric(context.Background(), date.New(2024, 1, 1), date.New(2024, 1, 2)); !errors.Is(err, ErrMissingHook) {
		t.Errorf("UpdateHistoric() error = %v want ErrMissingHook", err)
	}
}

func TestUpdate(t *testing.T) {
	s := New("XYZ", KindStock)
	s.FetchInfo = func(ctx context.Context) (Snapshot, error) {
		return Snapshot{Name: ptr("Xyz Corp"), Last: ptr(12.5)}, nil
	}
	if _, err := s.Update(context.Background()); err != nil {
		t.Fatalf("Update() unexpected error %v", err)
	}
	if s.Name != "Xyz Corp" || *s.Last != 12.5 {
		t.Errorf("Update() left %+v", s)
	}
}

func TestUpdateHistoricFailureLeavesState(t *testing.T) {
	s := New("XYZ", KindStock)
	s.PriceHistory[date.New(2024, 1, 1)] = 1
	boom := errors.New("boom")
	s.FetchHistoric = func(ctx context.Context, start, end date.Date) (map[date.Date]float64, error) {
		return map[date.Date]float64{date.New(2024, 1, 2): 2}, boom
	}
	if _, err := s.UpdateHistoric(context.Background(), date.New(2024, 1, 2), date.New(2024, 1, 2)); !errors.Is(err, boom) {
		t.Fatalf("UpdateHistoric() error = %v want boom", err)
	}
	if len(s.PriceHistory) != 1 {
		t.Errorf("failed fetch merged partial data: %v", s.PriceHistory)
	}
}

func TestUpdateHistoricPassesWindow(t *testing.T) {
	s := New("XYZ", KindStock)
	var gotStart, gotEnd date.Date
	s.FetchHistoric = func(ctx context.Context, start, end date.Date) (map[date.Date]float64, error) {
		gotStart, gotEnd = start, end
		return map[date.Date]float64{start: 1}, nil
	}
	res, err := s.UpdateHistoric(context.Background(), date.New(2024, 1, 2), date.New(2024, 1, 5))
	if err != nil {
		t.Fatalf("UpdateHistoric() unexpected error %v", err)
	}
	if gotStart != date.New(2024, 1, 2) || gotEnd != date.New(2024, 1, 5) || res.Added != 1 {
		t.Errorf("UpdateHistoric() window %v..%v result %+v", gotStart, gotEnd, res)
	}
}

func TestLatestQuoteDate(t *testing.T) {
	s := New("XYZ", KindStock)
	if _, ok := s.LatestQuoteDate(); ok {
		t.Error("LatestQuoteDate() on empty history want false")
	}
	s.PriceHistory[date.New(2024, 1, 10)] = 1
	s.PriceHistory[date.New(2023, 5, 1)] = 1
	if d, ok := s.LatestQuoteDate(); !ok || d != date.New(2024, 1, 10) {
		t.Errorf("LatestQuoteDate() = %v, %v", d, ok)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"Bond": KindBond, " etf ": KindETF, "fund": KindETF, "warrant": KindUnknown} {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %v want %v", in, got, want)
		}
	}
}
