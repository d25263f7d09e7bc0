package quoteService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/KotFed0t/quote_server/config"
	"github.com/KotFed0t/quote_server/internal/currency"
	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/internal/externalApi"
	"github.com/KotFed0t/quote_server/internal/model"
	"github.com/KotFed0t/quote_server/internal/service"
	"github.com/KotFed0t/quote_server/utils"
	"golang.org/x/sync/errgroup"
)

type QuoteStore interface {
	Save(ctx context.Context, symbol string, history map[date.Date]float64) error
	Load(ctx context.Context, symbol string) (map[date.Date]float64, error)
}

type QuoteApi interface {
	GetSecurity(ctx context.Context, symbol string) (model.Snapshot, error)
	Hooks(symbol string) (model.InfoFetcher, model.HistoricFetcher)
}

// entry owns one security, mu serializes every read and write of it.
type entry struct {
	mu  sync.Mutex
	sec *model.Security
}

// QuoteService is the registry of tracked securities.
type QuoteService struct {
	store       QuoteStore
	api         QuoteApi
	pricer      *model.Pricer
	epoch       date.Date
	concurrency int

	mu      sync.RWMutex
	entries map[string]*entry
}

func New(cfg *config.Config, store QuoteStore, api QuoteApi, pricer *model.Pricer) *QuoteService {
	concurrency := cfg.Jobs.RefreshConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &QuoteService{
		store:       store,
		api:         api,
		pricer:      pricer,
		epoch:       cfg.Jobs.RefreshEpoch,
		concurrency: concurrency,
		entries:     make(map[string]*entry),
	}
}

// RefreshWindow returns the first day to fetch for a history. An empty history
// starts at epoch, otherwise the day after the latest quote. ok is false when
// the history is already up to date.
func RefreshWindow(history map[date.Date]float64, epoch, today date.Date) (start date.Date, ok bool) {
	var latest date.Date
	for d := range history {
		if latest.IsZero() || d.After(latest) {
			latest = d
		}
	}

	start = epoch
	if !latest.IsZero() {
		start = latest.Add(1)
	}
	return start, !start.After(today)
}

// Seed registers the configured securities and loads their stored history.
// Securities without a kind are bonds.
func (s *QuoteService) Seed(ctx context.Context, seeds map[string]model.Snapshot) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.Seed"

	symbols := make([]string, 0, len(seeds))
	for symbol := range seeds {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)

	for _, symbol := range symbols {
		snap := seeds[symbol]
		kind := model.KindBond
		if snap.Kind != nil {
			kind = *snap.Kind
		}

		sec := s.newSecurity(ctx, symbol, kind, snap)
		if _, added := s.register(sec); added {
			slog.Info("security loaded", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("kind", string(kind)))
		}
	}
}

func (s *QuoteService) newSecurity(ctx context.Context, symbol string, kind model.Kind, snap model.Snapshot) *model.Security {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.newSecurity"

	sec := model.New(symbol, kind)
	model.MergeSnapshot(sec, snap, true)
	sec.FetchInfo, sec.FetchHistoric = s.api.Hooks(symbol)

	history, err := s.store.Load(ctx, symbol)
	if err != nil {
		slog.Error("can't load stored quotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return sec
	}
	model.MergeHistoric(sec, history, false)
	return sec
}

// register adds sec unless the symbol is already tracked, in which case the
// existing entry wins.
func (s *QuoteService) register(sec *model.Security) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sec.Symbol()]; ok {
		return e, false
	}
	e := &entry{sec: sec}
	s.entries[sec.Symbol()] = e
	return e, true
}

func (s *QuoteService) get(symbol string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[symbol]
}

func (s *QuoteService) snapshot() []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	return entries
}

// Symbols lists the tracked symbols in order.
func (s *QuoteService) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	symbols := make([]string, 0, len(s.entries))
	for symbol := range s.entries {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)
	return symbols
}

// lookup returns the entry of symbol, creating it from the quote API when the
// symbol is not tracked yet. fresh reports that the data was just fetched.
func (s *QuoteService) lookup(ctx context.Context, symbol string) (e *entry, fresh bool, err error) {
	if e := s.get(symbol); e != nil {
		return e, false, nil
	}

	snap, err := s.api.GetSecurity(ctx, symbol)
	if errors.Is(err, externalApi.ErrNotFound) {
		return nil, false, fmt.Errorf("%s: %w", symbol, service.ErrNotFound)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w: %w", symbol, service.ErrFetchFailed, err)
	}

	kind := model.KindUnknown
	if snap.Kind != nil {
		kind = *snap.Kind
	}
	e, added := s.register(s.newSecurity(ctx, symbol, kind, snap))
	if added {
		slog.Info("security registered on demand", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("symbol", symbol), slog.String("kind", string(kind)))
	}
	return e, added, nil
}

// update fetches the latest attributes of a tracked security. Caller holds e.mu.
func (s *QuoteService) update(ctx context.Context, sec *model.Security) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.update"

	res, err := sec.Update(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", sec.Symbol(), service.ErrFetchFailed, err)
	}
	for _, c := range res.Changed {
		slog.Debug("attribute updated", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", sec.Symbol()), slog.String("field", c.Field), slog.Any("old", c.Old), slog.Any("new", c.New))
	}
	for _, c := range res.Suppressed {
		slog.Info("attribute not overwritten", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", sec.Symbol()), slog.String("field", c.Field), slog.Any("old", c.Old), slog.Any("new", c.New))
	}
	return nil
}

// prepare resolves symbol, refreshes its attributes and locks it. The returned
// unlock func must be called when done.
func (s *QuoteService) prepare(ctx context.Context, symbol string, dirty bool) (*entry, bool, func(), error) {
	e, fresh, err := s.lookup(ctx, symbol)
	if err != nil {
		return nil, false, nil, err
	}
	e.mu.Lock()
	unlock := e.mu.Unlock

	if dirty && !e.sec.IsBond() {
		unlock()
		return nil, false, nil, fmt.Errorf("%s: %w", symbol, model.ErrNotBond)
	}
	if !fresh {
		if err := s.update(ctx, e.sec); err != nil {
			unlock()
			return nil, false, nil, err
		}
	}
	s.logSecurity(ctx, e.sec)
	return e, fresh, unlock, nil
}

// Quote returns the latest clean or dirty quote of symbol in the target currency.
func (s *QuoteService) Quote(ctx context.Context, symbol string, dirty bool, target string) (model.QuoteTable, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.Quote"

	slog.Debug("Quote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.Bool("dirty", dirty), slog.String("currency", target))
	defer func() {
		slog.Debug("Quote finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	e, _, unlock, err := s.prepare(ctx, symbol, dirty)
	if err != nil {
		return model.QuoteTable{}, err
	}
	defer unlock()
	sec := e.sec

	var last, high, low *float64
	if dirty {
		last, err = s.pricer.DirtyLast(sec, target)
		if err == nil {
			high, err = s.pricer.DirtyHigh(sec, target)
		}
		if err == nil {
			low, err = s.pricer.DirtyLow(sec, target)
		}
	} else {
		last, err = s.pricer.Last(sec, target)
		if err == nil {
			high, err = s.pricer.High(sec, target)
		}
		if err == nil {
			low, err = s.pricer.Low(sec, target)
		}
	}
	if err != nil {
		return model.QuoteTable{}, fmt.Errorf("%s: %w", symbol, err)
	}

	// sources often publish only the last price
	if high == nil {
		high = last
	}
	if low == nil {
		low = last
	}

	return model.QuoteTable{
		Symbol:   sec.Symbol(),
		Name:     sec.Name,
		URL:      sec.URL,
		Date:     sec.LastPriceUpdate,
		High:     high,
		Low:      low,
		Last:     last,
		Currency: target,
		Note:     model.RatesNote(dirty, target),
	}, nil
}

// History returns the clean or dirty price history of symbol in the target
// currency. A security registered by this call gets its history fetched first.
func (s *QuoteService) History(ctx context.Context, symbol string, dirty bool, target string) (model.HistoryTable, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.History"

	slog.Debug("History start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.Bool("dirty", dirty), slog.String("currency", target))
	defer func() {
		slog.Debug("History finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	e, fresh, unlock, err := s.prepare(ctx, symbol, dirty)
	if err != nil {
		return model.HistoryTable{}, err
	}
	defer unlock()
	sec := e.sec

	if fresh {
		if err := s.refreshLocked(ctx, sec); err != nil {
			return model.HistoryTable{}, err
		}
	}

	var history map[date.Date]float64
	if dirty {
		history, err = s.pricer.DirtyPriceHistory(sec, target)
	} else {
		history, err = s.pricer.PriceHistory(sec, target)
	}
	if err != nil {
		return model.HistoryTable{}, fmt.Errorf("%s: %w", symbol, err)
	}

	return model.HistoryTable{
		Symbol:   sec.Symbol(),
		Name:     sec.Name,
		URL:      sec.URL,
		Currency: target,
		Dirty:    dirty,
		Note:     model.RatesNote(dirty, target),
		Prices:   model.NewPricePoints(history),
	}, nil
}

// refreshLocked fetches the missing tail of the price history and persists it.
// Caller holds the entry lock.
func (s *QuoteService) refreshLocked(ctx context.Context, sec *model.Security) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.refreshLocked"

	today := s.pricer.Today()
	start, ok := RefreshWindow(sec.PriceHistory, s.epoch, today)
	if !ok {
		slog.Debug("price history up to date", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", sec.Symbol()))
		return nil
	}

	res, err := sec.UpdateHistoric(ctx, start, today)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", sec.Symbol(), service.ErrFetchFailed, err)
	}
	slog.Info("price history updated",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("symbol", sec.Symbol()),
		slog.String("from", start.String()),
		slog.String("to", today.String()),
		slog.Int("added", res.Added),
		slog.Int("replaced", res.Replaced),
	)

	return s.store.Save(ctx, sec.Symbol(), sec.PriceHistory)
}

// RefreshHistory brings the price history of every tracked security up to date.
// Securities are refreshed concurrently, a failing one never stops the others.
func (s *QuoteService) RefreshHistory(ctx context.Context) error {
	if utils.GetRequestIDFromCtx(ctx) == "" {
		ctx = utils.NewJobCtx(ctx)
	}
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.RefreshHistory"

	entries := s.snapshot()
	slog.Debug("RefreshHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("securities", len(entries)))

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, e := range entries {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					failed.Add(1)
					slog.Error(
						"Panic recovered in price history refresh",
						slog.String("rqID", rqID),
						slog.String("op", op),
						slog.Any("panic", r),
						slog.String("stacktrace", string(debug.Stack())),
					)
				}
			}()

			e.mu.Lock()
			defer e.mu.Unlock()

			if err := s.refreshLocked(ctx, e.sec); err != nil {
				failed.Add(1)
				slog.Error("price history refresh failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", e.sec.Symbol()), slog.String("err", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d securities failed to refresh", n, len(entries))
	}
	slog.Debug("RefreshHistory completed", slog.String("rqID", rqID), slog.String("op", op))
	return nil
}

// logSecurity writes a summary of sec at info level.
func (s *QuoteService) logSecurity(ctx context.Context, sec *model.Security) {
	attrs := []any{
		slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
		slog.String("symbol", sec.Symbol()),
		slog.String("kind", string(sec.Kind())),
		slog.String("name", sec.Name),
		slog.Int("historyDays", len(sec.PriceHistory)),
	}
	if sec.Last != nil {
		attrs = append(attrs, slog.String("last", currency.Display(*sec.Last, sec.Currency)))
	}
	if sec.IsBond() {
		today := s.pricer.Today()
		if ai, err := sec.AccruedInterest(today, today); err == nil {
			attrs = append(attrs, slog.Float64("accruedInterest", ai))
		}
		if y := sec.CurrentYield(today); y != nil {
			attrs = append(attrs, slog.Float64("currentYield", *y))
		}
	}
	slog.Info("security", attrs...)
}
