package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/quote_server/config"
	"github.com/KotFed0t/quote_server/data"
	"github.com/KotFed0t/quote_server/data/cache"
	"github.com/KotFed0t/quote_server/data/repository"
	"github.com/KotFed0t/quote_server/internal/currency"
	"github.com/KotFed0t/quote_server/internal/externalApi/ecbApi"
	"github.com/KotFed0t/quote_server/internal/externalApi/quoteApi"
	"github.com/KotFed0t/quote_server/internal/httpServer"
	"github.com/KotFed0t/quote_server/internal/model"
	"github.com/KotFed0t/quote_server/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/quote_server/internal/scheduler"
	"github.com/KotFed0t/quote_server/internal/service/quoteService"
	"github.com/KotFed0t/quote_server/internal/transport/http"
	"github.com/KotFed0t/quote_server/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = utils.NewJobCtx(ctx)

	store, closeStore := newQuoteStore(cfg)
	defer closeStore()

	var ratesCache currency.RatesCache
	if redisClient := data.NewRedisClient(cfg); redisClient != nil {
		defer redisClient.Close()
		ratesCache = cache.NewRedisCache(redisClient, cfg)
	}

	converter := currency.New(ecbApi.New(cfg), ratesCache)
	if err := converter.Load(ctx); err != nil {
		// conversions answer 503 until the rates job succeeds
		slog.Error("can't load exchange rates", slog.String("err", err.Error()))
	}

	seeds, err := config.LoadSecurities(cfg.SecuritiesFile)
	if err != nil {
		slog.Error("can't load securities", slog.String("file", cfg.SecuritiesFile), slog.String("err", err.Error()))
		panic(err)
	}

	quoteSrv := quoteService.New(cfg, store, quoteApi.New(cfg), model.NewPricer(converter, nil))
	quoteSrv.Seed(ctx, seeds)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh price history", quoteSrv.RefreshHistory, cfg.Jobs.RefreshInterval, true)
	sched.NewIntervalJob("refresh exchange rates", converter.Refresh, cfg.Jobs.RatesRefreshInterval, false)
	sched.Start()
	defer sched.Stop()

	ctrl := http.NewController(cfg, quoteSrv, xlsxGenerator.New())

	srv := httpServer.New(cfg, ctrl)
	srv.Start()
	defer srv.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func newQuoteStore(cfg *config.Config) (quoteService.QuoteStore, func()) {
	if cfg.Quotes.Store == config.QuoteStorePostgres {
		pgClient := data.NewPostgresClient(cfg)
		return repository.NewPostgres(pgClient), func() { _ = pgClient.Close() }
	}

	store, err := repository.NewCSVQuotes(cfg.Quotes.Dir)
	if err != nil {
		slog.Error("can't open quotes directory", slog.String("dir", cfg.Quotes.Dir), slog.String("err", err.Error()))
		panic(err)
	}
	slog.Info("quotes are stored as csv", slog.String("dir", cfg.Quotes.Dir))
	return store, func() {}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
