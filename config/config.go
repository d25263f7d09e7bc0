package config

import (
	"log"
	"time"

	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	HTTP            HTTP
	Postgres        Postgres
	Redis           Redis
	API             API
	Cache           Cache
	Jobs            Jobs
	Quotes          Quotes
	DefaultCurrency string `env:"DEFAULT_CURRENCY" envDefault:"EUR"`
	SecuritiesFile  string `env:"SECURITIES_FILE" envDefault:"securities.yaml"`
}

type HTTP struct {
	Host            string        `env:"HTTP_HOST" envDefault:"localhost"`
	Port            int           `env:"HTTP_PORT" envDefault:"9444"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Postgres struct {
	Host            string `env:"PG_HOST" envDefault:""`
	Port            int    `env:"PG_PORT" envDefault:"5432"`
	DbName          string `env:"PG_DB_NAME" envDefault:"quotes"`
	Password        string `env:"PG_PASSWORD" envDefault:""`
	User            string `env:"PG_USER" envDefault:"postgres"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

// Redis is optional, an empty host disables the rates cache.
type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:""`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout  time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
	QuoteApi QuoteApi
	EcbApi   EcbApi
}

type QuoteApi struct {
	Url string `env:"QUOTE_API_URL"`
}

type EcbApi struct {
	Url string `env:"ECB_RATES_URL" envDefault:"https://www.ecb.europa.eu/stats/eurofxref/eurofxref-hist.zip"`
}

type Cache struct {
	RatesExpiration time.Duration `env:"CACHE_RATES_EXPIRATION" envDefault:"12h"`
}

type Jobs struct {
	RefreshInterval      time.Duration `env:"REFRESH_INTERVAL" envDefault:"3h"`
	RefreshConcurrency   int           `env:"REFRESH_CONCURRENCY" envDefault:"4"`
	RefreshEpoch         date.Date     `env:"REFRESH_EPOCH" envDefault:"2015-12-10"`
	RatesRefreshInterval time.Duration `env:"RATES_REFRESH_INTERVAL" envDefault:"12h"`
}

const (
	QuoteStoreCSV      = "csv"
	QuoteStorePostgres = "postgres"
)

type Quotes struct {
	Store string `env:"QUOTE_STORE" envDefault:"csv"`
	Dir   string `env:"QUOTES_DIR" envDefault:"quotes"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	if cfg.Quotes.Store != QuoteStoreCSV && cfg.Quotes.Store != QuoteStorePostgres {
		log.Fatalf("unknown QUOTE_STORE %q", cfg.Quotes.Store)
	}

	return cfg
}
