package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL"`
	Postgres    Postgres
	Redis       Redis
	API         API
	Cache       Cache
	Jobs        Jobs
	GoogleDrive GoogleDrive
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type API struct {
	Debug     bool          `env:"API_DEBUG"`
	Timeout   time.Duration `env:"API_TIMEOUT" envDefault:"8s"`
	QuoteApi  QuoteApi
	NasdaqApi NasdaqApi
}

type QuoteApi struct {
	Url string `env:"QUOTE_API_URL" envDefault:"https://query1.finance.yahoo.com"`
}

type NasdaqApi struct {
	Url string `env:"NASDAQ_API_URL" envDefault:"https://www.nasdaqtrader.com"`
}

type Cache struct {
	LiveTTL       time.Duration `env:"CACHE_LIVE_TTL" envDefault:"300s"`
	SummaryTTL    time.Duration `env:"CACHE_SUMMARY_TTL" envDefault:"600s"`
	HistoricalTTL time.Duration `env:"CACHE_HISTORICAL_TTL" envDefault:"3600s"`
	SnapshotTTL   time.Duration `env:"CACHE_SNAPSHOT_TTL" envDefault:"1800s"`
	ReportTTL     time.Duration `env:"CACHE_REPORT_TTL" envDefault:"300s"`
}

type Jobs struct {
	WarmQuotesInterval   time.Duration `env:"WARM_QUOTES_JOB_INTERVAL" envDefault:"25m"`
	TickerSyncCrontab    string        `env:"TICKER_SYNC_JOB_CRONTAB" envDefault:"0 7 * * *"`
	DriveCleanupInterval time.Duration `env:"DRIVE_CLEANUP_JOB_INTERVAL" envDefault:"12h"`
}

type GoogleDrive struct {
	Enabled         bool          `env:"GOOGLE_DRIVE_ENABLED" envDefault:"false"`
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"720h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
