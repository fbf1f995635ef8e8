package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:""`
	FieURL      string `env:"FIE_DATABASE_URL" envDefault:""`
	Sqlite      Sqlite
	Postgres    Postgres
	HTTP        HTTP
	Redis       Redis
	API         API
	Cache       Cache
	Jobs        Jobs
}

type HTTP struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8001"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Sqlite struct {
	Path         string `env:"SQLITE_PATH" envDefault:"fie_portfolio.db"`
	MigrationDir string `env:"SQLITE_MIGRATION_DIR" envDefault:"migrations/sqlite"`
}

type Postgres struct {
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations/postgres"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:""`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout  time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
	YahooAPI YahooAPI
}

type YahooAPI struct {
	URL       string `env:"YAHOO_API_URL" envDefault:"https://query1.finance.yahoo.com"`
	UserAgent string `env:"YAHOO_API_USER_AGENT" envDefault:"Mozilla/5.0"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION" envDefault:"5m"`
}

type Jobs struct {
	DailyNavCrontab string `env:"DAILY_NAV_CRONTAB" envDefault:"35 15 * * *"`
	Timezone        string `env:"JOBS_TIMEZONE" envDefault:"Asia/Kolkata"`
	WarmHistoryDays int    `env:"WARM_HISTORY_DAYS" envDefault:"365"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	// Railway deployments export FIE_DATABASE_URL instead of DATABASE_URL.
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.FieURL
	}

	return cfg
}
