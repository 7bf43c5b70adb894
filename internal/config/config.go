package config

import (
	"errors"
	"fmt"
	"io/fs"
	"postqueue/internal/domain"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	Redis     Redis
	Database  Database
	Scheduler Scheduler
	Publisher Publisher
	HTTP      HTTP
}

type Redis struct {
	URL            string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"postqueue"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
}

type Database struct {
	Driver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DSN    string `env:"DATABASE_URL"`
}

type Scheduler struct {
	MaxAttempts    int           `env:"SCHEDULER_MAX_ATTEMPTS" envDefault:"3"`
	RetryBase      time.Duration `env:"SCHEDULER_RETRY_BASE" envDefault:"1m"`
	RetryMax       time.Duration `env:"SCHEDULER_RETRY_MAX" envDefault:"24h"`
	RetryJitter    float64       `env:"SCHEDULER_RETRY_JITTER" envDefault:"0"`
	LockTTL        time.Duration `env:"SCHEDULER_LOCK_TTL" envDefault:"5m"`
	RecordGrace    time.Duration `env:"SCHEDULER_RECORD_GRACE" envDefault:"1h"`
	ArchiveTTL     time.Duration `env:"SCHEDULER_ARCHIVE_TTL" envDefault:"168h"`
	ListWindow     time.Duration `env:"SCHEDULER_LIST_WINDOW" envDefault:"720h"`
	PublishTimeout time.Duration `env:"SCHEDULER_PUBLISH_TIMEOUT" envDefault:"30s"`
	Concurrency    int           `env:"SCHEDULER_CONCURRENCY" envDefault:"8"`
	BatchSize      int64         `env:"SCHEDULER_BATCH_SIZE" envDefault:"500"`
	TickInterval   time.Duration `env:"SCHEDULER_TICK_INTERVAL" envDefault:"60s"`
	Sandbox        bool          `env:"SCHEDULER_SANDBOX" envDefault:"false"`
	MockPrefix     string        `env:"SCHEDULER_MOCK_PREFIX" envDefault:"mock_"`
}

type Publisher struct {
	BaseURL string        `env:"PUBLISHER_URL"`
	Token   string        `env:"PUBLISHER_TOKEN"`
	Timeout time.Duration `env:"PUBLISHER_HTTP_TIMEOUT" envDefault:"30s"`
}

type HTTP struct {
	CronSecret     string   `env:"CRON_SECRET"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

func (s Scheduler) Policy() domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts: s.MaxAttempts,
		Base:        s.RetryBase,
		Max:         s.RetryMax,
		Jitter:      s.RetryJitter,
	}
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &c, nil
}
