package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/repository"
	"github.com/josh-kwaku/invoice-reconciler/internal/scoring"
)

type Config struct {
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret     string `env:"JWT_SECRET,required,notEmpty"`
	WebhookSecret string `env:"WEBHOOK_SECRET,required,notEmpty"`
	Port          int    `env:"PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv        string `env:"APP_ENV" envDefault:"production"`

	Matching MatchingConfig `envPrefix:"MATCH_"`

	WorkerInterval    time.Duration `env:"WORKER_INTERVAL" envDefault:"2s"`
	WorkerBatchSize   int           `env:"WORKER_BATCH_SIZE" envDefault:"10"`
	WorkerLease       time.Duration `env:"WORKER_LEASE" envDefault:"1m"`
	WorkerMaxAttempts int           `env:"WORKER_MAX_ATTEMPTS" envDefault:"5"`

	SchedulerEnabled  bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1m"`
	DailyRunHour      int           `env:"DAILY_RUN_HOUR" envDefault:"2"`
	WeeklyRunWeekday  int           `env:"WEEKLY_RUN_WEEKDAY" envDefault:"1"`
	WeeklyRunHour     int           `env:"WEEKLY_RUN_HOUR" envDefault:"3"`

	IdempotencyTTL             time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	IdempotencyCleanupInterval time.Duration `env:"IDEMPOTENCY_CLEANUP_INTERVAL" envDefault:"1h"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
	DBConnectAttempts  int `env:"DB_CONNECT_ATTEMPTS" envDefault:"10"`
}

// MatchingConfig mirrors scoring.Policy. Amounts are strings so they parse
// exactly into decimals.
type MatchingConfig struct {
	AmountWeight         float64 `env:"AMOUNT_WEIGHT" envDefault:"0.4"`
	CounterpartyWeight   float64 `env:"COUNTERPARTY_WEIGHT" envDefault:"0.3"`
	DateWeight           float64 `env:"DATE_WEIGHT" envDefault:"0.2"`
	ReferenceWeight      float64 `env:"REFERENCE_WEIGHT" envDefault:"0.1"`
	Tolerance            string  `env:"TOLERANCE" envDefault:"0.01"`
	AmountBandPct        string  `env:"AMOUNT_BAND_PCT" envDefault:"0.03"`
	MinScore             float64 `env:"MIN_SCORE" envDefault:"0.5"`
	ReviewThreshold      float64 `env:"REVIEW_THRESHOLD" envDefault:"0.7"`
	AutoThreshold        float64 `env:"AUTO_THRESHOLD" envDefault:"0.9"`
	MaxCandidates        int     `env:"MAX_CANDIDATES" envDefault:"10"`
	DateWindowDays       int     `env:"DATE_WINDOW_DAYS" envDefault:"30"`
	DateGraceDays        int     `env:"DATE_GRACE_DAYS" envDefault:"3"`
	ValidationWindowDays int     `env:"VALIDATION_WINDOW_DAYS" envDefault:"90"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if _, err := cfg.Policy(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.WeeklyRunWeekday < 0 || cfg.WeeklyRunWeekday > 6 {
		return nil, fmt.Errorf("config.Load: WEEKLY_RUN_WEEKDAY must be 0-6, got %d", cfg.WeeklyRunWeekday)
	}
	if cfg.WorkerInterval <= 0 || cfg.SchedulerInterval <= 0 || cfg.IdempotencyCleanupInterval <= 0 {
		return nil, fmt.Errorf("config.Load: intervals must be positive")
	}
	return &cfg, nil
}

// Pool returns the database pool settings.
func (c *Config) Pool() repository.PoolConfig {
	return repository.PoolConfig{
		MaxOpenConns:     c.DBMaxOpenConns,
		MaxIdleConns:     c.DBMaxIdleConns,
		ConnMaxLifetimeS: c.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: c.DBConnMaxIdleTimeS,
		ConnectAttempts:  c.DBConnectAttempts,
	}
}

// Policy builds the scoring policy from the matching settings.
func (c *Config) Policy() (scoring.Policy, error) {
	m := c.Matching
	tolerance, err := decimal.NewFromString(m.Tolerance)
	if err != nil {
		return scoring.Policy{}, fmt.Errorf("MATCH_TOLERANCE: %w", err)
	}
	band, err := decimal.NewFromString(m.AmountBandPct)
	if err != nil {
		return scoring.Policy{}, fmt.Errorf("MATCH_AMOUNT_BAND_PCT: %w", err)
	}

	p := scoring.Policy{
		AmountWeight:         m.AmountWeight,
		CounterpartyWeight:   m.CounterpartyWeight,
		DateWeight:           m.DateWeight,
		ReferenceWeight:      m.ReferenceWeight,
		Tolerance:            tolerance,
		AmountBandPct:        band,
		MinScore:             m.MinScore,
		ReviewThreshold:      m.ReviewThreshold,
		AutoThreshold:        m.AutoThreshold,
		MaxCandidates:        m.MaxCandidates,
		DateWindowDays:       m.DateWindowDays,
		DateGraceDays:        m.DateGraceDays,
		ValidationWindowDays: m.ValidationWindowDays,
	}
	if err := p.Validate(); err != nil {
		return scoring.Policy{}, err
	}
	return p, nil
}
