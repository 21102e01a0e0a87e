// Package config provides configuration management for the habit stake service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Chain      ChainConfig
	Settlement SettlementConfig
	Scheduler  SchedulerConfig
	Watcher    WatcherConfig
	Cache      CacheConfig
	Coach      CoachConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestsPerSec  int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres connection and pool tuning configuration
type PostgresConfig struct {
	Host              string
	Port              string
	Database          string
	User              string
	Password          string
	MaxConnections    int
	MinConnections    int
	ConnLifetime      time.Duration
	ConnIdleTime      time.Duration
	HealthCheckPeriod time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ChainConfig holds settlement-network RPC configuration
type ChainConfig struct {
	RPCURL         string
	RequestTimeout time.Duration
}

// SettlementConfig holds the value-transfer parameters of the escalation
// and reward policies.
type SettlementConfig struct {
	// CharityAddress receives staked and forfeited funds.
	CharityAddress string
	// Currency is the unit new habits default to.
	Currency string
	// DefaultStake is applied when a habit is created without a stake amount.
	DefaultStake decimal.Decimal
	// RewardBonus is paid on top of the returned stake when a streak
	// reaches the reward threshold.
	RewardBonus decimal.Decimal
}

// SchedulerConfig holds reconciliation scheduling configuration
type SchedulerConfig struct {
	// CronSpec is when the daily sweep runs, after the habit cutoff time.
	CronSpec string
	Timezone string
}

// WatcherConfig holds confirmation watcher configuration
type WatcherConfig struct {
	PollInterval time.Duration
	QueryTimeout time.Duration
}

// CoachConfig holds the encouragement text collaborator configuration
type CoachConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// CacheConfig holds cache tuning
type CacheConfig struct {
	// StatsTTL bounds how stale a cached stats read model may be.
	StatsTTL time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestsPerSec:  getEnvAsInt("SERVER_REQUESTS_PER_SEC", 20),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:              getEnv("POSTGRES_HOST", "localhost"),
				Port:              getEnv("POSTGRES_PORT", "5432"),
				Database:          getEnv("POSTGRES_DB", "habit_stake"),
				User:              getEnv("POSTGRES_USER", "habit"),
				Password:          getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections:    getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
				MinConnections:    getEnvAsInt("POSTGRES_MIN_CONNECTIONS", 2),
				ConnLifetime:      getEnvAsDuration("POSTGRES_CONN_LIFETIME", time.Hour),
				ConnIdleTime:      getEnvAsDuration("POSTGRES_CONN_IDLE_TIME", 30*time.Minute),
				HealthCheckPeriod: getEnvAsDuration("POSTGRES_HEALTH_CHECK_PERIOD", time.Minute),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Chain: ChainConfig{
			RPCURL:         getEnv("CHAIN_RPC_URL", "http://localhost:8545"),
			RequestTimeout: getEnvAsDuration("CHAIN_REQUEST_TIMEOUT", 10*time.Second),
		},
		Settlement: SettlementConfig{
			CharityAddress: getEnv("SETTLEMENT_CHARITY_ADDRESS", ""),
			Currency:       getEnv("SETTLEMENT_CURRENCY", "MATIC"),
			DefaultStake:   getEnvAsDecimal("SETTLEMENT_DEFAULT_STAKE", "5"),
			RewardBonus:    getEnvAsDecimal("SETTLEMENT_REWARD_BONUS", "0.1"),
		},
		Scheduler: SchedulerConfig{
			CronSpec: getEnv("RECONCILE_CRON", "0 21 * * *"),
			Timezone: getEnv("RECONCILE_TIMEZONE", "UTC"),
		},
		Watcher: WatcherConfig{
			PollInterval: getEnvAsDuration("WATCHER_POLL_INTERVAL", 15*time.Second),
			QueryTimeout: getEnvAsDuration("WATCHER_QUERY_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			StatsTTL: getEnvAsDuration("STATS_CACHE_TTL", 5*time.Minute),
		},
		Coach: CoachConfig{
			Enabled: getEnvAsBool("COACH_ENABLED", false),
			BaseURL: getEnv("COACH_BASE_URL", ""),
			APIKey:  getEnv("COACH_API_KEY", ""),
			Timeout: getEnvAsDuration("COACH_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks invariants that would otherwise surface as runtime faults
func (c *Config) validate() error {
	if c.Settlement.CharityAddress == "" {
		return fmt.Errorf("SETTLEMENT_CHARITY_ADDRESS is required")
	}
	if c.Settlement.DefaultStake.Sign() <= 0 {
		return fmt.Errorf("SETTLEMENT_DEFAULT_STAKE must be positive")
	}
	if c.Settlement.RewardBonus.Sign() < 0 {
		return fmt.Errorf("SETTLEMENT_REWARD_BONUS must not be negative")
	}
	if c.Database.Postgres.MaxConnections <= 0 {
		return fmt.Errorf("POSTGRES_MAX_CONNECTIONS must be positive")
	}
	if c.Database.Postgres.MinConnections < 0 || c.Database.Postgres.MinConnections > c.Database.Postgres.MaxConnections {
		return fmt.Errorf("POSTGRES_MIN_CONNECTIONS must be between 0 and POSTGRES_MAX_CONNECTIONS")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid RECONCILE_TIMEZONE: %w", err)
	}
	return nil
}

// PostgresURL builds the database URL used by migrations
func (p *PostgresConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Database)
}

// Location returns the scheduler timezone. Validation guarantees it parses.
func (s *SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDecimal gets an environment variable as a decimal with a default value
func getEnvAsDecimal(key, defaultValue string) decimal.Decimal {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.RequireFromString(defaultValue)
	}
	return value
}
