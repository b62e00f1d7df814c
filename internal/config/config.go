// Package config loads service settings from a .env file and the environment
// through viper, and the loan-type reference catalog from YAML.
package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ruralpay/backoffice/internal/money"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Lending  LendingPolicy
	Ledger   LedgerConfig
	Reports  ReportsConfig
}

type ServerConfig struct {
	Port string `validate:"required,numeric"`
}

type DatabaseConfig struct {
	Host            string `validate:"required"`
	Port            string `validate:"required"`
	User            string `validate:"required"`
	Password        string
	Name            string `validate:"required"`
	SSLMode         string `validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int    `validate:"gte=1"`
	MaxIdleConns    int    `validate:"gte=0"`
	ConnMaxLifetime time.Duration
}

// DSN is the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int `validate:"gte=0"`
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type JWTConfig struct {
	SecretKey string
}

// LendingPolicy holds the thresholds the loan engine validates applications
// against and the late fee rate it charges on overdue installments.
type LendingPolicy struct {
	MinimumLoanAmount decimal.Decimal
	MinimumTermMonths int   `validate:"gte=1"`
	ValidFrequencies  []int `validate:"min=1,dive,oneof=1 2 3 4 6 12"`
	LateFeeRate       decimal.Decimal
	CatalogPath       string
}

type LedgerConfig struct {
	MaxRetries int `validate:"gte=1,lte=10"`
}

type ReportsConfig struct {
	CacheTTL time.Duration `validate:"gte=0"`
}

var envBindings = map[string]string{
	"server.port":               "PORT",
	"database.host":             "DATABASE_HOST",
	"database.port":             "DATABASE_PORT",
	"database.user":             "DATABASE_USER",
	"database.password":         "DATABASE_PASSWORD",
	"database.name":             "DATABASE_NAME",
	"database.ssl_mode":         "DATABASE_SSL_MODE",
	"redis.host":                "REDIS_HOST",
	"redis.port":                "REDIS_PORT",
	"redis.password":            "REDIS_PASSWORD",
	"redis.db":                  "REDIS_DB",
	"jwt.secret_key":            "JWT_SECRET_KEY",
	"lending.minimum_amount":    "LENDING_MINIMUM_AMOUNT",
	"lending.minimum_term":      "LENDING_MINIMUM_TERM_MONTHS",
	"lending.valid_frequencies": "LENDING_VALID_FREQUENCIES",
	"lending.late_fee_rate":     "LENDING_LATE_FEE_RATE",
	"lending.catalog_path":      "LENDING_CATALOG_PATH",
	"ledger.max_retries":        "LEDGER_MAX_RETRIES",
	"reports.summary_cache_ttl": "REPORTS_SUMMARY_CACHE_TTL",
}

// SetDefaults registers every default and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "backoffice")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Minute*5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("lending.minimum_amount", "1000")
	v.SetDefault("lending.minimum_term", 6)
	v.SetDefault("lending.valid_frequencies", "1,2,4,12")
	v.SetDefault("lending.late_fee_rate", "0.05")
	v.SetDefault("lending.catalog_path", "")

	v.SetDefault("ledger.max_retries", 3)
	v.SetDefault("reports.summary_cache_ttl", time.Minute)

	for key, env := range envBindings {
		v.BindEnv(key, env)
	}
}

// Init points v at an optional .env file and reads it. A missing file is not an
// error; defaults and the environment still apply.
func Init(v *viper.Viper, envFile string) {
	SetDefaults(v)
	if envFile == "" {
		return
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
		return
	}
	// .env keys arrive flat (database_host); the environment still wins over them.
	for key, env := range envBindings {
		if fileKey := strings.ToLower(env); v.InConfig(fileKey) {
			v.SetDefault(key, v.Get(fileKey))
		}
	}
}

// Load reads the settings held by v and validates them.
func Load(v *viper.Viper) (*Config, error) {
	minimum, err := money.Parse(v.GetString("lending.minimum_amount"))
	if err != nil {
		return nil, fmt.Errorf("lending.minimum_amount: %w", err)
	}
	lateFeeRate, err := money.Parse(v.GetString("lending.late_fee_rate"))
	if err != nil {
		return nil, fmt.Errorf("lending.late_fee_rate: %w", err)
	}
	frequencies, err := parseFrequencies(v.GetStringSlice("lending.valid_frequencies"))
	if err != nil {
		return nil, fmt.Errorf("lending.valid_frequencies: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{Port: v.GetString("server.port")},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{SecretKey: v.GetString("jwt.secret_key")},
		Lending: LendingPolicy{
			MinimumLoanAmount: minimum,
			MinimumTermMonths: v.GetInt("lending.minimum_term"),
			ValidFrequencies:  frequencies,
			LateFeeRate:       lateFeeRate,
			CatalogPath:       v.GetString("lending.catalog_path"),
		},
		Ledger:  LedgerConfig{MaxRetries: v.GetInt("ledger.max_retries")},
		Reports: ReportsConfig{CacheTTL: v.GetDuration("reports.summary_cache_ttl")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.Lending.MinimumLoanAmount.IsPositive() {
		return fmt.Errorf("invalid configuration: lending minimum amount must be positive")
	}
	if c.Lending.LateFeeRate.IsNegative() || c.Lending.LateFeeRate.GreaterThanOrEqual(money.One) {
		return fmt.Errorf("invalid configuration: late fee rate must be in [0, 1)")
	}
	return nil
}

func parseFrequencies(raw []string) ([]int, error) {
	var out []int
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("frequency %q is not a number", part)
			}
			out = append(out, n)
		}
	}
	return out, nil
}
