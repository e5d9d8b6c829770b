package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Supplier    SupplierConfig
	Fulfillment FulfillmentConfig
	Scheduler   SchedulerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// SupplierConfig holds supplier API client settings shared by all adapters
type SupplierConfig struct {
	// MinAuthInterval is the minimum spacing between authentication attempts
	// against one supplier, failed attempts included
	MinAuthInterval time.Duration
	// RequestSpacing is the minimum gap between consecutive calls to one
	// supplier's API
	RequestSpacing time.Duration
	// RequestTimeout bounds each individual API call
	RequestTimeout time.Duration
	// CategoryCacheTTL is how long a fetched category list stays fresh
	CategoryCacheTTL time.Duration
}

// FulfillmentConfig holds order fulfillment settings
type FulfillmentConfig struct {
	// DefaultCostFactor estimates an item's cost as this fraction of its
	// sale price when no cost price is recorded
	DefaultCostFactor float64
}

// SchedulerConfig holds status reconciliation scheduler configuration
type SchedulerConfig struct {
	Enabled       bool
	SweepInterval time.Duration
	SweepTimeout  time.Duration
	HistorySize   int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DROPSHIP_ prefix (e.g., DROPSHIP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("DROPSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Supplier: SupplierConfig{
			MinAuthInterval:  v.GetDuration("supplier.min_auth_interval"),
			RequestSpacing:   v.GetDuration("supplier.request_spacing"),
			RequestTimeout:   v.GetDuration("supplier.request_timeout"),
			CategoryCacheTTL: v.GetDuration("supplier.category_cache_ttl"),
		},
		Fulfillment: FulfillmentConfig{
			DefaultCostFactor: v.GetFloat64("fulfillment.default_cost_factor"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			SweepInterval: v.GetDuration("scheduler.sweep_interval"),
			SweepTimeout:  v.GetDuration("scheduler.sweep_timeout"),
			HistorySize:   v.GetInt("scheduler.history_size"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "dropship-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "dropship"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Supplier.MinAuthInterval == 0 {
		cfg.Supplier.MinAuthInterval = 5 * time.Minute
	}
	if cfg.Supplier.RequestSpacing == 0 {
		cfg.Supplier.RequestSpacing = 1100 * time.Millisecond
	}
	if cfg.Supplier.RequestTimeout == 0 {
		cfg.Supplier.RequestTimeout = 30 * time.Second
	}
	if cfg.Supplier.CategoryCacheTTL == 0 {
		cfg.Supplier.CategoryCacheTTL = time.Hour
	}
	if cfg.Fulfillment.DefaultCostFactor == 0 {
		cfg.Fulfillment.DefaultCostFactor = 0.7
	}
	if cfg.Scheduler.SweepInterval == 0 {
		cfg.Scheduler.SweepInterval = 30 * time.Minute
	}
	if cfg.Scheduler.SweepTimeout == 0 {
		cfg.Scheduler.SweepTimeout = 15 * time.Minute
	}
	if cfg.Scheduler.HistorySize == 0 {
		cfg.Scheduler.HistorySize = 50
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Supplier.MinAuthInterval < 0 {
		return fmt.Errorf("supplier.min_auth_interval cannot be negative")
	}
	if c.Supplier.RequestSpacing < 0 {
		return fmt.Errorf("supplier.request_spacing cannot be negative")
	}
	if c.Supplier.RequestTimeout <= 0 {
		return fmt.Errorf("supplier.request_timeout must be positive")
	}
	if c.Fulfillment.DefaultCostFactor <= 0 || c.Fulfillment.DefaultCostFactor > 1 {
		return fmt.Errorf("fulfillment.default_cost_factor must be in (0, 1], got %f", c.Fulfillment.DefaultCostFactor)
	}
	if c.Scheduler.SweepTimeout > c.Scheduler.SweepInterval {
		return fmt.Errorf("scheduler.sweep_timeout (%s) cannot exceed scheduler.sweep_interval (%s)",
			c.Scheduler.SweepTimeout, c.Scheduler.SweepInterval)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
