package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides
const EnvPrefix = "COMMUNAL"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Billing   BillingConfig
	Telemetry TelemetryConfig
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
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings. An empty Host disables Redis
// and the in-memory job store and lock are used instead.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether Redis is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	SubmitRateLimit  float64 // billing job submissions per second per client, 0 disables
	SubmitBurst      int
}

// SchedulerConfig holds worker pool configuration
type SchedulerConfig struct {
	MaxConcurrentJobs int
	QueueSize         int
	JobTimeout        time.Duration
}

// BillingConfig holds billing engine and job lifecycle settings
type BillingConfig struct {
	Lookback       int           // periods averaged when the current reading is missing
	MaxDelay       time.Duration // upper bound for the artificial pre-computation delay
	LockTTL        time.Duration // advisory lock lifetime per house and period
	ResultTTL      time.Duration // how long job results stay pollable
	StaleAfter     time.Duration // heartbeat age after which an unfinished job is abandoned
	ReaperInterval time.Duration
	Heartbeat      time.Duration
	MonthlyEnabled bool
	MonthlyDay     int
	MonthlyHour    int
	MonthlyMinute  int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	DBTraceEnabled    bool // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool // Log full SQL statements (dev only)
	PrometheusEnabled bool // Expose /metrics
}

// Load loads configuration from .env, TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with COMMUNAL_ prefix (e.g., COMMUNAL_DATABASE_PASSWORD)
// 2. .env file in the working directory (does not override real env vars)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
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
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
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
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			SubmitRateLimit:  v.GetFloat64("http.submit_rate_limit"),
			SubmitBurst:      v.GetInt("http.submit_burst"),
		},
		Scheduler: SchedulerConfig{
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			QueueSize:         v.GetInt("scheduler.queue_size"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
		},
		Billing: BillingConfig{
			Lookback:       v.GetInt("billing.lookback"),
			MaxDelay:       v.GetDuration("billing.max_delay"),
			LockTTL:        v.GetDuration("billing.lock_ttl"),
			ResultTTL:      v.GetDuration("billing.result_ttl"),
			StaleAfter:     v.GetDuration("billing.stale_after"),
			ReaperInterval: v.GetDuration("billing.reaper_interval"),
			Heartbeat:      v.GetDuration("billing.heartbeat"),
			MonthlyEnabled: v.GetBool("billing.monthly_enabled"),
			MonthlyDay:     v.GetInt("billing.monthly_day"),
			MonthlyHour:    v.GetInt("billing.monthly_hour"),
			MonthlyMinute:  v.GetInt("billing.monthly_minute"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			PrometheusEnabled: v.GetBool("telemetry.prometheus_enabled"),
		},
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "communal-backend"
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
		cfg.Database.DBName = "communal"
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
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Host != "" && cfg.Redis.Port == 0 {
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
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.SubmitRateLimit > 0 && cfg.HTTP.SubmitBurst == 0 {
		cfg.HTTP.SubmitBurst = 5
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 4
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 100
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
	if cfg.Billing.Lookback == 0 {
		cfg.Billing.Lookback = 3
	}
	if cfg.Billing.MaxDelay == 0 {
		cfg.Billing.MaxDelay = 5 * time.Minute
	}
	if cfg.Billing.LockTTL == 0 {
		cfg.Billing.LockTTL = 15 * time.Minute
	}
	if cfg.Billing.ResultTTL == 0 {
		cfg.Billing.ResultTTL = 24 * time.Hour
	}
	if cfg.Billing.StaleAfter == 0 {
		cfg.Billing.StaleAfter = 30 * time.Minute
	}
	if cfg.Billing.ReaperInterval == 0 {
		cfg.Billing.ReaperInterval = 5 * time.Minute
	}
	if cfg.Billing.Heartbeat == 0 {
		cfg.Billing.Heartbeat = 30 * time.Second
	}
	if cfg.Billing.MonthlyDay == 0 {
		cfg.Billing.MonthlyDay = 1
	}
	if cfg.Billing.MonthlyHour == 0 {
		cfg.Billing.MonthlyHour = 3
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "communal-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
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
	if c.Scheduler.MaxConcurrentJobs < 1 {
		return fmt.Errorf("scheduler.max_concurrent_jobs must be positive")
	}
	if c.Scheduler.QueueSize < 1 {
		return fmt.Errorf("scheduler.queue_size must be positive")
	}
	if c.Billing.Lookback < 1 {
		return fmt.Errorf("billing.lookback must be positive, got %d", c.Billing.Lookback)
	}
	if c.Billing.MonthlyDay < 1 || c.Billing.MonthlyDay > 28 {
		return fmt.Errorf("billing.monthly_day must be between 1 and 28, got %d", c.Billing.MonthlyDay)
	}
	if c.Billing.MonthlyHour < 0 || c.Billing.MonthlyHour > 23 {
		return fmt.Errorf("billing.monthly_hour must be between 0 and 23, got %d", c.Billing.MonthlyHour)
	}
	if c.Billing.MonthlyMinute < 0 || c.Billing.MonthlyMinute > 59 {
		return fmt.Errorf("billing.monthly_minute must be between 0 and 59, got %d", c.Billing.MonthlyMinute)
	}
	if c.Billing.Heartbeat >= c.Billing.StaleAfter {
		return fmt.Errorf("billing.heartbeat (%s) must be shorter than billing.stale_after (%s)",
			c.Billing.Heartbeat, c.Billing.StaleAfter)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
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
