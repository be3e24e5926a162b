package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Cart      CartConfig
	Dashboard DashboardConfig
	Offline   OfflineConfig
	Push      PushConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds backing store connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file, ":memory:" for an in-process store
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
	SeedFile        string // product catalog CSV; empty seeds the built-in catalog
	SeedDelimiter   string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration // zero keeps the dashboard stream open
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	// CORSAllowOrigins lists storefront origins; empty disables CORS headers
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// CartConfig holds durable cart settings
type CartConfig struct {
	Step    decimal.Decimal
	Storage string // file, redis, memory
	Dir     string // root directory for file storage
	// SessionIdle drops a session's in-memory cart after this long without use;
	// the persisted cart is kept
	SessionIdle   time.Duration
	SweepInterval time.Duration
}

// DashboardConfig holds dashboard refresh settings
type DashboardConfig struct {
	PollInterval      time.Duration
	PushDebounce      time.Duration
	LoadTimeout       time.Duration
	TopProductsLimit  int
	RecentOrdersLimit int
}

// OfflineConfig holds offline order reconciliation settings
type OfflineConfig struct {
	ReconcileEnabled  bool
	ReconcileInterval time.Duration
	IdempotencyTTL    time.Duration
}

// PushConfig selects the row change feed
type PushConfig struct {
	Backend string // memory, redis
	Channel string // redis pub/sub channel prefix
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
	SamplingRatio     float64
	MetricsInterval   time.Duration
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
	LogsEnabled       bool // export logs to the collector as well
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FARM_ prefix (e.g., FARM_DATABASE_PASSWORD)
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
	}
	return fromViper(v)
}

// LoadFile loads configuration from an explicit TOML file plus the environment
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("FARM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("telemetry.sampling_ratio", 1.0)

	step := decimal.Zero
	if raw := v.GetString("cart.step"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("cart.step: %w", err)
		}
		step = d
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
			SeedFile:        v.GetString("database.seed_file"),
			SeedDelimiter:   v.GetString("database.seed_delimiter"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
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
			MaxBodySize:    v.GetInt64("http.max_body_size"),

			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Cart: CartConfig{
			Step:    step,
			Storage: v.GetString("cart.storage"),
			Dir:     v.GetString("cart.dir"),

			SessionIdle:   v.GetDuration("cart.session_idle"),
			SweepInterval: v.GetDuration("cart.sweep_interval"),
		},
		Dashboard: DashboardConfig{
			PollInterval:      v.GetDuration("dashboard.poll_interval"),
			PushDebounce:      v.GetDuration("dashboard.push_debounce"),
			LoadTimeout:       v.GetDuration("dashboard.load_timeout"),
			TopProductsLimit:  v.GetInt("dashboard.top_products_limit"),
			RecentOrdersLimit: v.GetInt("dashboard.recent_orders_limit"),
		},
		Offline: OfflineConfig{
			ReconcileEnabled:  !v.IsSet("offline.reconcile_enabled") || v.GetBool("offline.reconcile_enabled"),
			ReconcileInterval: v.GetDuration("offline.reconcile_interval"),
			IdempotencyTTL:    v.GetDuration("offline.idempotency_ttl"),
		},
		Push: PushConfig{
			Backend: v.GetString("push.backend"),
			Channel: v.GetString("push.channel"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
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
		cfg.App.Name = "farmstore"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
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
		cfg.Database.DBName = "farmstore"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "farmstore.db"
	}
	if cfg.Database.SeedDelimiter == "" {
		cfg.Database.SeedDelimiter = ","
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
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Cart.Step.IsZero() {
		cfg.Cart.Step = decimal.RequireFromString("0.5")
	}
	if cfg.Cart.Storage == "" {
		cfg.Cart.Storage = "file"
	}
	if cfg.Cart.Dir == "" {
		cfg.Cart.Dir = "data/sessions"
	}
	if cfg.Cart.SessionIdle == 0 {
		cfg.Cart.SessionIdle = 30 * time.Minute
	}
	if cfg.Cart.SweepInterval == 0 {
		cfg.Cart.SweepInterval = time.Minute
	}
	if cfg.Dashboard.PollInterval == 0 {
		cfg.Dashboard.PollInterval = 30 * time.Second
	}
	if cfg.Dashboard.PushDebounce == 0 {
		cfg.Dashboard.PushDebounce = time.Second
	}
	if cfg.Dashboard.LoadTimeout == 0 {
		cfg.Dashboard.LoadTimeout = 10 * time.Second
	}
	if cfg.Dashboard.TopProductsLimit == 0 {
		cfg.Dashboard.TopProductsLimit = 5
	}
	if cfg.Dashboard.RecentOrdersLimit == 0 {
		cfg.Dashboard.RecentOrdersLimit = 10
	}
	if cfg.Offline.ReconcileInterval == 0 {
		cfg.Offline.ReconcileInterval = time.Minute
	}
	if cfg.Offline.IdempotencyTTL == 0 {
		cfg.Offline.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.Push.Backend == "" {
		cfg.Push.Backend = "memory"
	}
	if cfg.Push.Channel == "" {
		cfg.Push.Channel = "farmstore:rows"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "farmstore"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
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
	if utf8.RuneCountInString(c.Database.SeedDelimiter) != 1 {
		return fmt.Errorf("database.seed_delimiter must be a single character, got %q", c.Database.SeedDelimiter)
	}

	if !c.Cart.Step.IsPositive() {
		return fmt.Errorf("cart.step must be positive, got %s", c.Cart.Step)
	}
	if c.Cart.SessionIdle < 0 || c.Cart.SweepInterval < 0 {
		return fmt.Errorf("cart.session_idle and cart.sweep_interval cannot be negative")
	}
	switch c.Cart.Storage {
	case "file", "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("cart.storage=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("cart.storage must be file, redis or memory, got %q", c.Cart.Storage)
	}

	switch c.Push.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("push.backend=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("push.backend must be memory or redis, got %q", c.Push.Backend)
	}

	if c.Dashboard.PollInterval < time.Second {
		return fmt.Errorf("dashboard.poll_interval must be at least 1s")
	}
	if c.Dashboard.PushDebounce < 0 {
		return fmt.Errorf("dashboard.push_debounce cannot be negative")
	}
	if c.Offline.ReconcileInterval < time.Second {
		return fmt.Errorf("offline.reconcile_interval must be at least 1s")
	}

	if c.App.Env == "production" && c.Database.Driver == "postgres" {
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
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}
