package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SOLARINTAKE_SERVER_ADDR.
const EnvPrefix = "SOLARINTAKE"

// Config is the full service configuration. Keys mirror the YAML file layout.
type Config struct {
	Server   Server         `mapstructure:"server"`
	Log      Log            `mapstructure:"log"`
	Intake   Intake         `mapstructure:"intake"`
	Postal   LookupService  `mapstructure:"postal"`
	Geocoder LookupService  `mapstructure:"geocoder"`
	Cache    Cache          `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Proposal ProposalConfig `mapstructure:"proposal"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	Environment     string        `mapstructure:"environment"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Intake tunes the address resolution pipeline.
type Intake struct {
	DebounceWindow   time.Duration `mapstructure:"debounce_window"`
	CountryQualifier string        `mapstructure:"country_qualifier"`
	SessionIdleTTL   time.Duration `mapstructure:"session_idle_ttl"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// LookupService configures one external lookup dependency.
type LookupService struct {
	BaseURL          string        `mapstructure:"base_url"`
	UserAgent        string        `mapstructure:"user_agent"`
	CountryCodes     string        `mapstructure:"country_codes"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// Cache selects the lookup cache backend: "memory", "redis" or "postgres".
type Cache struct {
	Backend    string        `mapstructure:"backend"`
	PostalTTL  time.Duration `mapstructure:"postal_ttl"`
	GeocodeTTL time.Duration `mapstructure:"geocode_ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// KafkaConfig enables the event publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type ProposalConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// SetDefaults registers every default on v so env overrides work for keys
// that never appear in a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")

	v.SetDefault("intake.debounce_window", time.Second)
	v.SetDefault("intake.country_qualifier", "Brazil")
	v.SetDefault("intake.session_idle_ttl", 30*time.Minute)
	v.SetDefault("intake.sweep_interval", time.Minute)

	v.SetDefault("postal.base_url", "https://viacep.com.br")
	v.SetDefault("postal.user_agent", "solarintake/1.0")
	v.SetDefault("postal.timeout", 10*time.Second)
	v.SetDefault("postal.failure_threshold", 5)
	v.SetDefault("postal.success_threshold", 2)
	v.SetDefault("postal.cooldown", 30*time.Second)

	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "solarintake/1.0")
	v.SetDefault("geocoder.country_codes", "br")
	v.SetDefault("geocoder.timeout", 10*time.Second)
	v.SetDefault("geocoder.failure_threshold", 5)
	v.SetDefault("geocoder.success_threshold", 2)
	v.SetDefault("geocoder.cooldown", 30*time.Second)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.postal_ttl", 24*time.Hour)
	v.SetDefault("cache.geocode_ttl", 6*time.Hour)
	v.SetDefault("cache.max_entries", 10000)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "intake.resolution-events")

	v.SetDefault("proposal.api_key", "")
	v.SetDefault("proposal.model", "gemini-2.5-flash")
}

// Load reads configuration from an optional YAML file and the environment.
// An empty path skips the file; a missing explicit file is an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Intake.DebounceWindow <= 0 {
		errs = append(errs, errors.New("intake.debounce_window must be positive"))
	}
	if c.Postal.BaseURL == "" {
		errs = append(errs, errors.New("postal.base_url is required"))
	}
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, errors.New("geocoder.base_url is required"))
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis cache backend"))
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", c.Cache.Backend))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in a production environment.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
