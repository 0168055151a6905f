package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Store   StoreConfig
	Redis   RedisConfig
	Metrics MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.validate(cfg.Redis); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type APIConfig struct {
	BaseURL   string        `envconfig:"STOREFRONT_API_BASE_URL" required:"true"`
	Timeout   time.Duration `envconfig:"STOREFRONT_API_TIMEOUT" default:"15s"`
	UserAgent string        `envconfig:"STOREFRONT_API_USER_AGENT" default:"maison-storefront/1"`
}

func (a APIConfig) validate() error {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", EnvAPIBaseURL, a.BaseURL)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvAPITimeout)
	}
	return nil
}

// Origin is the scheme://host of the API, used to scope persisted keys per storefront.
func (a APIConfig) Origin() string {
	u, err := url.Parse(a.BaseURL)
	if err != nil || u.Host == "" {
		return a.BaseURL
	}
	return u.Scheme + "://" + u.Host
}

type StoreConfig struct {
	Driver string `envconfig:"STOREFRONT_STORE_DRIVER" default:"sqlite"`
	// Path is the sqlite file used by the sqlite driver.
	Path string `envconfig:"STOREFRONT_STORE_PATH" default:"storefront.db"`
	// DSN is the connection string used by the postgres driver.
	DSN       string `envconfig:"STOREFRONT_STORE_DSN"`
	Namespace string `envconfig:"STOREFRONT_STORE_NAMESPACE"`
	// Fallback keeps the storefront usable in memory when the durable store fails.
	Fallback bool `envconfig:"STOREFRONT_STORE_FALLBACK" default:"true"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_STORE_MAX_OPEN_CONNS" default:"4"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_STORE_CONN_MAX_LIFETIME" default:"1h"`
}

func (s StoreConfig) validate(redis RedisConfig) error {
	switch strings.ToLower(s.Driver) {
	case StoreDriverMemory:
		return nil
	case StoreDriverSQLite:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("%s is required for the sqlite driver", EnvStorePath)
		}
		return nil
	case StoreDriverPostgres:
		if strings.TrimSpace(s.DSN) == "" {
			return fmt.Errorf("%s is required for the postgres driver", EnvStoreDSN)
		}
		return nil
	case StoreDriverRedis:
		if redis.URL == "" && redis.Address == "" {
			return fmt.Errorf("either %s or %s is required for the redis driver", EnvRedisURL, EnvRedisAddr)
		}
		return nil
	}
	return fmt.Errorf("unsupported %s %q", EnvStoreDriver, s.Driver)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"STOREFRONT_METRICS_ENABLED" default:"false"`
}
