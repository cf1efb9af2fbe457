package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"makermate/internal/storage"
)

// Config holds configuration for the server and the CLI.
type Config struct {
	HTTPPort    string
	LogLevel    string
	Storage     StorageConfig
	Redis       RedisConfig
	Upstream    UpstreamConfig
	Cache       CacheConfig
	RateLimit   RateLimitConfig
	LoggingSink LoggingSinkConfig
	Secrets     SecretsConfig
	Reference   ReferenceConfig
}

// StorageConfig selects the key-value backend
type StorageConfig struct {
	Driver          string // memory | sqlite | postgres | redis
	DSN             string // sqlite file path or postgres URL
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// StorageDB converts the storage section for the SQL store
func (s StorageConfig) StorageDB() storage.DBConfig {
	db := storage.DefaultDBConfig()
	db.Driver = s.Driver
	db.DSN = s.DSN
	db.MaxOpenConns = s.MaxOpenConns
	db.MaxIdleConns = s.MaxIdleConns
	db.ConnMaxLifetime = s.ConnMaxLifetime
	db.ConnMaxIdleTime = s.ConnMaxIdleTime
	return db
}

// OpenStore opens the configured key-value backend
func (c *Config) OpenStore() (storage.Store, error) {
	return storage.Open(c.Storage.Driver, c.Storage.StorageDB(), c.Redis.StorageRedis())
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Namespace    string
}

// StorageRedis converts the Redis section for the storage package
func (r RedisConfig) StorageRedis() storage.RedisConfig {
	return storage.RedisConfig{
		Address:      r.Address,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		MinIdleConns: r.MinIdleConns,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
		Namespace:    r.Namespace,
	}
}

// UpstreamConfig holds server-side provider credentials and endpoints
type UpstreamConfig struct {
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	AzureOpenAIAPIKey   string
	AzureOpenAIEndpoint string
	AzureAPIVersion     string
	RequestTimeout      time.Duration
	M365URL             string
}

// APIKeys maps provider types to the configured server keys
func (u UpstreamConfig) APIKeys() map[string]string {
	keys := map[string]string{}
	for provider, key := range map[string]string{
		"openai":       u.OpenAIAPIKey,
		"anthropic":    u.AnthropicAPIKey,
		"azure-openai": u.AzureOpenAIAPIKey,
	} {
		if key != "" {
			keys[provider] = key
		}
	}
	return keys
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	DiscoverSize int
	DiscoverTTL  time.Duration
	M365TTL      time.Duration
}

// RateLimitConfig limits the upstream proxy endpoints per client
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
	UseRedis bool
}

// LoggingSinkConfig holds configuration for the S3-based audit sink
type LoggingSinkConfig struct {
	Enabled       bool          // Whether to enable S3 logging
	BufferSize    int           // In-memory queue size
	FlushSize     int           // Flush to S3 after this many records
	FlushInterval time.Duration // Flush to S3 after this duration
	S3Bucket      string        // S3 bucket name
	S3Region      string        // AWS region
	S3Prefix      string        // Prefix for S3 keys (e.g., "audit/")
	PodName       string        // Instance identifier for multi-host deployments
}

// SecretsConfig controls at-rest encryption of stored API keys
type SecretsConfig struct {
	Passphrase string
}

// ReferenceConfig points the reference lists at their sources. Empty values
// use the embedded copies.
type ReferenceConfig struct {
	RoadmapURL   string
	ResourcesURL string
	SnippetsURL  string
}

// env binds config keys to the upper-snake environment names
var env = map[string]string{
	"http_port":                   "HTTP_PORT",
	"log_level":                   "LOG_LEVEL",
	"storage.driver":              "STORAGE_DRIVER",
	"storage.dsn":                 "DATABASE_URL",
	"storage.max_open_conns":      "DB_MAX_OPEN_CONNS",
	"storage.max_idle_conns":      "DB_MAX_IDLE_CONNS",
	"storage.conn_max_lifetime":   "DB_CONN_MAX_LIFETIME",
	"storage.conn_max_idle_time":  "DB_CONN_MAX_IDLE_TIME",
	"redis.address":               "REDIS_ADDRESS",
	"redis.password":              "REDIS_PASSWORD",
	"redis.db":                    "REDIS_DB",
	"redis.pool_size":             "REDIS_POOL_SIZE",
	"redis.min_idle_conns":        "REDIS_MIN_IDLE_CONNS",
	"redis.dial_timeout":          "REDIS_DIAL_TIMEOUT",
	"redis.read_timeout":          "REDIS_READ_TIMEOUT",
	"redis.write_timeout":         "REDIS_WRITE_TIMEOUT",
	"redis.namespace":             "REDIS_NAMESPACE",
	"upstream.openai_api_key":     "OPENAI_API_KEY",
	"upstream.anthropic_api_key":  "ANTHROPIC_API_KEY",
	"upstream.azure_api_key":      "AZURE_OPENAI_API_KEY",
	"upstream.azure_endpoint":     "AZURE_OPENAI_ENDPOINT",
	"upstream.azure_api_version":  "AZURE_OPENAI_API_VERSION",
	"upstream.request_timeout":    "PROVIDER_REQUEST_TIMEOUT",
	"upstream.m365_url":           "M365_ROADMAP_URL",
	"cache.discover_size":         "CACHE_DISCOVER_SIZE",
	"cache.discover_ttl":          "CACHE_DISCOVER_TTL",
	"cache.m365_ttl":              "CACHE_M365_TTL",
	"ratelimit.enabled":           "RATE_LIMIT_ENABLED",
	"ratelimit.requests":          "RATE_LIMIT_REQUESTS",
	"ratelimit.window":            "RATE_LIMIT_WINDOW",
	"ratelimit.use_redis":         "RATE_LIMIT_USE_REDIS",
	"logging_sink.enabled":        "LOGGING_SINK_ENABLED",
	"logging_sink.buffer_size":    "LOGGING_SINK_BUFFER_SIZE",
	"logging_sink.flush_size":     "LOGGING_SINK_FLUSH_SIZE",
	"logging_sink.flush_interval": "LOGGING_SINK_FLUSH_INTERVAL",
	"logging_sink.s3_bucket":      "LOGGING_SINK_S3_BUCKET",
	"logging_sink.s3_region":      "LOGGING_SINK_S3_REGION",
	"logging_sink.s3_prefix":      "LOGGING_SINK_S3_PREFIX",
	"logging_sink.pod_name":       "POD_NAME",
	"secrets.passphrase":          "MAKERMATE_SECRET_PASSPHRASE",
	"reference.roadmap_url":       "ROADMAP_URL",
	"reference.resources_url":     "RESOURCES_URL",
	"reference.snippets_url":      "SNIPPETS_URL",
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")
	v.SetDefault("log_level", "warning")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", filepath.Join(DefaultDir(), "makermate.db"))
	v.SetDefault("storage.max_open_conns", 1)
	v.SetDefault("storage.max_idle_conns", 1)
	v.SetDefault("storage.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("storage.conn_max_idle_time", 1*time.Minute)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.namespace", "makermate:")

	v.SetDefault("upstream.azure_api_version", "2024-06-01")
	v.SetDefault("upstream.request_timeout", 60*time.Second)
	v.SetDefault("upstream.m365_url", "https://www.microsoft.com/releasecommunications/api/v1/m365")

	v.SetDefault("cache.discover_size", 16)
	v.SetDefault("cache.discover_ttl", 5*time.Minute)
	v.SetDefault("cache.m365_ttl", 15*time.Minute)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests", 60)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.use_redis", false)

	v.SetDefault("logging_sink.enabled", false)
	v.SetDefault("logging_sink.buffer_size", 10000)
	v.SetDefault("logging_sink.flush_size", 1000)
	v.SetDefault("logging_sink.flush_interval", 5*time.Minute)
	v.SetDefault("logging_sink.s3_region", "us-east-1")
	v.SetDefault("logging_sink.s3_prefix", "audit/")
	v.SetDefault("logging_sink.pod_name", "makermate-0")
}

// DefaultDir is the per-user config and data directory
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "makermate")
}

// NewViper returns a viper instance with defaults and environment bindings.
// When file is empty, config.yaml in DefaultDir is read if present.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// Load reads configuration from v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HTTPPort: v.GetString("http_port"),
		LogLevel: v.GetString("log_level"),
		Storage: StorageConfig{
			Driver:          strings.ToLower(v.GetString("storage.driver")),
			DSN:             v.GetString("storage.dsn"),
			MaxOpenConns:    v.GetInt("storage.max_open_conns"),
			MaxIdleConns:    v.GetInt("storage.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("storage.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("storage.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Address:      v.GetString("redis.address"),
			Password:     v.GetString("redis.password"),
			DB:           v.GetInt("redis.db"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
			Namespace:    v.GetString("redis.namespace"),
		},
		Upstream: UpstreamConfig{
			OpenAIAPIKey:        v.GetString("upstream.openai_api_key"),
			AnthropicAPIKey:     v.GetString("upstream.anthropic_api_key"),
			AzureOpenAIAPIKey:   v.GetString("upstream.azure_api_key"),
			AzureOpenAIEndpoint: v.GetString("upstream.azure_endpoint"),
			AzureAPIVersion:     v.GetString("upstream.azure_api_version"),
			RequestTimeout:      v.GetDuration("upstream.request_timeout"),
			M365URL:             v.GetString("upstream.m365_url"),
		},
		Cache: CacheConfig{
			DiscoverSize: v.GetInt("cache.discover_size"),
			DiscoverTTL:  v.GetDuration("cache.discover_ttl"),
			M365TTL:      v.GetDuration("cache.m365_ttl"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  v.GetBool("ratelimit.enabled"),
			Requests: v.GetInt("ratelimit.requests"),
			Window:   v.GetDuration("ratelimit.window"),
			UseRedis: v.GetBool("ratelimit.use_redis"),
		},
		LoggingSink: LoggingSinkConfig{
			Enabled:       v.GetBool("logging_sink.enabled"),
			BufferSize:    v.GetInt("logging_sink.buffer_size"),
			FlushSize:     v.GetInt("logging_sink.flush_size"),
			FlushInterval: v.GetDuration("logging_sink.flush_interval"),
			S3Bucket:      v.GetString("logging_sink.s3_bucket"),
			S3Region:      v.GetString("logging_sink.s3_region"),
			S3Prefix:      v.GetString("logging_sink.s3_prefix"),
			PodName:       v.GetString("logging_sink.pod_name"),
		},
		Secrets: SecretsConfig{
			Passphrase: v.GetString("secrets.passphrase"),
		},
		Reference: ReferenceConfig{
			RoadmapURL:   v.GetString("reference.roadmap_url"),
			ResourcesURL: v.GetString("reference.resources_url"),
			SnippetsURL:  v.GetString("reference.snippets_url"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres driver")
	}
	if c.LoggingSink.Enabled && c.LoggingSink.S3Bucket == "" {
		return fmt.Errorf("LOGGING_SINK_S3_BUCKET is required when the logging sink is enabled")
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	return nil
}
