package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/tenancy/pkg/observability"
	"github.com/platinummonkey/tenancy/pkg/storage/kv"
	"github.com/platinummonkey/tenancy/pkg/storage/objects"
	"github.com/platinummonkey/tenancy/pkg/storage/postgres"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "TENANCY_"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Redis         RedisConfig         `yaml:"redis"`
	S3            S3Config            `yaml:"s3"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Janitor       JanitorConfig       `yaml:"janitor"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// StorageConfig selects and tunes the SQL database
type StorageConfig struct {
	Driver      string        `yaml:"driver"`
	URL         string        `yaml:"url"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	AutoMigrate bool          `yaml:"auto_migrate"`
}

// Connection converts the section into connection settings
func (s StorageConfig) Connection() postgres.ConnectionConfig {
	return postgres.ConnectionConfig{
		Driver:      s.Driver,
		URL:         s.URL,
		MaxConns:    s.MaxConns,
		MinConns:    s.MinConns,
		Timeout:     s.Timeout,
		MaxLifetime: time.Hour,
		MaxIdleTime: 10 * time.Minute,
	}
}

// RedisConfig enables the distributed rate limiter when URL is set
type RedisConfig struct {
	URL        string `yaml:"url"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	MaxRetries int    `yaml:"max_retries"`
	PoolSize   int    `yaml:"pool_size"`
}

func (r RedisConfig) Enabled() bool { return r.URL != "" }

func (r RedisConfig) Client() kv.Config {
	return kv.Config{
		URL:        r.URL,
		Password:   r.Password,
		DB:         r.DB,
		MaxRetries: r.MaxRetries,
		PoolSize:   r.PoolSize,
	}
}

// S3Config enables avatar uploads when Bucket is set
type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

func (s S3Config) Enabled() bool { return s.Bucket != "" }

func (s S3Config) Store() objects.Config {
	return objects.Config{
		Endpoint:     s.Endpoint,
		Region:       s.Region,
		Bucket:       s.Bucket,
		AccessKey:    s.AccessKey,
		SecretKey:    s.SecretKey,
		UsePathStyle: s.UsePathStyle,
	}
}

// AuthConfig holds the token signing settings
type AuthConfig struct {
	SecretKey string        `yaml:"secret_key"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// RateLimitConfig limits the credential endpoints per client address
type RateLimitConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Requests   int           `yaml:"requests"`
	Window     time.Duration `yaml:"window"`
	Burst      int           `yaml:"burst"`
	MaxBuckets int           `yaml:"max_buckets"`
}

// KafkaConfig enables broker publishing when Brokers is non-empty
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	EventsTopic string   `yaml:"events_topic"`
	SMSTopic    string   `yaml:"sms_topic"`
	ClientID    string   `yaml:"client_id"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// JanitorConfig schedules the purge of stale pending relations
type JanitorConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Schedule   string        `yaml:"schedule"`
	PendingTTL time.Duration `yaml:"pending_ttl"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
	OTelEnvironment    string  `yaml:"otel_environment"`

	// AuditFile receives audit events as JSON lines; empty writes them to stderr
	AuditFile string `yaml:"audit_file"`
}

// OTel converts the section into tracer/meter settings
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
		Environment:    o.OTelEnvironment,
	}
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    10 << 20,
			CORSOrigins:     []string{"*"},
			HealthPort:      "9090",
		},
		Storage: StorageConfig{
			Driver:      postgres.DriverPostgres,
			MaxConns:    20,
			MinConns:    5,
			Timeout:     5 * time.Second,
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			MaxRetries: 3,
			PoolSize:   10,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:    true,
			Requests:   10,
			Window:     time.Minute,
			Burst:      5,
			MaxBuckets: 10000,
		},
		Kafka: KafkaConfig{
			EventsTopic: "tenancy.events",
			SMSTopic:    "tenancy.sms",
			ClientID:    "tenancy",
		},
		Janitor: JanitorConfig{
			Enabled:    true,
			Schedule:   "@hourly",
			PendingTTL: 720 * time.Hour,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "tenancy",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelEnvironment:    "development",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by TENANCY_CONFIG_FILE and then the environment, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := getEnv(EnvPrefix+"CONFIG_FILE", ""); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file onto cfg; keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	p := EnvPrefix

	c.Server.Host = getEnv(p+"HOST", c.Server.Host)
	c.Server.Port = getEnv(p+"PORT", c.Server.Port)
	c.Server.HealthPort = getEnv(p+"HEALTH_PORT", c.Server.HealthPort)
	c.Server.ReadTimeout = getEnvDuration(p+"READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration(p+"WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration(p+"IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration(p+"SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.MaxBodyBytes = getEnvInt64(p+"MAX_BODY_BYTES", c.Server.MaxBodyBytes)
	c.Server.CORSOrigins = getEnvList(p+"CORS_ORIGINS", c.Server.CORSOrigins)

	c.Storage.Driver = getEnv(p+"DB_DRIVER", c.Storage.Driver)
	c.Storage.URL = getEnv(p+"DATABASE_URL", c.Storage.URL)
	c.Storage.MaxConns = getEnvInt(p+"DB_MAX_CONNS", c.Storage.MaxConns)
	c.Storage.MinConns = getEnvInt(p+"DB_MIN_CONNS", c.Storage.MinConns)
	c.Storage.Timeout = getEnvDuration(p+"DB_TIMEOUT", c.Storage.Timeout)
	c.Storage.AutoMigrate = getEnvBool(p+"AUTO_MIGRATE", c.Storage.AutoMigrate)

	c.Redis.URL = getEnv(p+"REDIS_URL", c.Redis.URL)
	c.Redis.Password = getEnv(p+"REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt(p+"REDIS_DB", c.Redis.DB)
	c.Redis.MaxRetries = getEnvInt(p+"REDIS_MAX_RETRIES", c.Redis.MaxRetries)
	c.Redis.PoolSize = getEnvInt(p+"REDIS_POOL_SIZE", c.Redis.PoolSize)

	c.S3.Endpoint = getEnv(p+"S3_ENDPOINT", c.S3.Endpoint)
	c.S3.Region = getEnv(p+"S3_REGION", c.S3.Region)
	c.S3.Bucket = getEnv(p+"S3_BUCKET", c.S3.Bucket)
	c.S3.AccessKey = getEnv(p+"S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getEnv(p+"S3_SECRET_KEY", c.S3.SecretKey)
	c.S3.UsePathStyle = getEnvBool(p+"S3_USE_PATH_STYLE", c.S3.UsePathStyle)

	// SECRET_KEY is honoured unprefixed for existing deployments
	c.Auth.SecretKey = getEnv("SECRET_KEY", c.Auth.SecretKey)
	c.Auth.SecretKey = getEnv(p+"SECRET_KEY", c.Auth.SecretKey)
	c.Auth.TokenTTL = getEnvDuration(p+"TOKEN_TTL", c.Auth.TokenTTL)

	c.RateLimit.Enabled = getEnvBool(p+"RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.Requests = getEnvInt(p+"RATE_LIMIT_REQUESTS", c.RateLimit.Requests)
	c.RateLimit.Window = getEnvDuration(p+"RATE_LIMIT_WINDOW", c.RateLimit.Window)
	c.RateLimit.Burst = getEnvInt(p+"RATE_LIMIT_BURST", c.RateLimit.Burst)
	c.RateLimit.MaxBuckets = getEnvInt(p+"RATE_LIMIT_MAX_BUCKETS", c.RateLimit.MaxBuckets)

	c.Kafka.Brokers = getEnvList(p+"KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.EventsTopic = getEnv(p+"KAFKA_EVENTS_TOPIC", c.Kafka.EventsTopic)
	c.Kafka.SMSTopic = getEnv(p+"KAFKA_SMS_TOPIC", c.Kafka.SMSTopic)
	c.Kafka.ClientID = getEnv(p+"KAFKA_CLIENT_ID", c.Kafka.ClientID)

	c.Janitor.Enabled = getEnvBool(p+"JANITOR_ENABLED", c.Janitor.Enabled)
	c.Janitor.Schedule = getEnv(p+"JANITOR_SCHEDULE", c.Janitor.Schedule)
	c.Janitor.PendingTTL = getEnvDuration(p+"PENDING_RELATION_TTL", c.Janitor.PendingTTL)

	c.Observability.LogLevel = getEnv(p+"LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.MetricsEnabled = getEnvBool(p+"METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool(p+"OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv(p+"OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv(p+"OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv(p+"OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool(p+"OTEL_INSECURE", c.Observability.OTelInsecure)
	c.Observability.OTelSampleRatio = getEnvFloat(p+"OTEL_SAMPLE_RATIO", c.Observability.OTelSampleRatio)
	c.Observability.OTelEnvironment = getEnv(p+"OTEL_ENVIRONMENT", c.Observability.OTelEnvironment)
	c.Observability.AuditFile = getEnv(p+"AUDIT_FILE", c.Observability.AuditFile)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Server.HealthPort == "" {
		errs = append(errs, errors.New("health port is required"))
	}
	if c.Server.Port != "" && c.Server.Port == c.Server.HealthPort {
		errs = append(errs, errors.New("server port and health port must be different"))
	}

	switch c.Storage.Driver {
	case postgres.DriverPostgres, postgres.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("invalid database driver: %s (must be %s or %s)",
			c.Storage.Driver, postgres.DriverPostgres, postgres.DriverSQLite))
	}
	if c.Storage.URL == "" {
		errs = append(errs, errors.New("database URL is required"))
	}

	if c.Auth.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("token TTL must be positive"))
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate limit requests and window must be positive"))
	}

	if c.Janitor.Enabled {
		if c.Janitor.Schedule == "" {
			errs = append(errs, errors.New("janitor schedule is required when the janitor is enabled"))
		}
		if c.Janitor.PendingTTL <= 0 {
			errs = append(errs, errors.New("pending relation TTL must be positive"))
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			errs = append(errs, errors.New("OpenTelemetry endpoint is required when OTel is enabled"))
		}
		if c.Observability.OTelServiceName == "" {
			errs = append(errs, errors.New("OpenTelemetry service name is required when OTel is enabled"))
		}
	}

	return errors.Join(errs...)
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
