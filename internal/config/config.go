package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Exchange       ExchangeConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Polling        PollingConfig
	Eligibility    EligibilityConfig
	Dispositions   DispositionConfig
	CircuitBreaker CircuitBreakerConfig
	RateLimit      RateLimitConfig
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

// ExchangeConfig describes the single clearinghouse endpoint and the retry
// policy applied to every envelope sent to it.
type ExchangeConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	SenderID       string        `mapstructure:"sender_id"`
	SenderSystem   string        `mapstructure:"sender_system"`
	ReceiverID     string        `mapstructure:"receiver_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Retry          RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	LifecycleTopic string   `mapstructure:"lifecycle_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PollingConfig bounds the poll/correlation engine.
type PollingConfig struct {
	FocusLockTTL    time.Duration `mapstructure:"focus_lock_ttl"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	PendingSweepAge time.Duration `mapstructure:"pending_sweep_age"`
}

type EligibilityConfig struct {
	CacheEnabled bool          `mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// DispositionConfig holds optional CEL expressions classifying a payload
// disposition into approved/denied/queued. Empty entries fall back to the
// compiled defaults.
type DispositionConfig struct {
	Approved string `mapstructure:"approved"`
	Denied   string `mapstructure:"denied"`
	Queued   string `mapstructure:"queued"`
}

type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}
