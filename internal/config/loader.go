package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"claimgate/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyDefaults(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("exchange.endpoint", "EXCHANGE_ENDPOINT")
	viper.BindEnv("exchange.sender_id", "EXCHANGE_SENDER_ID")
	viper.BindEnv("exchange.sender_system", "EXCHANGE_SENDER_SYSTEM")
	viper.BindEnv("exchange.request_timeout", "EXCHANGE_REQUEST_TIMEOUT")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.lifecycle_topic", "BROKER_KAFKA_LIFECYCLE_TOPIC")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.otlp_endpoint", "TRACING_OTLP_ENDPOINT")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLPEndpoint = otlpEndpoint
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Exchange.RequestTimeout <= 0 {
		cfg.Exchange.RequestTimeout = constants.DefaultRequestTimeout
	}
	if cfg.Exchange.Retry.MaxAttempts <= 0 {
		cfg.Exchange.Retry.MaxAttempts = constants.DefaultRetryAttempts
	}
	if cfg.Exchange.Retry.InitialInterval <= 0 {
		cfg.Exchange.Retry.InitialInterval = constants.DefaultRetryBaseDelay
	}
	if cfg.Exchange.Retry.MaxInterval <= 0 {
		cfg.Exchange.Retry.MaxInterval = constants.DefaultRetryMaxDelay
	}
	if cfg.Exchange.Retry.Multiplier <= 0 {
		cfg.Exchange.Retry.Multiplier = 2.0
	}
	if cfg.Polling.FocusLockTTL <= 0 {
		cfg.Polling.FocusLockTTL = constants.DefaultFocusLockTTL
	}
	if cfg.Polling.MaxConcurrent <= 0 {
		cfg.Polling.MaxConcurrent = 4
	}
	if cfg.Polling.PendingSweepAge <= 0 {
		cfg.Polling.PendingSweepAge = constants.DefaultPendingSweepAge
	}
	if cfg.Eligibility.CacheTTL <= 0 {
		cfg.Eligibility.CacheTTL = constants.DefaultEligibilityCacheTTL
	}
	if cfg.Broker.Kafka.LifecycleTopic == "" {
		cfg.Broker.Kafka.LifecycleTopic = constants.DefaultLifecycleTopic
	}
}
