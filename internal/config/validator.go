package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateExchange(cfg.Exchange); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateExchange(cfg ExchangeConfig) error {
	if cfg.Endpoint == "" {
		return &ValidationError{
			Field:   "exchange.endpoint",
			Message: "exchange endpoint is required",
		}
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{
			Field:   "exchange.endpoint",
			Message: fmt.Sprintf("exchange endpoint must be an absolute URL, got %q", cfg.Endpoint),
		}
	}

	if cfg.SenderID == "" {
		return &ValidationError{
			Field:   "exchange.sender_id",
			Message: "sender identity is required",
		}
	}

	if cfg.Retry.MaxAttempts < 1 {
		return &ValidationError{
			Field:   "exchange.retry.max_attempts",
			Message: "retry attempts must be at least 1",
		}
	}

	if cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "exchange.retry.max_interval",
			Message: "max interval must not be below initial interval",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "postgres host is required",
		}
	}

	if cfg.Postgres.Port < 1 || cfg.Postgres.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Postgres.Port),
		}
	}

	if cfg.Postgres.User == "" || cfg.Postgres.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres",
			Message: "postgres user and dbname are required",
		}
	}

	if cfg.Redis.Host != "" && (cfg.Redis.Port < 1 || cfg.Redis.Port > 65535) {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Redis.Port),
		}
	}

	if cfg.MongoDB.URI != "" && !strings.HasPrefix(cfg.MongoDB.URI, "mongodb://") && !strings.HasPrefix(cfg.MongoDB.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "mongodb uri must start with mongodb:// or mongodb+srv://",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Type == "" || cfg.Type == "none" {
		return nil // broker is optional; lifecycle events are disabled without it
	}

	if cfg.Type != "kafka" {
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unsupported broker type %q", cfg.Type),
		}
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one kafka broker is required",
		}
	}

	return nil
}
