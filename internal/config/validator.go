package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
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

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateDispatch(cfg.Dispatch); err != nil {
		errors = append(errors, err)
	}

	if err := validateRetry("delivery.retry", cfg.Delivery.Retry); err != nil {
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

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "":
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	case "kafka":
		return validateKafka(cfg.Kafka)
	case "none":
		return nil
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka, none)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	return validateRetry("broker.kafka.retry", cfg.Retry)
}

func validateRetry(prefix string, cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{
			Field:   prefix + ".max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.InitialInterval < 0 {
		return &ValidationError{
			Field:   prefix + ".initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.MaxInterval < 0 {
		return &ValidationError{
			Field:   prefix + ".max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   prefix + ".max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{
			Field:   prefix + ".multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	return nil
}

func validateDispatch(cfg DispatchConfig) error {
	if cfg.DefaultWebhookURL != "" {
		if err := validateWebhookURL("dispatch.default_webhook_url", cfg.DefaultWebhookURL); err != nil {
			return err
		}
	}

	for i, o := range cfg.SourceOverrides {
		if strings.TrimSpace(o.SourceID) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("dispatch.source_overrides[%d].source_id", i),
				Message: "source_id is required",
			}
		}
		if err := validateWebhookURL(fmt.Sprintf("dispatch.source_overrides[%d].url", i), o.URL); err != nil {
			return err
		}
	}

	if err := validateRules(cfg.Rules); err != nil {
		return err
	}

	if cfg.Dedupe.WindowSeconds < 0 {
		return &ValidationError{
			Field:   "dispatch.dedupe.window_seconds",
			Message: "window must be non-negative",
		}
	}

	if cfg.RateLimit.MaxPerWindow < 0 || cfg.RateLimit.WindowSeconds < 0 {
		return &ValidationError{
			Field:   "dispatch.rate_limit",
			Message: "max_per_window and window_seconds must be non-negative",
		}
	}

	if cfg.QuietHours.Enabled {
		if err := validateQuietHours(cfg.QuietHours); err != nil {
			return err
		}
	}

	if cfg.Render.MaxFieldLength < 0 {
		return &ValidationError{
			Field:   "dispatch.render.max_field_length",
			Message: "max_field_length must be non-negative",
		}
	}

	return nil
}

func validateRules(rules []RoutingRuleConfig) error {
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		field := fmt.Sprintf("dispatch.rules[%d]", i)
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return &ValidationError{Field: field + ".name", Message: "name is required"}
		}
		if seen[name] {
			return &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate rule name %q", name)}
		}
		seen[name] = true

		if len(r.DestinationURLs) == 0 {
			return &ValidationError{Field: field + ".destination_urls", Message: "at least one destination is required"}
		}
		for j, u := range r.DestinationURLs {
			if err := validateWebhookURL(fmt.Sprintf("%s.destination_urls[%d]", field, j), u); err != nil {
				return err
			}
		}
		if r.UseRegex {
			if _, err := regexp.Compile(r.RegexPattern); err != nil {
				return &ValidationError{Field: field + ".regex_pattern", Message: err.Error()}
			}
		}
	}
	return nil
}

func validateQuietHours(cfg QuietHoursConfig) error {
	if _, err := ParseClock(cfg.Start); err != nil {
		return &ValidationError{Field: "dispatch.quiet_hours.start", Message: err.Error()}
	}
	if _, err := ParseClock(cfg.End); err != nil {
		return &ValidationError{Field: "dispatch.quiet_hours.end", Message: err.Error()}
	}
	for _, d := range cfg.Days {
		if d < 1 || d > 7 {
			return &ValidationError{
				Field:   "dispatch.quiet_hours.days",
				Message: fmt.Sprintf("day must be between 1 (Sunday) and 7 (Saturday), got %d", d),
			}
		}
	}
	if cfg.Location != "" {
		if _, err := time.LoadLocation(cfg.Location); err != nil {
			return &ValidationError{
				Field:   "dispatch.quiet_hours.location",
				Message: fmt.Sprintf("unknown location %q", cfg.Location),
			}
		}
	}
	return nil
}

func validateWebhookURL(field, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid webhook URL: %q", raw),
		}
	}
	return nil
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("time must be HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
