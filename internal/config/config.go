package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Dispatch       DispatchConfig
	Delivery       DeliveryConfig
	Management     ManagementConfig
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
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
	Brokers           []string    `mapstructure:"brokers"`
	GroupID           string      `mapstructure:"group_id"`
	InputTopic        string      `mapstructure:"input_topic"`
	ConfigUpdateTopic string      `mapstructure:"config_update_topic"`
	DLQTopic          string      `mapstructure:"dlq_topic"`
	Retry             RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DispatchConfig is the file-backed part of the pipeline settings. Rules
// listed here are always evaluated first; rules stored in PostgreSQL are
// appended after them on every reload.
type DispatchConfig struct {
	DefaultWebhookURL    string              `mapstructure:"default_webhook_url"`
	SourceOverrides      []SourceOverride    `mapstructure:"source_overrides"`
	Rules                []RoutingRuleConfig `mapstructure:"rules"`
	Filter               FilterConfig        `mapstructure:"filter"`
	Dedupe               DedupeConfig        `mapstructure:"dedupe"`
	RateLimit            SourceRateConfig    `mapstructure:"rate_limit"`
	QuietHours           QuietHoursConfig    `mapstructure:"quiet_hours"`
	Aggregate            AggregateConfig     `mapstructure:"aggregate"`
	Render               RenderConfig        `mapstructure:"render"`
	RulesReload          ReloadConfig        `mapstructure:"rules_reload"`
	SweepIntervalSeconds int                 `mapstructure:"sweep_interval_seconds"`
}

type SourceOverride struct {
	SourceID string `mapstructure:"source_id"`
	URL      string `mapstructure:"url"`
}

type RoutingRuleConfig struct {
	Name            string   `mapstructure:"name"`
	SourceIDs       []string `mapstructure:"source_ids"`
	Keywords        []string `mapstructure:"keywords"`
	UseRegex        bool     `mapstructure:"use_regex"`
	RegexPattern    string   `mapstructure:"regex_pattern"`
	DestinationURLs []string `mapstructure:"destination_urls"`
	Disabled        bool     `mapstructure:"disabled"`
}

type FilterConfig struct {
	ExcludeSummary bool     `mapstructure:"exclude_summary"`
	ChannelIDs     []string `mapstructure:"channel_ids"`
	MinImportance  int      `mapstructure:"min_importance"`
	Keywords       []string `mapstructure:"keywords"`
	UseRegex       bool     `mapstructure:"use_regex"`
	RegexPattern   string   `mapstructure:"regex_pattern"`
	Condition      string   `mapstructure:"condition"`
}

type DedupeConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	ContentHash   bool `mapstructure:"content_hash"`
	TitleLatest   bool `mapstructure:"title_latest"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

type SourceRateConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxPerWindow  int  `mapstructure:"max_per_window"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

type QuietHoursConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Start    string `mapstructure:"start"` // "HH:MM"
	End      string `mapstructure:"end"`   // "HH:MM"
	Days     []int  `mapstructure:"days"`  // 1=Sunday ... 7=Saturday
	Location string `mapstructure:"location"`
}

type AggregateConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

type RenderConfig struct {
	UseEmbed       bool   `mapstructure:"use_embed"`
	SummaryContent bool   `mapstructure:"summary_content"`
	Template       string `mapstructure:"template"`
	MaxFieldLength int    `mapstructure:"max_field_length"`
	DeviceName     string `mapstructure:"device_name"`
	TimeFormat     string `mapstructure:"time_format"`
	Attachments    bool   `mapstructure:"attachments"`
}

type ReloadConfig struct {
	IntervalSeconds       int `mapstructure:"interval_seconds"`
	JitterMaxMilliseconds int `mapstructure:"jitter_max_milliseconds"`
}

type DeliveryConfig struct {
	Retry               RetryConfig   `mapstructure:"retry"`
	HTTPTimeout         time.Duration `mapstructure:"http_timeout"`
	RatePerSecond       float64       `mapstructure:"rate_per_second"`
	Burst               int           `mapstructure:"burst"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	RecordAttempts      bool          `mapstructure:"record_attempts"`
	UserAgent           string        `mapstructure:"user_agent"`
	MaxResponseBodySize int64         `mapstructure:"max_response_body_size"`
}

type ManagementConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
