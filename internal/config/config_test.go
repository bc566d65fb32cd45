package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9090
broker:
  type: kafka
  kafka:
    brokers: ["localhost:9092"]
    group_id: hookrelay
    dlq_topic: delivery_dlq
database:
  redis:
    host: localhost
    port: 6379
dispatch:
  default_webhook_url: https://discord.com/api/webhooks/1/abc
  source_overrides:
    - source_id: com.example.bank
      url: https://discord.com/api/webhooks/2/def
  rules:
    - name: alerts
      keywords: [outage]
      destination_urls: [https://discord.com/api/webhooks/3/ghi]
  dedupe:
    enabled: true
    content_hash: true
  quiet_hours:
    enabled: true
    start: "22:00"
    end: "07:00"
    days: [1, 7]
delivery:
  retry:
    initial_interval: 15s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeoutSeconds)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, "notification_events", cfg.Broker.Kafka.InputTopic)
	assert.Equal(t, "https://discord.com/api/webhooks/1/abc", cfg.Dispatch.DefaultWebhookURL)
	require.Len(t, cfg.Dispatch.SourceOverrides, 1)
	assert.Equal(t, "com.example.bank", cfg.Dispatch.SourceOverrides[0].SourceID)
	require.Len(t, cfg.Dispatch.Rules, 1)
	assert.Equal(t, "alerts", cfg.Dispatch.Rules[0].Name)
	assert.Equal(t, []string{"outage"}, cfg.Dispatch.Rules[0].Keywords)
	assert.Equal(t, []string{"https://discord.com/api/webhooks/3/ghi"}, cfg.Dispatch.Rules[0].DestinationURLs)
	assert.True(t, cfg.Dispatch.Dedupe.Enabled)
	assert.Equal(t, 60, cfg.Dispatch.Dedupe.WindowSeconds)
	assert.Equal(t, []int{1, 7}, cfg.Dispatch.QuietHours.Days)
	assert.True(t, cfg.Dispatch.Render.UseEmbed)
	assert.Equal(t, 1000, cfg.Dispatch.Render.MaxFieldLength)
	assert.Equal(t, 15*time.Second, cfg.Delivery.Retry.InitialInterval)
	assert.Equal(t, 5*time.Hour, cfg.Delivery.Retry.MaxInterval)
	assert.Equal(t, 10, cfg.Delivery.Retry.MaxAttempts)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateStatic(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080, ReadTimeoutSeconds: time.Second, WriteTimeoutSeconds: time.Second},
			Broker: BrokerConfig{Type: "none"},
			Delivery: DeliveryConfig{Retry: RetryConfig{
				InitialInterval: 10 * time.Second, MaxInterval: time.Minute, Multiplier: 2,
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "unknown broker", mutate: func(c *Config) { c.Broker.Type = "rabbitmq" }, wantErr: "broker.type"},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Broker.Type = "kafka" }, wantErr: "broker.kafka.brokers"},
		{name: "bad default url", mutate: func(c *Config) { c.Dispatch.DefaultWebhookURL = "ftp://x" }, wantErr: "dispatch.default_webhook_url"},
		{name: "override without source", mutate: func(c *Config) {
			c.Dispatch.SourceOverrides = []SourceOverride{{URL: "https://example.com/hook"}}
		}, wantErr: "source_id"},
		{name: "valid rule", mutate: func(c *Config) {
			c.Dispatch.Rules = []RoutingRuleConfig{{Name: "a", UseRegex: true, RegexPattern: "^ok$", DestinationURLs: []string{"https://example.com/a"}}}
		}},
		{name: "rule without name", mutate: func(c *Config) {
			c.Dispatch.Rules = []RoutingRuleConfig{{DestinationURLs: []string{"https://example.com/a"}}}
		}, wantErr: "dispatch.rules[0].name"},
		{name: "duplicate rule name", mutate: func(c *Config) {
			c.Dispatch.Rules = []RoutingRuleConfig{
				{Name: "a", DestinationURLs: []string{"https://example.com/a"}},
				{Name: "a", DestinationURLs: []string{"https://example.com/b"}},
			}
		}, wantErr: "dispatch.rules[1].name"},
		{name: "rule without destination", mutate: func(c *Config) {
			c.Dispatch.Rules = []RoutingRuleConfig{{Name: "a"}}
		}, wantErr: "dispatch.rules[0].destination_urls"},
		{name: "rule with bad destination", mutate: func(c *Config) {
			c.Dispatch.Rules = []RoutingRuleConfig{{Name: "a", DestinationURLs: []string{"not a url"}}}
		}, wantErr: "dispatch.rules[0].destination_urls[0]"},
		{name: "rule with bad regex", mutate: func(c *Config) {
			c.Dispatch.Rules = []RoutingRuleConfig{{Name: "a", UseRegex: true, RegexPattern: "(", DestinationURLs: []string{"https://example.com/a"}}}
		}, wantErr: "dispatch.rules[0].regex_pattern"},
		{name: "bad quiet start", mutate: func(c *Config) {
			c.Dispatch.QuietHours = QuietHoursConfig{Enabled: true, Start: "25:00", End: "07:00"}
		}, wantErr: "dispatch.quiet_hours.start"},
		{name: "bad quiet day", mutate: func(c *Config) {
			c.Dispatch.QuietHours = QuietHoursConfig{Enabled: true, Start: "22:00", End: "07:00", Days: []int{8}}
		}, wantErr: "dispatch.quiet_hours.days"},
		{name: "retry interval order", mutate: func(c *Config) {
			c.Delivery.Retry.MaxInterval = time.Second
		}, wantErr: "delivery.retry.max_interval"},
		{name: "zero multiplier", mutate: func(c *Config) { c.Delivery.Retry.Multiplier = 0 }, wantErr: "delivery.retry.multiplier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("22:30")
	require.NoError(t, err)
	assert.Equal(t, 22*60+30, m)

	_, err = ParseClock("7pm")
	assert.Error(t, err)
}
