package extension

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/xraph/cachehook"
)

// Store drivers understood by Config.Driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
)

// Config holds configuration for the cachehook extension and daemon.
// It can be set programmatically via ExtOption functions or loaded from a
// YAML file with Load.
type Config struct {
	// Config embeds the core engine configuration.
	cachehook.Config `json:",inline" yaml:",inline" mapstructure:",squash"`

	// Listen is the address the daemon's HTTP server binds to.
	Listen string `json:"listen" yaml:"listen" mapstructure:"listen"`

	// BasePath is the URL prefix for all admin routes (default: "/cachehook").
	BasePath string `json:"base_path" yaml:"base_path" mapstructure:"base_path"`

	// Driver selects the store backend. Every driver except memory needs
	// a database or KV store handed in with WithGroveDatabase or WithGroveKV.
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DisableMigrate skips schema migration in Init.
	DisableMigrate bool `json:"disable_migrate" yaml:"disable_migrate" mapstructure:"disable_migrate"`

	// ContentURL is the base URL of the WordPress REST API used to resolve
	// posts, terms and users. Empty leaves the engine without a content source.
	ContentURL string `json:"content_url" yaml:"content_url" mapstructure:"content_url"`

	Kafka KafkaConfig `json:"kafka" yaml:"kafka" mapstructure:"kafka"`
	Redis RedisConfig `json:"redis" yaml:"redis" mapstructure:"redis"`
}

// KafkaConfig enables the Kafka trigger source when Brokers and Topic are set.
type KafkaConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `json:"topic" yaml:"topic" mapstructure:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id" mapstructure:"group_id"`
}

// Enabled reports whether enough settings are present to consume.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 && k.Topic != "" }

// RedisConfig enables the Redis pub/sub trigger source when Addr and
// Channel are set.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
	Channel  string `json:"channel" yaml:"channel" mapstructure:"channel"`
}

// Enabled reports whether enough settings are present to subscribe.
func (r RedisConfig) Enabled() bool { return r.Addr != "" && r.Channel != "" }

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Config:   cachehook.DefaultConfig(),
		Listen:   ":8080",
		BasePath: "/cachehook",
		Driver:   DriverMemory,
	}
}

// Load reads a YAML config file on top of DefaultConfig. A .env file in the
// working directory is loaded first when present, and ${VAR} references in
// the YAML are expanded from the environment. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cachehook: read config: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return cfg, fmt.Errorf("cachehook: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ToOptions converts the embedded engine Config into cachehook.Option values.
func (c Config) ToOptions() []cachehook.Option {
	opts := []cachehook.Option{cachehook.WithBufferWindow(c.BufferWindow)}

	if len(c.AllowedEvents) > 0 {
		opts = append(opts, cachehook.WithAllowedEvents(c.AllowedEvents...))
	}
	if c.Concurrency > 0 {
		opts = append(opts, cachehook.WithConcurrency(c.Concurrency))
	}
	if c.PollInterval > 0 {
		opts = append(opts, cachehook.WithPollInterval(c.PollInterval))
	}
	if c.BatchSize > 0 {
		opts = append(opts, cachehook.WithBatchSize(c.BatchSize))
	}
	if c.RequestTimeout > 0 {
		opts = append(opts, cachehook.WithRequestTimeout(c.RequestTimeout))
	}
	if c.MaxRetries > 0 {
		opts = append(opts, cachehook.WithMaxRetries(c.MaxRetries))
	}
	if len(c.RetrySchedule) > 0 {
		opts = append(opts, cachehook.WithRetrySchedule(c.RetrySchedule))
	}
	if c.ShutdownTimeout > 0 {
		opts = append(opts, cachehook.WithShutdownTimeout(c.ShutdownTimeout))
	}

	return opts
}
