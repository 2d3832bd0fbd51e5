// Package config loads the analyzer's runtime configuration from a YAML
// file plus PKGRISK_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// GitHubConfig configures the repo-host fetcher.
type GitHubConfig struct {
	Token            string        `mapstructure:"token"`
	RateLimitThreshold int         `mapstructure:"rate_limit_threshold"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// LLMConfig configures the local qualitative-assessment orchestrator.
type LLMConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Parallel     bool          `mapstructure:"parallel"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxFilesSampled int         `mapstructure:"max_files_sampled"`
}

// QueueConfig configures the work-queue refresh and interleave behavior.
type QueueConfig struct {
	StaleThresholdDays int    `mapstructure:"stale_threshold_days"`
	NewRatio           int    `mapstructure:"new_ratio"`
	StaleRatio         int    `mapstructure:"stale_ratio"`
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"`
}

// DaemonConfig configures the continuous-run loop.
type DaemonConfig struct {
	ErrorBackoffBase time.Duration `mapstructure:"error_backoff_base"`
	ErrorBackoffMax  time.Duration `mapstructure:"error_backoff_max"`
	IdleSleep        time.Duration `mapstructure:"idle_sleep"`
}

// PublishConfig configures the git-based artifact publisher.
type PublishConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval int    `mapstructure:"interval"` // packages analyzed between publishes
	RepoDir  string `mapstructure:"repo_dir"`
	Remote   string `mapstructure:"remote"`
	Branch   string `mapstructure:"branch"`
}

// MetricsConfig configures the Prometheus metrics endpoint. The
// file-backed dashboard snapshot is written regardless of it.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_address"`
}

// TracingConfig configures the OTel tracer provider.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	configFile := os.Getenv("PKGRISK_CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/config.yaml"
	}
	v.SetConfigFile(configFile)

	v.SetEnvPrefix("PKGRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values, lifted from the
// reference daemon's constructor defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")

	v.SetDefault("github.rate_limit_threshold", 50)
	v.SetDefault("github.request_timeout", 30*time.Second)

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.model", "llama3.3:70b")
	v.SetDefault("llm.parallel", false)
	v.SetDefault("llm.request_timeout", 120*time.Second)
	v.SetDefault("llm.max_files_sampled", 15)

	v.SetDefault("queue.stale_threshold_days", 7)
	v.SetDefault("queue.new_ratio", 3)
	v.SetDefault("queue.stale_ratio", 1)
	v.SetDefault("queue.refresh_interval", time.Hour)

	v.SetDefault("daemon.error_backoff_base", 5*time.Second)
	v.SetDefault("daemon.error_backoff_max", 5*time.Minute)
	v.SetDefault("daemon.idle_sleep", 60*time.Second)

	v.SetDefault("publish.enabled", true)
	v.SetDefault("publish.interval", 50)
	v.SetDefault("publish.repo_dir", ".")
	v.SetDefault("publish.remote", "origin")
	v.SetDefault("publish.branch", "main")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_address", ":9090")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "pkgrisk-analyzer")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
