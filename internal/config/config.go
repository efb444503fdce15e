package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/optionschain/internal/chain"
)

type Config struct {
	AlphaVantage AlphaVantageConfig `mapstructure:"alphavantage"`
	Yahoo        YahooConfig        `mapstructure:"yahoo"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Aggregate    AggregateConfig    `mapstructure:"aggregate"`
	Output       OutputConfig       `mapstructure:"output"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Notify       NotifyConfig       `mapstructure:"notify"`
	Server       ServerConfig       `mapstructure:"server"`
}

type AlphaVantageConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	APIKey        string  `mapstructure:"api_key"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

type YahooConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	UserAgent     string  `mapstructure:"user_agent"`
}

type HTTPConfig struct {
	TimeoutSec   int `mapstructure:"timeout_sec"`
	RetryCount   int `mapstructure:"retry_count"`
	RetryDelayMS int `mapstructure:"retry_delay_ms"`
}

func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c HTTPConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

type AggregateConfig struct {
	RequireAllSources bool `mapstructure:"require_all_sources"`
	Concurrent        bool `mapstructure:"concurrent"`
	TimeoutSec        int  `mapstructure:"timeout_sec"`
}

// Timeout bounds one adapter fetch, across all of its requests.
func (c AggregateConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

type OutputConfig struct {
	Directory          string `mapstructure:"directory"`
	EarliestDirectory  string `mapstructure:"earliest_directory"`
	EarliestFile       string `mapstructure:"earliest_file"`
	WriteEmptyEarliest bool   `mapstructure:"write_empty_earliest"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Server   string `mapstructure:"server"`
	Topic    string `mapstructure:"topic"`
	Priority string `mapstructure:"priority"`
	Tags     string `mapstructure:"tags"`
	Token    string `mapstructure:"token"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// Load reads the configuration needed to fetch from the providers.
func Load(configPath string) (*Config, error) {
	cfg, err := read(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadOffline is Load without the provider credential check, for commands
// that only work on persisted files.
func LoadOffline(configPath string) (*Config, error) {
	cfg, err := read(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateOffline(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func read(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("alphavantage.base_url", "https://www.alphavantage.co/query")
	v.SetDefault("alphavantage.rate_per_second", 1)
	v.SetDefault("yahoo.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("yahoo.rate_per_second", 4)
	v.SetDefault("yahoo.user_agent", "Mozilla/5.0 (compatible; optionschain/1.0)")
	v.SetDefault("http.timeout_sec", 30)
	v.SetDefault("http.retry_count", 0)
	v.SetDefault("http.retry_delay_ms", 500)
	v.SetDefault("aggregate.require_all_sources", true)
	v.SetDefault("aggregate.concurrent", true)
	v.SetDefault("aggregate.timeout_sec", 120)
	v.SetDefault("output.directory", ".")
	v.SetDefault("output.earliest_directory", ".")
	v.SetDefault("output.earliest_file", "earliest_expiring_contracts.csv")
	v.SetDefault("output.write_empty_earliest", false)
	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.tags", "chart_with_upwards_trend")
	v.SetDefault("server.port", "8080")

	// Environment variable support
	v.SetEnvPrefix("OPTIONSCHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested keys to env vars
	_ = v.BindEnv("alphavantage.api_key", "ALPHAVANTAGE_API_KEY", "OPTIONSCHAIN_ALPHAVANTAGE_API_KEY")
	_ = v.BindEnv("notify.topic", "OPTIONSCHAIN_NOTIFY_TOPIC", "NTFY_TOPIC")
	_ = v.BindEnv("notify.token", "OPTIONSCHAIN_NOTIFY_TOKEN", "NTFY_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks everything the fetch path needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AlphaVantage.APIKey) == "" {
		return fmt.Errorf("alphavantage: %w (set ALPHAVANTAGE_API_KEY env var)", chain.ErrMissingAPIKey)
	}
	return c.ValidateOffline()
}

func (c *Config) ValidateOffline() error {
	if c.HTTP.TimeoutSec < 1 {
		return fmt.Errorf("http.timeout_sec must be >= 1")
	}
	if c.HTTP.RetryCount < 0 {
		return fmt.Errorf("http.retry_count must be >= 0")
	}
	if c.Aggregate.TimeoutSec < 1 {
		return fmt.Errorf("aggregate.timeout_sec must be >= 1")
	}
	if c.AlphaVantage.RatePerSecond <= 0 || c.Yahoo.RatePerSecond <= 0 {
		return fmt.Errorf("rate_per_second must be > 0")
	}
	if c.Output.Directory == "" || c.Output.EarliestDirectory == "" || c.Output.EarliestFile == "" {
		return fmt.Errorf("output directories and earliest_file must not be empty")
	}
	if c.Notify.Enabled && c.Notify.Topic == "" {
		return fmt.Errorf("notify.topic is required when notify.enabled=true")
	}
	return nil
}
