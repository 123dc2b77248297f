package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application settings. Everything is explicit; there is no
// ambient default-credential lookup in the core packages.
type Config struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Depth           string        `mapstructure:"depth"`
	ServerAddr      string        `mapstructure:"server_addr"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollMaxAttempts int           `mapstructure:"poll_max_attempts"`
}

// Load reads configuration from an optional file plus the environment.
// NEWSGRADER_* variables override file values; TAVILY_API_KEY is honored as
// the credential for compatibility with the agent's own tooling.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("depth", "mini")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("http_timeout", time.Minute)
	v.SetDefault("cache_ttl", time.Hour)
	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("poll_max_attempts", 60)

	v.SetEnvPrefix("NEWSGRADER")
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", "NEWSGRADER_API_KEY", "TAVILY_API_KEY"); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
