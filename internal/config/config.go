// Package config reads service settings from defaults, an optional YAML file
// and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"PartsHub/internal/ikro"
	"PartsHub/internal/notus"
)

// EnvConfigFile names the environment variable pointing at a YAML file.
const EnvConfigFile = "CONFIG_FILE"

type Config struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	MappingsDir string `mapstructure:"mappings_dir"`
	StaticDir   string `mapstructure:"static_dir"`

	IkroBaseURL     string        `mapstructure:"ikro_base_url"`
	IkroPageSize    int           `mapstructure:"ikro_page_size"`
	NotusURL        string        `mapstructure:"notus_url"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`

	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsToken   string `mapstructure:"metrics_token"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("log_level", "info")

	v.SetDefault("mappings_dir", "./mappings")
	v.SetDefault("static_dir", "")

	v.SetDefault("ikro_base_url", ikro.DefaultBaseURL)
	v.SetDefault("ikro_page_size", ikro.DefaultPageSize)
	v.SetDefault("notus_url", notus.DefaultURL)
	v.SetDefault("upstream_timeout", "30s")

	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_token", "")
}

// Load builds the configuration. The file named by CONFIG_FILE is optional;
// when set it must exist and parse.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv(EnvConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.IkroPageSize <= 0 {
		return nil, fmt.Errorf("ikro_page_size must be positive, got %d", cfg.IkroPageSize)
	}
	if cfg.UpstreamTimeout < 0 {
		return nil, fmt.Errorf("upstream_timeout must not be negative, got %s", cfg.UpstreamTimeout)
	}

	return &cfg, nil
}
