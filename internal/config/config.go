// Package config loads application configuration from config.yaml, MINBAK_*
// environment variables, and built-in defaults, and owns logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// RegistryConfig holds building-registry API settings.
type RegistryConfig struct {
	ServiceKey  string  `yaml:"service_key" mapstructure:"service_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
	MaxPages    int     `yaml:"max_pages" mapstructure:"max_pages"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RulesConfig points at an optional jurisdiction threshold override file.
type RulesConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	OutPrefix   string `yaml:"out_prefix" mapstructure:"out_prefix"`
}

// StoreConfig configures the evaluation audit log.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP evaluation endpoint.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MINBAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. The empty service-key default also registers the key so the
	// MINBAK_REGISTRY_SERVICE_KEY environment variable is picked up.
	v.SetDefault("registry.service_key", "")
	v.SetDefault("registry.base_url", "https://apis.data.go.kr/1613000/BldRgstHubService")
	v.SetDefault("registry.page_size", 100)
	v.SetDefault("registry.max_pages", 200)
	v.SetDefault("registry.timeout_secs", 15)
	v.SetDefault("registry.rate_limit", 10.0)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.out_prefix", "minbak_result")
	v.SetDefault("store.path", "minbak.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields the given mode depends on.
func (c *Config) Validate(mode string) error {
	var problems []string

	requireKey := func() {
		if c.Registry.ServiceKey == "" {
			problems = append(problems, "registry.service_key is required (MINBAK_REGISTRY_SERVICE_KEY)")
		}
	}

	switch mode {
	case "check", "batch":
		requireKey()
	case "serve":
		requireKey()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 32 {
		problems = append(problems, "batch.concurrency must be between 1 and 32")
	}
	if c.Registry.PageSize < 1 {
		problems = append(problems, "registry.page_size must be >= 1")
	}
	if c.Registry.MaxPages < 1 {
		problems = append(problems, "registry.max_pages must be >= 1")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
