// Package config loads application configuration and initializes logging.
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
	Mermaid MermaidConfig `yaml:"mermaid" mapstructure:"mermaid"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Zonal   ZonalConfig   `yaml:"zonal" mapstructure:"zonal"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// MermaidConfig holds MERMAID API settings.
type MermaidConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Token    string `yaml:"token" mapstructure:"token"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// CatalogConfig holds STAC catalog settings.
type CatalogConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ZonalConfig holds zonal-statistics service settings.
type ZonalConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	BufferMeters int    `yaml:"buffer_meters" mapstructure:"buffer_meters"`
}

// ExtractConfig configures the extraction pipeline.
type ExtractConfig struct {
	Concurrency         int      `yaml:"concurrency" mapstructure:"concurrency"`
	ProtocolConcurrency int      `yaml:"protocol_concurrency" mapstructure:"protocol_concurrency"`
	DefaultStats        []string `yaml:"default_stats" mapstructure:"default_stats"`
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
	v.SetEnvPrefix("COVARIATES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("mermaid.base_url", "https://api.datamermaid.org/v1")
	v.SetDefault("mermaid.token", "")
	v.SetDefault("mermaid.page_size", 300)
	v.SetDefault("catalog.base_url", "https://stac.datamermaid.org")
	v.SetDefault("zonal.base_url", "https://zonal.datamermaid.org")
	v.SetDefault("zonal.buffer_meters", 1000)
	v.SetDefault("extract.concurrency", 10)
	v.SetDefault("extract.protocol_concurrency", 5)
	v.SetDefault("extract.default_stats", []string{"mean", "min", "max"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env vars and defaults may be enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger configures the global zap logger.
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
