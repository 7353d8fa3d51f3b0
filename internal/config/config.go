package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/food-for-zot/grocer/internal/scrape"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	PriceAPI  PriceAPIConfig  `yaml:"price_api" mapstructure:"price_api"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the document-store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ScrapeConfig configures the storefront extractors. An empty
// Retailers list means the builtin table.
type ScrapeConfig struct {
	Retailers      []scrape.Retailer `yaml:"retailers" mapstructure:"retailers"`
	RequestsPerSec float64           `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int               `yaml:"burst" mapstructure:"burst"`
}

// PriceAPIConfig configures the structured pricing API source.
type PriceAPIConfig struct {
	Key      string   `yaml:"key" mapstructure:"key"`
	BaseURL  string   `yaml:"base_url" mapstructure:"base_url"`
	Stores   []string `yaml:"stores" mapstructure:"stores"`
	Currency string   `yaml:"currency" mapstructure:"currency"`
}

// AnthropicConfig holds generative-model settings for ranking and
// recipe generation.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AggregateConfig configures the source fan-out.
type AggregateConfig struct {
	PerSourceTimeoutSecs int    `yaml:"per_source_timeout_secs" mapstructure:"per_source_timeout_secs"`
	MaxConcurrent        int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	Fallback             string `yaml:"fallback" mapstructure:"fallback"` // placeholder | omit | last_known_good
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GROCER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only surfaces keys viper already knows about.
	// Secrets carry no default, so bind them explicitly or env-only
	// values never reach Unmarshal.
	for _, key := range []string{"anthropic.key", "price_api.key", "price_api.stores"} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "grocer.db")
	v.SetDefault("scrape.requests_per_sec", 2.0)
	v.SetDefault("scrape.burst", 4)
	v.SetDefault("price_api.base_url", "https://api.grocerypricing.io")
	v.SetDefault("price_api.currency", "Default")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("aggregate.per_source_timeout_secs", 15)
	v.SetDefault("aggregate.max_concurrent", 4)
	v.SetDefault("aggregate.fallback", "placeholder")

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
