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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings used when a tenant has no
// provider rows of its own.
type AnthropicConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	DefaultModel string `yaml:"default_model" mapstructure:"default_model"`
}

// OpenAIConfig holds settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	DefaultModel string `yaml:"default_model" mapstructure:"default_model"`
}

// NotionConfig holds Notion API credentials and the suggestion review
// database ID.
type NotionConfig struct {
	Token        string `yaml:"token" mapstructure:"token"`
	SuggestionDB string `yaml:"suggestion_db" mapstructure:"suggestion_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings for the CRM
// contact directory.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// PipelineConfig configures per-run behavior.
type PipelineConfig struct {
	StageTimeoutSecs  int `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
	AITimeoutSecs     int `yaml:"ai_timeout_secs" mapstructure:"ai_timeout_secs"`
	ConfigCacheTTLMin int `yaml:"config_cache_ttl_min" mapstructure:"config_cache_ttl_min"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentItems int `yaml:"max_concurrent_items" mapstructure:"max_concurrent_items"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "triage.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_items", 5)
	v.SetDefault("pipeline.stage_timeout_secs", 30)
	v.SetDefault("pipeline.ai_timeout_secs", 60)
	v.SetDefault("pipeline.config_cache_ttl_min", 5)
	v.SetDefault("anthropic.default_model", "claude-3-5-haiku-latest")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.default_model", "gpt-4o-mini")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")

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

// Validate checks the configuration for the given run mode. Modes map
// to CLI commands: "process", "serve", "batch", "contacts".
func (c *Config) Validate(mode string) error {
	var missing []string

	check := func(ok bool, msg string) {
		if !ok {
			missing = append(missing, msg)
		}
	}

	switch mode {
	case "process", "batch", "contacts":
		check(c.Store.DatabaseURL != "", "store.database_url is required")
	case "serve":
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		check(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	check(c.Batch.MaxConcurrentItems >= 1 && c.Batch.MaxConcurrentItems <= 50,
		"batch.max_concurrent_items must be between 1 and 50")
	check(c.Pipeline.AITimeoutSecs > 0, "pipeline.ai_timeout_secs must be > 0")
	check(c.Pipeline.ConfigCacheTTLMin > 0, "pipeline.config_cache_ttl_min must be > 0")

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
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
