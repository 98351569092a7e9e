package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	QA     QAConfig     `yaml:"qa" mapstructure:"qa"`
	Sweep  SweepConfig  `yaml:"sweep" mapstructure:"sweep"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// QAConfig configures the evaluator and the artifact inspector.
type QAConfig struct {
	MinArtifactBytes int64  `yaml:"min_artifact_bytes" mapstructure:"min_artifact_bytes"`
	RequireReadme    bool   `yaml:"require_readme" mapstructure:"require_readme"`
	PassThreshold    int    `yaml:"pass_threshold" mapstructure:"pass_threshold"`
	ProbeTimeoutSecs int    `yaml:"probe_timeout_secs" mapstructure:"probe_timeout_secs"`
	VocabularyFile   string `yaml:"vocabulary_file" mapstructure:"vocabulary_file"`
}

// ProbeTimeout returns the remote probe timeout as a duration.
func (q QAConfig) ProbeTimeout() time.Duration {
	return time.Duration(q.ProbeTimeoutSecs) * time.Second
}

// SweepConfig configures batch evaluation.
type SweepConfig struct {
	MaxConcurrentProducts int `yaml:"max_concurrent_products" mapstructure:"max_concurrent_products"`
	DuplicateLimit        int `yaml:"duplicate_limit" mapstructure:"duplicate_limit"`
}

// ServerConfig configures the HTTP API.
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
	v.SetEnvPrefix("QAGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "qa-gate.db")
	v.SetDefault("qa.min_artifact_bytes", 1024)
	v.SetDefault("qa.require_readme", true)
	v.SetDefault("qa.pass_threshold", 80)
	v.SetDefault("qa.probe_timeout_secs", 8)
	v.SetDefault("sweep.max_concurrent_products", 5)
	v.SetDefault("sweep.duplicate_limit", 10)
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

// Validate checks the invariants commands rely on.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: store.driver must be sqlite or postgres (got %q)", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}
	if c.QA.PassThreshold < 0 || c.QA.PassThreshold > 100 {
		return eris.New("config: qa.pass_threshold must be between 0 and 100")
	}
	if c.Sweep.MaxConcurrentProducts < 1 || c.Sweep.MaxConcurrentProducts > 50 {
		return eris.New("config: sweep.max_concurrent_products must be between 1 and 50")
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
