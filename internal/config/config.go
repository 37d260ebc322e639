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
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Source SourceConfig `yaml:"source" mapstructure:"source"`
	Retry  RetryConfig  `yaml:"retry" mapstructure:"retry"`
	Pacing PacingConfig `yaml:"pacing" mapstructure:"pacing"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// OutputConfig configures the JSONL output file.
type OutputConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SourceConfig configures the registry result view.
type SourceConfig struct {
	URL          string `yaml:"url" mapstructure:"url"`
	RowSelector  string `yaml:"row_selector" mapstructure:"row_selector"`
	NextSelector string `yaml:"next_selector" mapstructure:"next_selector"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-request timeout as a duration.
func (c SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetryConfig configures the page-row fetch retry.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	WaitSecs    int `yaml:"wait_secs" mapstructure:"wait_secs"`
}

// Wait returns the inter-attempt wait as a duration.
func (c RetryConfig) Wait() time.Duration {
	return time.Duration(c.WaitSecs) * time.Second
}

// PacingConfig bounds the randomized wait between page advances.
type PacingConfig struct {
	MinSecs float64 `yaml:"min_secs" mapstructure:"min_secs"`
	MaxSecs float64 `yaml:"max_secs" mapstructure:"max_secs"`
}

// Min returns the lower pacing bound as a duration.
func (c PacingConfig) Min() time.Duration {
	return time.Duration(c.MinSecs * float64(time.Second))
}

// Max returns the upper pacing bound as a duration.
func (c PacingConfig) Max() time.Duration {
	return time.Duration(c.MaxSecs * float64(time.Second))
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REGISTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Empty defaults register keys so env-only values unmarshal.
	v.SetDefault("output.path", "output.jsonl")
	v.SetDefault("source.url", "")
	v.SetDefault("source.user_agent", "")
	v.SetDefault("source.row_selector", "table tbody tr")
	v.SetDefault("source.next_selector", "a[rel=next], .pagination a.next")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.wait_secs", 2)
	v.SetDefault("pacing.min_secs", 2.0)
	v.SetDefault("pacing.max_secs", 4.0)
	v.SetDefault("store.path", "runs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

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

// InitLogger initializes the global zap logger. When cfg.File is set the
// logger also tees to that file, matching the operator workflow of watching
// the console while keeping a durable log.
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

	if cfg.File != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
		zapCfg.ErrorOutputPaths = append(zapCfg.ErrorOutputPaths, cfg.File)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
