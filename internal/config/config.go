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
	Mail       MailConfig       `yaml:"mail" mapstructure:"mail"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MailConfig configures the email source.
type MailConfig struct {
	Source   string `yaml:"source" mapstructure:"source"`
	Server   string `yaml:"server" mapstructure:"server"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Mailbox  string `yaml:"mailbox" mapstructure:"mailbox"`
	MboxPath string `yaml:"mbox_path" mapstructure:"mbox_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key                 string `yaml:"key" mapstructure:"key"`
	Model               string `yaml:"model" mapstructure:"model"`
	MaxBatchSize        int    `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	NoBatch             bool   `yaml:"no_batch" mapstructure:"no_batch"`
	SmallBatchThreshold int    `yaml:"small_batch_threshold" mapstructure:"small_batch_threshold"`
}

// ExtractionConfig configures pipeline behavior.
type ExtractionConfig struct {
	MaxEmails      int     `yaml:"max_emails" mapstructure:"max_emails"`
	SinceDays      int     `yaml:"since_days" mapstructure:"since_days"`
	SkipClassify   bool    `yaml:"skip_classify" mapstructure:"skip_classify"`
	MinConfidence  float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	MaxConcurrency int     `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// ServerConfig configures the read-only HTTP API.
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
	v.SetEnvPrefix("PRCONTACTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "pr_contacts.db")
	v.SetDefault("mail.source", "imap")
	v.SetDefault("mail.mailbox", "INBOX")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_batch_size", 100)
	v.SetDefault("anthropic.small_batch_threshold", 3)
	v.SetDefault("extraction.max_emails", 500)
	v.SetDefault("extraction.since_days", 30)
	v.SetDefault("extraction.min_confidence", 0.8)
	v.SetDefault("extraction.max_concurrency", 5)

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

// Validate checks that the configuration required for the given command mode
// is present. Modes: "extract", "serve".
func (c *Config) Validate(mode string) error {
	var missing []string

	check := func(val, name string) {
		if val == "" {
			missing = append(missing, name+" is required")
		}
	}

	switch mode {
	case "extract":
		check(c.Store.DatabaseURL, "store.database_url")
		switch c.Mail.Source {
		case "imap":
			check(c.Mail.Server, "mail.server")
			check(c.Mail.Username, "mail.username")
			check(c.Mail.Password, "mail.password")
		case "mbox":
			check(c.Mail.MboxPath, "mail.mbox_path")
		default:
			missing = append(missing, "mail.source must be imap or mbox")
		}
		if !c.Extraction.SkipClassify {
			check(c.Anthropic.Key, "anthropic.key")
		}
	case "serve":
		check(c.Store.DatabaseURL, "store.database_url")
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Extraction.MaxConcurrency < 1 || c.Extraction.MaxConcurrency > 50 {
		missing = append(missing, "extraction.max_concurrency must be between 1 and 50")
	}
	if c.Extraction.MinConfidence < 0 || c.Extraction.MinConfidence > 1 {
		missing = append(missing, "extraction.min_confidence must be between 0 and 1")
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
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
