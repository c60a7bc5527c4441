package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values used when the config file leaves a field empty
const (
	DefaultDatabaseDriver   = "sqlite3"
	DefaultDatabaseDSN      = "data/english_bot.db"
	DefaultSystemDir        = "data/wordlists"
	DefaultWordlist         = "3"
	DefaultDictionaryPath   = "data/ecdict/ecdict.db"
	DefaultFallbackProvider = "openai"
	DefaultFallbackBaseURL  = "http://localhost:11434/v1"
	DefaultFallbackModel    = "qwen2.5:7b"
	DefaultPromptTemplate   = "翻译 %s"
	DefaultIntervalMin      = 30
	DefaultIntervalMax      = 120
	DefaultMaxUploadBytes   = 10 * 1024 * 1024
)

// Config holds the application's configuration.
type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`

	Database struct {
		Driver string `yaml:"driver"` // "sqlite3" or "postgres"
		DSN    string `yaml:"dsn"`    // file path for sqlite3, URL for postgres
	} `yaml:"database"`

	Wordlists struct {
		SystemDir string `yaml:"system_dir"`
		UserDir   string `yaml:"user_dir"`
		Default   string `yaml:"default"`
	} `yaml:"wordlists"`

	Dictionary struct {
		Path string `yaml:"path"`
	} `yaml:"dictionary"`

	Fallback struct {
		Provider       string `yaml:"provider"` // "openai", "gemini" or "none"
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		PromptTemplate string `yaml:"prompt_template"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"fallback"`

	Delivery struct {
		IntervalMin   int  `yaml:"interval_min"`
		IntervalMax   int  `yaml:"interval_max"`
		ResumeOnStart bool `yaml:"resume_on_start"`
	} `yaml:"delivery"`

	Upload struct {
		MaxBytes int64 `yaml:"max_bytes"`
	} `yaml:"upload"`

	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load reads configuration from the given YAML file. A missing file is not an
// error: defaults and environment variables are used instead.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	cfg.Delivery.ResumeOnStart = true

	if configPath != "" {
		file, err := os.Open(configPath)
		switch {
		case err == nil:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
	}

	cfg.Telegram.Token = os.ExpandEnv(cfg.Telegram.Token)
	cfg.Database.DSN = os.ExpandEnv(cfg.Database.DSN)
	cfg.Fallback.APIKey = os.ExpandEnv(cfg.Fallback.APIKey)

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if c.Fallback.APIKey == "" {
		switch c.Fallback.Provider {
		case "gemini":
			c.Fallback.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			c.Fallback.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDatabaseDriver
	}
	if c.Database.DSN == "" {
		c.Database.DSN = DefaultDatabaseDSN
	}
	if c.Wordlists.SystemDir == "" {
		c.Wordlists.SystemDir = DefaultSystemDir
	}
	if c.Wordlists.UserDir == "" {
		c.Wordlists.UserDir = c.Wordlists.SystemDir + "/user_uploads"
	}
	if c.Wordlists.Default == "" {
		c.Wordlists.Default = DefaultWordlist
	}
	if c.Dictionary.Path == "" {
		c.Dictionary.Path = DefaultDictionaryPath
	}
	if c.Fallback.Provider == "" {
		c.Fallback.Provider = DefaultFallbackProvider
	}
	if c.Fallback.BaseURL == "" {
		c.Fallback.BaseURL = DefaultFallbackBaseURL
	}
	if c.Fallback.Model == "" {
		c.Fallback.Model = DefaultFallbackModel
	}
	if c.Fallback.PromptTemplate == "" {
		c.Fallback.PromptTemplate = DefaultPromptTemplate
	}
	if c.Fallback.TimeoutSeconds == 0 {
		c.Fallback.TimeoutSeconds = 60
	}
	if c.Delivery.IntervalMin == 0 {
		c.Delivery.IntervalMin = DefaultIntervalMin
	}
	if c.Delivery.IntervalMax == 0 {
		c.Delivery.IntervalMax = DefaultIntervalMax
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = DefaultMaxUploadBytes
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the fields the bot cannot start without
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is not set (TELEGRAM_BOT_TOKEN)")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Delivery.IntervalMin < 1 || c.Delivery.IntervalMin > c.Delivery.IntervalMax {
		return fmt.Errorf("invalid delivery interval %d-%d", c.Delivery.IntervalMin, c.Delivery.IntervalMax)
	}
	if !strings.Contains(c.Fallback.PromptTemplate, "%s") {
		return errors.New("fallback prompt template must contain %s")
	}
	return nil
}
