package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// KeyringService groups lead-cli secrets in the OS keychain.
const KeyringService = "lead-cli"

// Keychain account names for API keys.
const (
	AnthropicKeyAccount = "anthropic_api_key"
	OpenAIKeyAccount    = "openai_api_key"
)

// Modes name the commands Validate knows about.
const (
	ModeCrawl     = "crawl"
	ModeContacts  = "contacts"
	ModeViability = "viability"
	ModePitch     = "pitch"
	ModeServe     = "serve"
	ModeStore     = "store"
)

// Config is the top-level configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Viability ViabilityConfig `yaml:"viability" mapstructure:"viability"`
	Contacts  ContactsConfig  `yaml:"contacts" mapstructure:"contacts"`
	Pitch     PitchConfig     `yaml:"pitch" mapstructure:"pitch"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ViabilityConfig tunes the AI classification stage.
type ViabilityConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	AgencyProfile string `yaml:"agency_profile" mapstructure:"agency_profile"`
	BatchLimit    int    `yaml:"batch_limit" mapstructure:"batch_limit"`
	MinIntervalMs int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	Concurrency   int    `yaml:"concurrency" mapstructure:"concurrency"`
}

type ContactsConfig struct {
	BatchLimit  int `yaml:"batch_limit" mapstructure:"batch_limit"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// PitchConfig tunes outreach generation. It shares the viability provider.
type PitchConfig struct {
	BatchLimit int `yaml:"batch_limit" mapstructure:"batch_limit"`
}

// CrawlConfig tunes the browser crawl.
type CrawlConfig struct {
	MaxHoursOld      float64 `yaml:"max_hours_old" mapstructure:"max_hours_old"`
	MaxPages         int     `yaml:"max_pages" mapstructure:"max_pages"`
	LoginTimeoutSecs int     `yaml:"login_timeout_secs" mapstructure:"login_timeout_secs"`
	PageDelayMs      int     `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	NavTimeoutSecs   int     `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
	RetryAttempts    int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs   int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	Headless         bool    `yaml:"headless" mapstructure:"headless"`
	ProfileDir       string  `yaml:"profile_dir" mapstructure:"profile_dir"`
	// SiteProfile is an optional YAML file overriding the default site selectors.
	SiteProfile string `yaml:"site_profile" mapstructure:"site_profile"`
}

// Load reads .env (if present), config.yaml from the working directory and
// LEADS_* environment variables, in increasing precedence. API keys missing
// from all three are looked up in the OS keychain.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("viability.provider", "anthropic")
	v.SetDefault("viability.agency_profile", "")
	v.SetDefault("viability.batch_limit", 50)
	v.SetDefault("viability.min_interval_ms", 500)
	v.SetDefault("viability.concurrency", 1)
	v.SetDefault("contacts.batch_limit", 50)
	v.SetDefault("contacts.concurrency", 1)
	v.SetDefault("pitch.batch_limit", 20)
	v.SetDefault("crawl.max_hours_old", 24)
	v.SetDefault("crawl.max_pages", 3)
	v.SetDefault("crawl.login_timeout_secs", 300)
	v.SetDefault("crawl.page_delay_ms", 2000)
	v.SetDefault("crawl.nav_timeout_secs", 30)
	v.SetDefault("crawl.retry_attempts", 3)
	v.SetDefault("crawl.retry_backoff_ms", 1000)
	v.SetDefault("crawl.headless", false)
	v.SetDefault("crawl.profile_dir", ".lead-cli/browser")
	v.SetDefault("crawl.site_profile", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.Anthropic.Key = secretOr(cfg.Anthropic.Key, AnthropicKeyAccount)
	cfg.OpenAI.Key = secretOr(cfg.OpenAI.Key, OpenAIKeyAccount)

	return &cfg, nil
}

// secretOr returns value, or the keychain entry for account when value is blank.
func secretOr(value, account string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	s, err := keyring.Get(KeyringService, account)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// Validate checks the settings a command needs before it starts.
func (c *Config) Validate(mode string) error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store.driver %q (want sqlite or postgres)", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}

	switch mode {
	case ModeViability, ModePitch:
		switch c.Viability.Provider {
		case "anthropic":
			if c.Anthropic.Key == "" {
				return eris.New("config: anthropic.key is required (set LEADS_ANTHROPIC_KEY or store it in the keychain)")
			}
		case "openai":
			if c.OpenAI.Key == "" {
				return eris.New("config: openai.key is required (set LEADS_OPENAI_KEY or store it in the keychain)")
			}
		default:
			return eris.Errorf("config: unknown viability.provider %q (want anthropic or openai)", c.Viability.Provider)
		}
	case ModeCrawl:
		if strings.TrimSpace(c.Crawl.ProfileDir) == "" {
			return eris.New("config: crawl.profile_dir is required")
		}
	case ModeServe:
		if c.Server.Port <= 0 {
			return eris.New("config: server.port must be positive")
		}
	}
	return nil
}

// InitLogger replaces the global zap logger according to cfg.
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
