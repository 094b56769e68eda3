package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

// inTempDir runs the test from an empty directory with an in-memory keychain.
func inTempDir(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leads.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "anthropic", cfg.Viability.Provider)
	assert.Equal(t, 50, cfg.Viability.BatchLimit)
	assert.Equal(t, 500, cfg.Viability.MinIntervalMs)
	assert.Equal(t, 1, cfg.Viability.Concurrency)
	assert.Equal(t, 50, cfg.Contacts.BatchLimit)
	assert.InDelta(t, 24.0, cfg.Crawl.MaxHoursOld, 0.001)
	assert.Equal(t, 3, cfg.Crawl.MaxPages)
	assert.Equal(t, 300, cfg.Crawl.LoginTimeoutSecs)
	assert.Equal(t, 2000, cfg.Crawl.PageDelayMs)
	assert.Equal(t, ".lead-cli/browser", cfg.Crawl.ProfileDir)
	assert.False(t, cfg.Crawl.Headless)
	assert.Empty(t, cfg.Anthropic.Key)
	assert.Equal(t, 20, cfg.Pitch.BatchLimit)
}

func TestLoadFromYAML(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/leads
log:
  level: debug
  format: console
viability:
  provider: openai
  batch_limit: 10
crawl:
  max_hours_old: 6
  headless: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/leads", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "openai", cfg.Viability.Provider)
	assert.Equal(t, 10, cfg.Viability.BatchLimit)
	assert.InDelta(t, 6.0, cfg.Crawl.MaxHoursOld, 0.001)
	assert.True(t, cfg.Crawl.Headless)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Crawl.MaxPages)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := inTempDir(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9090\n"), 0644))
	t.Setenv("LEADS_SERVER_PORT", "7070")
	t.Setenv("LEADS_ANTHROPIC_KEY", "sk-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "sk-env", cfg.Anthropic.Key)
}

func TestLoadDotEnv(t *testing.T) {
	dir := inTempDir(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEADS_OPENAI_KEY=sk-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("LEADS_OPENAI_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-dotenv", cfg.OpenAI.Key)
}

func TestLoadKeyringFallback(t *testing.T) {
	inTempDir(t)
	require.NoError(t, keyring.Set(KeyringService, AnthropicKeyAccount, " sk-keychain\n"))
	require.NoError(t, keyring.Set(KeyringService, OpenAIKeyAccount, "sk-openai"))
	t.Setenv("LEADS_OPENAI_KEY", "sk-env-wins")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-keychain", cfg.Anthropic.Key)
	assert.Equal(t, "sk-env-wins", cfg.OpenAI.Key)
}

func TestLoadBadYAML(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func validConfig() *Config {
	return &Config{
		Store:     StoreConfig{Driver: "sqlite", DatabaseURL: "leads.db"},
		Server:    ServerConfig{Port: 8080},
		Anthropic: AnthropicConfig{Key: "sk-ant"},
		OpenAI:    OpenAIConfig{Key: "sk-oai"},
		Viability: ViabilityConfig{Provider: "anthropic"},
		Crawl:     CrawlConfig{ProfileDir: ".lead-cli/browser"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok viability", mode: ModeViability},
		{name: "ok crawl", mode: ModeCrawl},
		{name: "ok contacts without keys", mode: ModeContacts, mutate: func(c *Config) {
			c.Anthropic.Key, c.OpenAI.Key = "", ""
		}},
		{name: "unknown driver", mode: ModeStore, mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "store.driver"},
		{name: "missing database url", mode: ModeStore, mutate: func(c *Config) { c.Store.DatabaseURL = "" }, wantErr: "store.database_url"},
		{name: "anthropic key missing", mode: ModeViability, mutate: func(c *Config) { c.Anthropic.Key = "" }, wantErr: "anthropic.key"},
		{name: "openai key missing", mode: ModeViability, mutate: func(c *Config) {
			c.Viability.Provider = "openai"
			c.OpenAI.Key = ""
		}, wantErr: "openai.key"},
		{name: "pitch needs provider key", mode: ModePitch, mutate: func(c *Config) { c.Anthropic.Key = "" }, wantErr: "anthropic.key"},
		{name: "unknown provider", mode: ModeViability, mutate: func(c *Config) { c.Viability.Provider = "groq" }, wantErr: "viability.provider"},
		{name: "crawl profile dir", mode: ModeCrawl, mutate: func(c *Config) { c.Crawl.ProfileDir = " " }, wantErr: "crawl.profile_dir"},
		{name: "serve port", mode: ModeServe, mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLogger(t *testing.T) {
	orig := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	err := InitLogger(LogConfig{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
