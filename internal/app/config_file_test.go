package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperifyio/pageassist/internal/chat"
)

func baseConfig() Config {
	return Config{
		Page:           "page.html",
		LLMModel:       chat.DefaultModel,
		LLMMaxTokens:   chat.DefaultMaxTokens,
		LLMTemperature: chat.DefaultTemperature,
		ExtractMode:    DefaultExtractMode,
		ExtractProfile: DefaultProfile,
		StoreBackend:   DefaultStoreBackend,
		StorePath:      DefaultStorePath,
		CacheDir:       DefaultCacheDir,
	}
}

func TestLoadConfigFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pageassist.yaml")
	content := `
page: https://example.com/doc
llm:
  model: gpt-4o-mini
  temperature: 0.2
  stream: false
extract:
  mode: readability
  profile: compact
store:
  backend: sqlite
  path: /tmp/pa.db
cache:
  maxAge: 48h
  maxEntries: 50
darkMode: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := baseConfig()
	cfg.Page = ""
	cfg.LLMStream = true
	ApplyFileConfig(&cfg, fc)

	if cfg.Page != "https://example.com/doc" || cfg.LLMModel != "gpt-4o-mini" {
		t.Fatalf("unexpected page/model: %q %q", cfg.Page, cfg.LLMModel)
	}
	if cfg.LLMTemperature != 0.2 || cfg.LLMStream {
		t.Fatalf("temperature=%v stream=%v", cfg.LLMTemperature, cfg.LLMStream)
	}
	if cfg.ExtractMode != "readability" || cfg.ExtractProfile != "compact" {
		t.Fatalf("extract settings not applied: %+v", cfg)
	}
	if cfg.StoreBackend != "sqlite" || cfg.StorePath != "/tmp/pa.db" {
		t.Fatalf("store settings not applied: %+v", cfg)
	}
	if cfg.CacheMaxAge != 48*time.Hour || cfg.CacheMaxEntries != 50 || !cfg.DarkDefault {
		t.Fatalf("cache/theme settings not applied: %+v", cfg)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApplyFileConfig_FlagsWin(t *testing.T) {
	cfg := baseConfig()
	cfg.LLMModel = "explicit-model"
	cfg.StorePath = "/explicit"
	var fc FileConfig
	fc.LLM.Model = "file-model"
	fc.Store.Path = "/from-file"
	ApplyFileConfig(&cfg, fc)
	if cfg.LLMModel != "explicit-model" || cfg.StorePath != "/explicit" {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte(`{"llm":{"key":"sk-json"},"store":{"backend":"memory"}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.LLM.APIKey != "sk-json" || fc.Store.Backend != "memory" {
		t.Fatalf("unexpected: %+v", fc)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := baseConfig()
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cfg.Page = " "
	if err := ValidateConfig(cfg); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
	for name, mutate := range map[string]func(*Config){
		"model":       func(c *Config) { c.LLMModel = "" },
		"mode":        func(c *Config) { c.ExtractMode = "magic" },
		"profile":     func(c *Config) { c.ExtractProfile = "huge" },
		"backend":     func(c *Config) { c.StoreBackend = "redis" },
		"negative":    func(c *Config) { c.ExtractMaxChars = -1 },
		"temperature": func(c *Config) { c.LLMTemperature = 3 },
	} {
		c := baseConfig()
		mutate(&c)
		if err := ValidateConfig(c); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
