package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/pageassist/internal/chat"
	"github.com/hyperifyio/pageassist/internal/extract"
)

// FileConfig is the YAML/JSON configuration file schema.
type FileConfig struct {
	Page string `yaml:"page" json:"page"`

	LLM struct {
		BaseURL     string   `yaml:"base" json:"base"`
		Model       string   `yaml:"model" json:"model"`
		APIKey      string   `yaml:"key" json:"key"`
		MaxTokens   int      `yaml:"maxTokens" json:"maxTokens"`
		Temperature *float64 `yaml:"temperature" json:"temperature"`
		Stream      *bool    `yaml:"stream" json:"stream"`
		RPS         float64  `yaml:"rps" json:"rps"`
	} `yaml:"llm" json:"llm"`

	Extract struct {
		Mode     string `yaml:"mode" json:"mode"`
		Profile  string `yaml:"profile" json:"profile"`
		MaxChars int    `yaml:"maxChars" json:"maxChars"`
	} `yaml:"extract" json:"extract"`

	Store struct {
		Backend     string `yaml:"backend" json:"backend"`
		Path        string `yaml:"path" json:"path"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"store" json:"store"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
		MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	UserAgent string `yaml:"userAgent" json:"userAgent"`
	DarkMode  bool   `yaml:"darkMode" json:"darkMode"`
	Verbose   bool   `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays fc onto fields of cfg that are unset or still at
// their flag default.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	str := func(dst *string, def, v string) {
		if v != "" && (*dst == "" || *dst == def) {
			*dst = v
		}
	}
	str(&cfg.Page, "", fc.Page)
	str(&cfg.LLMBaseURL, "", fc.LLM.BaseURL)
	str(&cfg.LLMModel, chat.DefaultModel, fc.LLM.Model)
	str(&cfg.LLMAPIKey, "", fc.LLM.APIKey)
	if fc.LLM.MaxTokens > 0 && (cfg.LLMMaxTokens == 0 || cfg.LLMMaxTokens == chat.DefaultMaxTokens) {
		cfg.LLMMaxTokens = fc.LLM.MaxTokens
	}
	if fc.LLM.Temperature != nil && (cfg.LLMTemperature == 0 || cfg.LLMTemperature == chat.DefaultTemperature) {
		cfg.LLMTemperature = *fc.LLM.Temperature
	}
	if fc.LLM.Stream != nil {
		cfg.LLMStream = *fc.LLM.Stream
	}
	if cfg.LLMRPS == 0 && fc.LLM.RPS > 0 {
		cfg.LLMRPS = fc.LLM.RPS
	}

	str(&cfg.ExtractMode, DefaultExtractMode, fc.Extract.Mode)
	str(&cfg.ExtractProfile, DefaultProfile, fc.Extract.Profile)
	if cfg.ExtractMaxChars == 0 && fc.Extract.MaxChars > 0 {
		cfg.ExtractMaxChars = fc.Extract.MaxChars
	}

	str(&cfg.StoreBackend, DefaultStoreBackend, fc.Store.Backend)
	str(&cfg.StorePath, DefaultStorePath, fc.Store.Path)
	if fc.Store.StrictPerms {
		cfg.StoreStrictPerms = true
	}

	str(&cfg.CacheDir, DefaultCacheDir, fc.Cache.Dir)
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if cfg.CacheMaxEntries == 0 && fc.Cache.MaxEntries > 0 {
		cfg.CacheMaxEntries = fc.Cache.MaxEntries
	}
	if cfg.CacheMaxBytes == 0 && fc.Cache.MaxBytes > 0 {
		cfg.CacheMaxBytes = fc.Cache.MaxBytes
	}
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}

	str(&cfg.UserAgent, defaultUserAgent(), fc.UserAgent)
	if fc.DarkMode {
		cfg.DarkDefault = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}

// ErrNoPage is returned when no page target is configured.
var ErrNoPage = errors.New("config: a page URL or HTML file is required (-page)")

// ValidateConfig checks required settings and value ranges.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Page) == "" {
		return ErrNoPage
	}
	if strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required (or set LLM_MODEL)")
	}
	if _, err := extract.New(cfg.ExtractMode, extract.ProfileFull); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, ok := extract.ProfileByName(cfg.ExtractProfile); !ok {
		return fmt.Errorf("config: unknown extract profile %q", cfg.ExtractProfile)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "", "file", "sqlite", "memory":
	default:
		return fmt.Errorf("config: unknown store backend %q", cfg.StoreBackend)
	}
	if cfg.LLMMaxTokens < 0 || cfg.ExtractMaxChars < 0 || cfg.CacheMaxEntries < 0 || cfg.CacheMaxBytes < 0 || cfg.LLMRPS < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		return fmt.Errorf("config: llm.temperature %.2f out of range [0,2]", cfg.LLMTemperature)
	}
	return nil
}
