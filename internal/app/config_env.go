package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY", "OPENAI_API_KEY")
	setString(&cfg.StoreBackend, "STORE_BACKEND")
	setString(&cfg.StorePath, "STORE_PATH")
	setString(&cfg.CacheDir, "CACHE_DIR")
	setString(&cfg.ExtractProfile, "EXTRACT_PROFILE")
	setString(&cfg.ExtractMode, "EXTRACT_MODE")

	if cfg.CacheMaxAge == 0 {
		if d, ok := envDuration("CACHE_MAX_AGE"); ok {
			cfg.CacheMaxAge = d
		}
	}
	if cfg.LLMRPS == 0 {
		if f, ok := envFloat("LLM_RPS"); ok {
			cfg.LLMRPS = f
		}
	}

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		if b, ok := envBool(key); ok && b {
			*dst = true
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.StoreStrictPerms, "STORE_STRICT_PERMS")
	setBool(&cfg.DarkDefault, "DARK_MODE")
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// that are set. Used so env wins over a config file while flags, applied
// afterwards by the caller, stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	override := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	override(&cfg.LLMBaseURL, "LLM_BASE_URL")
	override(&cfg.LLMModel, "LLM_MODEL")
	override(&cfg.LLMAPIKey, "LLM_API_KEY", "OPENAI_API_KEY")
	override(&cfg.StoreBackend, "STORE_BACKEND")
	override(&cfg.StorePath, "STORE_PATH")
	override(&cfg.CacheDir, "CACHE_DIR")
	override(&cfg.ExtractProfile, "EXTRACT_PROFILE")
	override(&cfg.ExtractMode, "EXTRACT_MODE")

	if d, ok := envDuration("CACHE_MAX_AGE"); ok {
		cfg.CacheMaxAge = d
	}
	if f, ok := envFloat("LLM_RPS"); ok {
		cfg.LLMRPS = f
	}
	for key, dst := range map[string]*bool{
		"VERBOSE":            &cfg.Verbose,
		"CACHE_CLEAR":        &cfg.CacheClear,
		"CACHE_STRICT_PERMS": &cfg.CacheStrictPerms,
		"STORE_STRICT_PERMS": &cfg.StoreStrictPerms,
		"DARK_MODE":          &cfg.DarkDefault,
	} {
		if b, ok := envBool(key); ok {
			*dst = b
		}
	}
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	return d, err == nil
}

func envFloat(key string) (float64, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
