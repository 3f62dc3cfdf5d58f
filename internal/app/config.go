package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Page is an http(s) URL or a path to a saved HTML file.
	Page string

	// Actions
	// SetKey validates and stores an API key before any other action.
	SetKey       string
	Ask          string
	Quick        string
	Interactive  bool
	Reload       bool
	Clear        bool
	ToggleTheme  bool
	PrintContext bool
	ExportPath   string

	// LLM
	LLMBaseURL     string
	LLMModel       string
	LLMAPIKey      string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMStream      bool
	// LLMRPS limits chat requests per second; 0 disables.
	LLMRPS float64

	// Extraction
	ExtractMode     string
	ExtractProfile  string
	ExtractMaxChars int

	// Persistence
	StoreBackend     string
	StorePath        string
	StoreStrictPerms bool

	// Page cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheMaxEntries  int
	CacheMaxBytes    int64
	CacheClear       bool
	CacheStrictPerms bool
	NoCache          bool

	UserAgent   string
	DarkDefault bool
	Verbose     bool
}

// Defaults mirrored by the CLI flags. File config only replaces a value that
// still equals its default.
const (
	DefaultStoreBackend = "file"
	DefaultStorePath    = ".pageassist"
	DefaultCacheDir     = ".pageassist-cache"
	DefaultExtractMode  = "heuristic"
	DefaultProfile      = "full"
)
