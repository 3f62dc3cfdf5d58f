package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pageassist/internal/app"
	"github.com/hyperifyio/pageassist/internal/chat"
	"github.com/hyperifyio/pageassist/internal/extract"
)

type options struct {
	cfg         app.Config
	configPath  string
	envFiles    string
	showVersion bool
}

func newFlagSet(o *options, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("pageassist", flag.ContinueOnError)
	fs.SetOutput(output)
	c := &o.cfg

	fs.StringVar(&c.Page, "page", "", "Page URL (http/https) or path to a saved HTML file")
	fs.StringVar(&c.SetKey, "set-key", "", "Validate and save an OpenAI API key (sk-...) for later runs")
	fs.StringVar(&c.Ask, "ask", "", "Ask a question about the page")
	fs.StringVar(&c.Quick, "quick", "", "Ask a quick question: summarize, topics, simplify, keypoints, latest, facts")
	fs.BoolVar(&c.Interactive, "interactive", false, "Chat about the page interactively")
	fs.BoolVar(&c.Reload, "reload", false, "Re-fetch the page and re-extract its content")
	fs.BoolVar(&c.Clear, "clear", false, "Clear the chat history for the page")
	fs.BoolVar(&c.ToggleTheme, "toggle-theme", false, "Toggle dark mode")
	fs.BoolVar(&c.PrintContext, "print-context", false, "Print the extracted page context")
	fs.StringVar(&c.ExportPath, "export", "", "Export the conversation to a .md, .html or .pdf file")

	fs.StringVar(&c.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&c.LLMModel, "llm.model", chat.DefaultModel, "Model name")
	fs.StringVar(&c.LLMAPIKey, "llm.key", "", "API key (LLM_API_KEY or OPENAI_API_KEY)")
	fs.IntVar(&c.LLMMaxTokens, "llm.maxTokens", chat.DefaultMaxTokens, "Maximum tokens per reply")
	fs.Float64Var(&c.LLMTemperature, "llm.temperature", chat.DefaultTemperature, "Sampling temperature")
	fs.BoolVar(&c.LLMStream, "llm.stream", true, "Stream replies as they are generated")
	fs.Float64Var(&c.LLMRPS, "llm.rps", 0, "Maximum chat requests per second; 0 disables")

	fs.StringVar(&c.ExtractMode, "extract.mode", app.DefaultExtractMode, "Content extractor: heuristic or readability")
	fs.StringVar(&c.ExtractProfile, "extract.profile", app.DefaultProfile, fmt.Sprintf("Context size profile: %s (%d) or %s (%d)",
		extract.ProfileFull.Name, extract.ProfileFull.MaxChars, extract.ProfileCompact.Name, extract.ProfileCompact.MaxChars))
	fs.IntVar(&c.ExtractMaxChars, "extract.maxChars", 0, "Override the profile's character cap")

	fs.StringVar(&c.StoreBackend, "store.backend", app.DefaultStoreBackend, "History and settings store: file, sqlite or memory")
	fs.StringVar(&c.StorePath, "store.path", app.DefaultStorePath, "Store directory (file) or database path (sqlite)")
	fs.BoolVar(&c.StoreStrictPerms, "store.strictPerms", false, "Restrict store permissions (0700 dirs, 0600 files)")

	fs.StringVar(&c.CacheDir, "cache.dir", app.DefaultCacheDir, "Page cache directory; empty disables caching")
	fs.DurationVar(&c.CacheMaxAge, "cache.maxAge", 0, "Purge cached pages older than this; 0 disables")
	fs.IntVar(&c.CacheMaxEntries, "cache.maxEntries", 0, "Maximum cached pages; 0 disables")
	fs.Int64Var(&c.CacheMaxBytes, "cache.maxBytes", 0, "Maximum cached body bytes; 0 disables")
	fs.BoolVar(&c.CacheClear, "cache.clear", false, "Clear the page cache before running")
	fs.BoolVar(&c.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&c.NoCache, "no-cache", false, "Skip cache revalidation and always fetch fresh")

	fs.StringVar(&c.UserAgent, "ua", app.DefaultUserAgent(), "User-Agent for page requests")
	fs.BoolVar(&c.DarkDefault, "dark", false, "Default to dark mode when no preference is stored")
	fs.BoolVar(&c.Verbose, "v", false, "Verbose logging")

	fs.StringVar(&o.configPath, "config", "", "YAML or JSON config file")
	fs.StringVar(&o.envFiles, "env", ".env", "Comma-separated dotenv files loaded before configuration")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	return fs
}

// parseOptions layers configuration: defaults, config file, environment,
// then explicit flags.
func parseOptions(args []string, output io.Writer) (options, error) {
	var o options
	fs := newFlagSet(&o, output)
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.showVersion {
		return o, nil
	}
	if err := app.LoadEnvFiles(strings.Split(o.envFiles, ",")...); err != nil {
		return o, fmt.Errorf("load env files: %w", err)
	}
	if o.configPath != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return o, fmt.Errorf("load config file: %w", err)
		}
		app.ApplyFileConfig(&o.cfg, fc)
	}
	app.ApplyEnvOverrides(&o.cfg)
	// Parsing again re-applies only the flags given on the command line.
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.cfg.Page == "" && fs.NArg() > 0 {
		o.cfg.Page = fs.Arg(0)
	}
	return o, nil
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	o, err := parseOptions(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Error().Err(err).Msg("invalid arguments")
		os.Exit(2)
	}
	if o.showVersion {
		fmt.Println(app.VersionString())
		return
	}
	if o.cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, o.cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		if errors.Is(err, app.ErrNoPage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg app.Config, opts ...app.Option) error {
	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	return a.Run(ctx)
}
