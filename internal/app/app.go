package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/pageassist/internal/cache"
	"github.com/hyperifyio/pageassist/internal/chat"
	"github.com/hyperifyio/pageassist/internal/extract"
	"github.com/hyperifyio/pageassist/internal/fetch"
	"github.com/hyperifyio/pageassist/internal/llm"
	"github.com/hyperifyio/pageassist/internal/page"
	"github.com/hyperifyio/pageassist/internal/render"
	"github.com/hyperifyio/pageassist/internal/session"
	"github.com/hyperifyio/pageassist/internal/settings"
	"github.com/hyperifyio/pageassist/internal/store"
)

type App struct {
	cfg     Config
	store   store.Store
	fetcher *fetch.Client
	session *session.Session
	term    *render.Terminal
	in      io.Reader
	out     io.Writer
	client  llm.Client
}

// Option customizes New.
type Option func(*App)

// WithLLMClient replaces the OpenAI-compatible client.
func WithLLMClient(c llm.Client) Option { return func(a *App) { a.client = c } }

// WithIO sets the reader used by interactive mode and the writer for output.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) { a.in, a.out = in, out }
}

// New validates cfg, prepares the cache and store, loads the page and starts
// a session for it.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, in: os.Stdin, out: os.Stdout}
	for _, o := range opts {
		o(a)
	}

	a.fetcher = &fetch.Client{
		HTTPClient:        newHTTPClient(),
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       3,
		PerRequestTimeout: 30 * time.Second,
		Cache:             a.prepareCache(),
		BypassCache:       cfg.NoCache,
	}
	if a.fetcher.UserAgent == "" {
		a.fetcher.UserAgent = defaultUserAgent()
	}

	st, err := store.Open(ctx, a.storeOptions())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st

	p, err := page.Load(ctx, a.fetcher, cfg.Page)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Info().Str("url", p.URL).Str("title", p.Title).Msg("page loaded")

	ex, err := a.extractor()
	if err != nil {
		a.Close()
		return nil, err
	}

	if a.client == nil {
		// Requests carry the session's current key.
		a.client = llm.NewRateLimited(&llm.KeyedOpenAI{
			Key: func() string { return a.session.APIKey() },
			Build: func(apiKey string) *llm.OpenAIProvider {
				return llm.NewOpenAI(apiKey, cfg.LLMBaseURL, func(c *openai.ClientConfig) {
					c.HTTPClient = newHTTPClient()
				})
			},
		}, cfg.LLMRPS)
	}
	temp := float32(cfg.LLMTemperature)
	composer := &chat.Composer{
		Client:      a.client,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: &temp,
		Stream:      cfg.LLMStream,
	}

	s, err := session.New(session.Deps{
		Page:            p,
		Extractor:       ex,
		Composer:        composer,
		Store:           st,
		APIKey:          cfg.LLMAPIKey,
		DefaultDarkMode: cfg.DarkDefault,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	s.Init(ctx)
	a.session = s
	a.term = &render.Terminal{Out: a.out, Dark: s.DarkMode()}
	if key := s.APIKey(); settings.Configured(key) {
		log.Debug().Str("key", settings.Redact(key)).Msg("API key configured")
	}
	return a, nil
}

// prepareCache applies the clear/age/size controls and returns the cache, or
// nil when caching is off.
func (a *App) prepareCache() *cache.HTTPCache {
	dir := strings.TrimSpace(a.cfg.CacheDir)
	if dir == "" {
		return nil
	}
	if a.cfg.CacheClear {
		if err := cache.ClearDir(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("cache clear failed")
		}
	}
	if n, err := cache.PurgeByAge(dir, a.cfg.CacheMaxAge); err != nil {
		log.Warn().Err(err).Msg("cache purge failed")
	} else if n > 0 {
		log.Debug().Int("removed", n).Msg("expired cache entries purged")
	}
	if n, err := cache.EnforceLimits(dir, a.cfg.CacheMaxBytes, a.cfg.CacheMaxEntries); err != nil {
		log.Warn().Err(err).Msg("cache limit enforcement failed")
	} else if n > 0 {
		log.Debug().Int("removed", n).Msg("cache entries evicted")
	}
	return &cache.HTTPCache{Dir: dir, StrictPerms: a.cfg.CacheStrictPerms}
}

// storeOptions places the sqlite database inside the default state directory
// so both backends can share it.
func (a *App) storeOptions() store.Options {
	path := a.cfg.StorePath
	if strings.EqualFold(strings.TrimSpace(a.cfg.StoreBackend), "sqlite") && path == DefaultStorePath {
		path = filepath.Join(DefaultStorePath, store.SQLiteFileName)
	}
	return store.Options{Backend: a.cfg.StoreBackend, Path: path, StrictPerms: a.cfg.StoreStrictPerms}
}

func (a *App) extractor() (extract.Extractor, error) {
	profile, ok := extract.ProfileByName(a.cfg.ExtractProfile)
	if !ok {
		return nil, fmt.Errorf("unknown extract profile %q", a.cfg.ExtractProfile)
	}
	if a.cfg.ExtractMaxChars > 0 {
		profile.MaxChars = a.cfg.ExtractMaxChars
	}
	return extract.New(a.cfg.ExtractMode, profile)
}

func (a *App) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("store close failed")
	}
	a.store = nil
}

// Session exposes the page session.
func (a *App) Session() *session.Session { return a.session }

// Run performs the configured actions in a fixed order: key update, clear,
// theme toggle, reload, print context, quick question, question, interactive
// loop, export. With no action it prints the greeting or the existing
// conversation.
func (a *App) Run(ctx context.Context) error {
	acted := false
	if a.cfg.SetKey != "" {
		acted = true
		if err := a.setKey(ctx, a.cfg.SetKey); err != nil {
			return err
		}
	}
	if a.cfg.Clear {
		acted = true
		if err := a.session.Clear(ctx); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		a.term.Notice("Chat history cleared.")
	}
	if a.cfg.ToggleTheme {
		acted = true
		if err := a.toggleTheme(ctx); err != nil {
			return err
		}
	}
	if a.cfg.Reload {
		acted = true
		if err := a.reload(ctx); err != nil {
			return err
		}
	}
	if a.cfg.PrintContext {
		acted = true
		fmt.Fprintln(a.out, a.session.Content())
	}
	if a.cfg.Quick != "" {
		acted = true
		if err := a.quick(ctx, a.cfg.Quick); err != nil {
			return err
		}
	}
	if strings.TrimSpace(a.cfg.Ask) != "" {
		acted = true
		if err := a.ask(ctx, a.cfg.Ask); err != nil {
			return err
		}
	}
	if a.cfg.Interactive {
		acted = true
		if err := a.interactive(ctx); err != nil {
			return err
		}
	}
	if a.cfg.ExportPath != "" {
		acted = true
		if err := a.export(a.cfg.ExportPath); err != nil {
			return err
		}
	}
	if !acted {
		a.showConversation()
	}
	return nil
}

func (a *App) showConversation() {
	if w := a.session.Welcome(); w != "" {
		a.term.Message(assistantMessage(w))
		a.listQuick()
		return
	}
	a.term.Transcript(a.session.History())
}

func (a *App) listQuick() {
	for _, q := range session.QuickQuestions {
		a.term.Notice("  /quick %-10s %s", q.ID, q.Label)
	}
}

func (a *App) ask(ctx context.Context, question string) error {
	a.term.Message(userMessage(question))
	return a.answer(ctx, question)
}

// answer streams the reply to question. Persistence failures are logged; the
// reply has already been shown.
func (a *App) answer(ctx context.Context, question string) error {
	a.term.AssistantPrefix()
	var shown strings.Builder
	reply, err := a.session.Ask(ctx, question, func(d string) {
		shown.WriteString(d)
		a.term.Delta(d)
	})
	// A failed stream leaves the error text after what was already shown.
	a.term.Delta(strings.TrimPrefix(reply, shown.String()))
	a.term.Delta("\n")
	if err != nil {
		log.Warn().Err(err).Msg("error saving chat history")
	}
	return ctx.Err()
}

func (a *App) quick(ctx context.Context, id string) error {
	q, ok := session.LookupQuick(id)
	if !ok {
		return fmt.Errorf("unknown quick question %q", id)
	}
	return a.ask(ctx, q.Question)
}

// setKey reports the outcome to the user; validation errors are
// settings.ErrEmptyAPIKey or settings.ErrInvalidAPIKey.
func (a *App) setKey(ctx context.Context, key string) error {
	if err := a.session.SetAPIKey(ctx, key); err != nil {
		a.term.Error("%v", err)
		return fmt.Errorf("set api key: %w", err)
	}
	a.term.Notice("API key saved successfully!")
	return nil
}

func (a *App) toggleTheme(ctx context.Context) error {
	dark, err := a.session.ToggleTheme(ctx)
	if err != nil {
		return fmt.Errorf("toggle theme: %w", err)
	}
	a.term.Dark = dark
	mode := "light"
	if dark {
		mode = "dark"
	}
	a.term.Notice("Theme set to %s.", mode)
	return nil
}

func (a *App) reload(ctx context.Context) error {
	fresh := *a.fetcher
	fresh.BypassCache = true
	n, err := a.session.Reload(ctx, func(ctx context.Context) (*page.Page, error) {
		return page.Load(ctx, &fresh, a.cfg.Page)
	})
	if err != nil {
		return err
	}
	a.term.Notice("Content reloaded (%d characters).", n)
	return nil
}

func (a *App) export(path string) error {
	p := a.session.Page()
	err := render.WriteTranscript(path, render.Transcript{
		Title:    p.Title,
		URL:      p.URL,
		Messages: a.session.History(),
		Dark:     a.session.DarkMode(),
	})
	if err != nil {
		return fmt.Errorf("export transcript: %w", err)
	}
	log.Info().Str("path", path).Msg("transcript exported")
	return nil
}

// interactive reads questions and slash commands until EOF or /quit.
func (a *App) interactive(ctx context.Context) error {
	a.showConversation()
	a.term.Notice("Type a question, /help for commands, /quit to exit.")
	scanner := bufio.NewScanner(a.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		a.term.Prompt()
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if err := a.answer(ctx, line); err != nil {
				return err
			}
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		var err error
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/help":
			a.term.Notice("/quick <id>, /key <api key>, /clear, /reload, /theme, /context, /export <file>, /quit")
			a.listQuick()
		case "/quick":
			err = a.quick(ctx, arg)
		case "/key":
			if a.setKey(ctx, arg) != nil {
				continue
			}
		case "/clear":
			err = a.session.Clear(ctx)
			if err == nil {
				a.term.Notice("Chat history cleared.")
				a.showConversation()
			}
		case "/reload":
			err = a.reload(ctx)
		case "/theme":
			err = a.toggleTheme(ctx)
		case "/context":
			fmt.Fprintln(a.out, a.session.Content())
		case "/export":
			if arg == "" {
				a.term.Error("usage: /export <file.md|file.html|file.pdf>")
				continue
			}
			err = a.export(arg)
		default:
			a.term.Error("unknown command %s", cmd)
		}
		if err != nil {
			a.term.Error("%v", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}
