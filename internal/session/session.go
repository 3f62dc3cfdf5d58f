package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pageassist/internal/chat"
	"github.com/hyperifyio/pageassist/internal/extract"
	"github.com/hyperifyio/pageassist/internal/history"
	"github.com/hyperifyio/pageassist/internal/page"
	"github.com/hyperifyio/pageassist/internal/settings"
	"github.com/hyperifyio/pageassist/internal/store"
)

const (
	// minUsableContent triggers re-extraction before a question is sent.
	minUsableContent = 50

	WelcomeMessage   = "Hi! I'm here to help you understand this webpage. I've analyzed the content and I'm ready to answer your questions. What would you like to know?"
	MissingKeyNotice = "Please configure your API key first (use -set-key or /key, or set LLM_API_KEY or llm.key in the config file)."
)

// Deps are the collaborators a Session needs.
type Deps struct {
	Page      *page.Page
	Extractor extract.Extractor
	Composer  *chat.Composer
	Store     store.Store
	// APIKey gates outbound requests; see settings.Configured.
	APIKey string
	// DefaultDarkMode applies when no theme preference is stored.
	DefaultDarkMode bool
}

// Session is the state of one assistant attached to one page: the extracted
// content, the conversation and the theme. Methods are safe for concurrent
// use but are serialized.
type Session struct {
	mu sync.Mutex

	id        string
	page      *page.Page
	extractor extract.Extractor
	composer  *chat.Composer
	history   *history.History
	settings  *settings.Settings

	// apiKey is read by the chat client while mu is held by Ask.
	apiKey atomic.Value

	content  string
	messages []history.Message
	darkMode bool
	logger   zerolog.Logger
}

func New(d Deps) (*Session, error) {
	if d.Page == nil {
		return nil, fmt.Errorf("session: page is required")
	}
	if d.Store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	ex := d.Extractor
	if ex == nil {
		ex = extract.HeuristicExtractor{Profile: extract.ProfileFull}
	}
	id := uuid.NewString()
	s := &Session{
		id:        id,
		page:      d.Page,
		extractor: ex,
		composer:  d.Composer,
		history:   &history.History{Store: d.Store},
		settings:  &settings.Settings{Store: d.Store},
		darkMode:  d.DefaultDarkMode,
		logger:    log.With().Str("session", id).Str("url", d.Page.URL).Logger(),
	}
	s.apiKey.Store(strings.TrimSpace(d.APIKey))
	return s, nil
}

// Init loads preferences and history and extracts the page content.
func (s *Session) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !settings.Configured(s.APIKey()) {
		if key, err := s.settings.APIKey(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("error loading stored API key")
		} else if key != "" {
			s.apiKey.Store(key)
		}
	}
	if !settings.Configured(s.APIKey()) {
		s.logger.Warn().Msg("API key not configured; questions will not be sent")
	}
	if dark, err := s.settings.DarkMode(ctx, s.darkMode); err != nil {
		s.logger.Warn().Err(err).Msg("error loading theme preference")
	} else {
		s.darkMode = dark
	}
	s.messages = s.history.Load(ctx, s.page.URL)
	s.extractLocked()
}

func (s *Session) extractLocked() {
	s.content = s.extractor.Extract(s.page)
	s.logger.Debug().Int("chars", utf8.RuneCountInString(s.content)).Msg("page content extracted")
}

func (s *Session) ID() string { return s.id }

func (s *Session) Page() *page.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Content returns the last extracted context string.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// History returns a copy of the conversation.
func (s *Session) History() []history.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]history.Message(nil), s.messages...)
}

func (s *Session) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.darkMode
}

func (s *Session) HasAPIKey() bool {
	return settings.Configured(s.APIKey())
}

// APIKey returns the key requests are sent with. A key stored through
// settings is picked up by Init when none was configured.
func (s *Session) APIKey() string {
	return s.apiKey.Load().(string)
}

// SetAPIKey validates key, stores it and uses it for the following requests.
// Validation failures are settings.ErrEmptyAPIKey or settings.ErrInvalidAPIKey.
func (s *Session) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.settings.SetAPIKey(ctx, key); err != nil {
		return err
	}
	s.apiKey.Store(key)
	s.logger.Info().Str("key", settings.Redact(key)).Msg("API key saved")
	return nil
}

// Welcome returns the greeting, or "" once a conversation exists.
func (s *Session) Welcome() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) > 0 {
		return ""
	}
	return WelcomeMessage
}

// Ask sends question about the page and returns the assistant reply. Request
// failures are not returned: the reply is the user-facing error text, after
// any text already streamed, and it is recorded in the history like any
// answer. An empty question is ignored and returns "", nil. The error result
// only reports a failure to persist.
func (s *Session) Ask(ctx context.Context, question string, onDelta func(string)) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !settings.Configured(s.APIKey()) || s.composer == nil {
		return MissingKeyNotice, s.appendLocked(ctx, history.RoleAssistant, MissingKeyNotice)
	}

	past := append([]history.Message(nil), s.messages...)
	if err := s.appendLocked(ctx, history.RoleUser, question); err != nil {
		s.logger.Warn().Err(err).Msg("error saving chat history")
	}

	if utf8.RuneCountInString(s.content) < minUsableContent {
		s.logger.Warn().Msg("page content is missing or too short, extracting again")
		s.extractLocked()
	}

	pc := chat.Context{Title: s.page.Title, URL: s.page.URL, Content: s.content}
	reply, err := s.composer.Ask(ctx, pc, past, question, onDelta)
	if err != nil {
		s.logger.Error().Err(err).Int("partial_chars", utf8.RuneCountInString(reply)).Msg("chat request failed")
		if reply != "" {
			reply += "\n\n" + chat.DescribeError(err)
		} else {
			reply = chat.DescribeError(err)
		}
	}
	return reply, s.appendLocked(ctx, history.RoleAssistant, reply)
}

// Quick asks one of the QuickQuestions by ID.
func (s *Session) Quick(ctx context.Context, id string, onDelta func(string)) (string, error) {
	q, ok := LookupQuick(id)
	if !ok {
		return "", fmt.Errorf("unknown quick question %q", id)
	}
	return s.Ask(ctx, q.Question, onDelta)
}

func (s *Session) appendLocked(ctx context.Context, role, content string) error {
	s.messages = append(s.messages, history.Message{Role: role, Content: content})
	return s.history.Save(ctx, s.page.URL, s.messages)
}

// Loader re-reads a page for Reload.
type Loader func(ctx context.Context) (*page.Page, error)

// Reload refreshes the page snapshot through load (when non-nil) and
// re-extracts the content. It returns the new content length in characters.
func (s *Session) Reload(ctx context.Context, load Loader) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if load != nil {
		p, err := load(ctx)
		if err != nil {
			return 0, fmt.Errorf("reload page: %w", err)
		}
		s.page = p
	}
	s.extractLocked()
	s.logger.Info().Msg("content reloaded manually")
	return utf8.RuneCountInString(s.content), nil
}

// Clear forgets the conversation in memory and in the store.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []history.Message{}
	if err := s.history.Clear(ctx, s.page.URL); err != nil {
		return err
	}
	s.logger.Info().Msg("chat history cleared")
	return nil
}

// ToggleTheme flips and persists dark mode, returning the new value.
func (s *Session) ToggleTheme(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = !s.darkMode
	return s.darkMode, s.settings.SetDarkMode(ctx, s.darkMode)
}
