package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pageassist/internal/store"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	keyPrefix = "chat_history_"
)

// Message is one persisted chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Key returns the store key holding the history of pageURL.
func Key(pageURL string) string { return keyPrefix + pageURL }

// History persists per-page conversations.
type History struct {
	Store store.Store
}

// Load returns the stored messages for pageURL. Missing or unreadable history
// yields an empty conversation.
func (h *History) Load(ctx context.Context, pageURL string) []Message {
	raw, ok, err := h.Store.Get(ctx, Key(pageURL))
	if err != nil {
		log.Warn().Err(err).Str("url", pageURL).Msg("error loading chat history")
		return []Message{}
	}
	if !ok {
		return []Message{}
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		log.Warn().Err(err).Str("url", pageURL).Msg("discarding malformed chat history")
		return []Message{}
	}
	log.Debug().Int("messages", len(msgs)).Msg("loaded chat history")
	return msgs
}

func (h *History) Save(ctx context.Context, pageURL string, msgs []Message) error {
	if msgs == nil {
		msgs = []Message{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.Store.Set(ctx, Key(pageURL), b); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	log.Debug().Int("messages", len(msgs)).Msg("saved chat history")
	return nil
}

func (h *History) Clear(ctx context.Context, pageURL string) error {
	if err := h.Store.Remove(ctx, Key(pageURL)); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Last returns at most n trailing messages.
func Last(msgs []Message, n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
