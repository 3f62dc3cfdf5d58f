package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperifyio/pageassist/internal/store"
)

const (
	KeyDarkMode = "ai_dark_mode"
	KeyAPIKey   = "openaiApiKey"

	// PlaceholderAPIKey is the value shipped in example configs.
	PlaceholderAPIKey = "your_openai_api_key_here"
)

var (
	ErrEmptyAPIKey   = errors.New("please enter an API key")
	ErrInvalidAPIKey = errors.New("invalid API key format")
)

// Settings reads and writes user preferences.
type Settings struct {
	Store store.Store
}

// DarkMode returns the stored theme preference, or def when none is stored.
func (s *Settings) DarkMode(ctx context.Context, def bool) (bool, error) {
	raw, ok, err := s.Store.Get(ctx, KeyDarkMode)
	if err != nil {
		return def, fmt.Errorf("load theme preference: %w", err)
	}
	if !ok {
		return def, nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, fmt.Errorf("decode theme preference: %w", err)
	}
	return v, nil
}

func (s *Settings) SetDarkMode(ctx context.Context, on bool) error {
	b, _ := json.Marshal(on)
	if err := s.Store.Set(ctx, KeyDarkMode, b); err != nil {
		return fmt.Errorf("save theme preference: %w", err)
	}
	return nil
}

// APIKey returns the stored key, or "" when none is stored.
func (s *Settings) APIKey(ctx context.Context) (string, error) {
	raw, ok, err := s.Store.Get(ctx, KeyAPIKey)
	if err != nil || !ok {
		return "", err
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("decode api key: %w", err)
	}
	return v, nil
}

// SetAPIKey validates and stores key.
func (s *Settings) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if err := ValidateAPIKey(key); err != nil {
		return err
	}
	b, _ := json.Marshal(key)
	if err := s.Store.Set(ctx, KeyAPIKey, b); err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	return nil
}

// ValidateAPIKey accepts OpenAI-style secret keys.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyAPIKey
	}
	if !strings.HasPrefix(key, "sk-") {
		return ErrInvalidAPIKey
	}
	return nil
}

// Configured reports whether key is usable for requests.
func Configured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderAPIKey
}

// Redact shortens a key for logging.
func Redact(key string) string {
	if len(key) <= 11 {
		return strings.Repeat("*", len(key))
	}
	return key[:7] + "..." + key[len(key)-4:]
}
