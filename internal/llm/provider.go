package llm

import (
	"context"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Client is the minimal interface needed to call a chat model. It mirrors
// go-openai's CreateChatCompletion so that any OpenAI-compatible backend can
// be adapted.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Stream yields incremental completion chunks until io.EOF.
type Stream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// Streamer is an optional capability; callers detect it with a type assertion.
type Streamer interface {
	CreateChatCompletionStream(ctx context.Context, request openai.ChatCompletionRequest) (Stream, error)
}

// OpenAIProvider adapts *openai.Client to Client and Streamer.
type OpenAIProvider struct {
	Inner *openai.Client
}

// NewOpenAI builds a provider for an OpenAI-compatible endpoint. An empty
// baseURL selects the public API.
func NewOpenAI(apiKey, baseURL string, cfg func(*openai.ClientConfig)) *OpenAIProvider {
	c := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		c.BaseURL = baseURL
	}
	if cfg != nil {
		cfg(&c)
	}
	return &OpenAIProvider{Inner: openai.NewClientWithConfig(c)}
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}

func (p *OpenAIProvider) CreateChatCompletionStream(ctx context.Context, request openai.ChatCompletionRequest) (Stream, error) {
	s, err := p.Inner.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return nil, err
	}
	return &openAIStream{inner: s}, nil
}

type openAIStream struct {
	inner *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (openai.ChatCompletionStreamResponse, error) { return s.inner.Recv() }

func (s *openAIStream) Close() error {
	s.inner.Close()
	return nil
}

// KeyedOpenAI sends each request with the key Key returns at call time and
// rebuilds the underlying provider when that key changes.
type KeyedOpenAI struct {
	Key   func() string
	Build func(apiKey string) *OpenAIProvider

	mu  sync.Mutex
	key string
	cur *OpenAIProvider
}

func (k *KeyedOpenAI) provider() *OpenAIProvider {
	key := k.Key()
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cur == nil || key != k.key {
		k.cur = k.Build(key)
		k.key = key
	}
	return k.cur
}

func (k *KeyedOpenAI) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return k.provider().CreateChatCompletion(ctx, request)
}

func (k *KeyedOpenAI) CreateChatCompletionStream(ctx context.Context, request openai.ChatCompletionRequest) (Stream, error) {
	return k.provider().CreateChatCompletionStream(ctx, request)
}

// RateLimited spaces out requests to Inner. A nil Limiter disables limiting.
type RateLimited struct {
	Inner   Client
	Limiter *rate.Limiter
}

// NewRateLimited allows rps requests per second with a burst of one; rps <= 0
// returns inner unchanged.
func NewRateLimited(inner Client, rps float64) Client {
	if rps <= 0 {
		return inner
	}
	return &RateLimited{Inner: inner, Limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (r *RateLimited) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return r.Inner.CreateChatCompletion(ctx, request)
}

func (r *RateLimited) CreateChatCompletionStream(ctx context.Context, request openai.ChatCompletionRequest) (Stream, error) {
	s, ok := r.Inner.(Streamer)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return s.CreateChatCompletionStream(ctx, request)
}

func (r *RateLimited) wait(ctx context.Context) error {
	if r.Limiter == nil {
		return nil
	}
	return r.Limiter.Wait(ctx)
}
