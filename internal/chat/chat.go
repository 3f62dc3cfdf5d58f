package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/pageassist/internal/budget"
	"github.com/hyperifyio/pageassist/internal/history"
	"github.com/hyperifyio/pageassist/internal/llm"
)

const (
	DefaultModel       = "gpt-4o"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	// HistoryWindow is how many prior messages accompany a question.
	HistoryWindow = 10
)

// ErrNoChoices is returned when the API answers without any choice.
var ErrNoChoices = errors.New("completion returned no choices")

// Context is the page information embedded into the system message.
type Context struct {
	Title   string
	URL     string
	Content string
}

// Composer builds completion requests about a page and sends them.
type Composer struct {
	Client    llm.Client
	Model     string
	MaxTokens int
	// Temperature nil selects DefaultTemperature; zero is sent as zero.
	Temperature *float32
	// Stream requests incremental output when Client supports it.
	Stream bool
}

// SystemMessage renders the instructions and page context.
func SystemMessage(pc Context) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful AI assistant that helps users understand web pages. Here is the content of the current webpage:\n\n")
	sb.WriteString("Title: ")
	sb.WriteString(pc.Title)
	sb.WriteString("\nURL: ")
	sb.WriteString(pc.URL)
	sb.WriteString("\nContent: ")
	sb.WriteString(pc.Content)
	sb.WriteString("\n\nPlease answer questions about this webpage content in a helpful and concise manner. If the user asks about something not related to the page content, politely redirect them to ask about the current page.")
	sb.WriteString("\n\nIf you don't see enough content to answer the question, explain that you might not have access to all the page content and suggest the user try refreshing the page or viewing a different section.")
	return sb.String()
}

// Messages assembles the system message, the trailing history window and the
// new question.
func Messages(pc Context, past []history.Message, question string) []openai.ChatCompletionMessage {
	window := history.Last(past, HistoryWindow)
	msgs := make([]openai.ChatCompletionMessage, 0, len(window)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemMessage(pc)})
	for _, m := range window {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: question})
	return msgs
}

// Request returns the completion request for question.
func (c *Composer) Request(pc Context, past []history.Message, question string) openai.ChatCompletionRequest {
	model := c.Model
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temp := float32(DefaultTemperature)
	if c.Temperature != nil {
		temp = *c.Temperature
	}
	if temp == 0 {
		// go-openai omits a zero temperature from the request body.
		temp = math.SmallestNonzeroFloat32
	}
	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    Messages(pc, past, question),
		MaxTokens:   maxTokens,
		Temperature: temp,
	}
}

// Ask sends question and returns the first choice's content. When streaming
// is enabled and supported, onDelta receives each chunk as it arrives; if the
// stream fails midway the text received so far is returned with the error.
func (c *Composer) Ask(ctx context.Context, pc Context, past []history.Message, question string, onDelta func(string)) (string, error) {
	if c.Client == nil {
		return "", errors.New("chat client not configured")
	}
	req := c.Request(pc, past, question)

	est := budget.EstimateMessages(req.Messages)
	log.Debug().Str("model", req.Model).Int("messages", len(req.Messages)).Int("est_tokens", est).Msg("sending chat request")
	if !budget.FitsInContext(req.Model, req.MaxTokens, est) {
		log.Warn().Str("model", req.Model).Int("est_tokens", est).Msg("prompt may exceed model context")
	}

	if s, ok := c.Client.(llm.Streamer); ok && c.Stream {
		return c.stream(ctx, s, req, onDelta)
	}
	resp, err := c.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	out := resp.Choices[0].Message.Content
	if onDelta != nil {
		onDelta(out)
	}
	return out, nil
}

func (c *Composer) stream(ctx context.Context, s llm.Streamer, req openai.ChatCompletionRequest, onDelta func(string)) (string, error) {
	req.Stream = true
	st, err := s.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat stream: %w", err)
	}
	defer st.Close()

	var sb strings.Builder
	chunks := 0
	for {
		resp, err := st.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sb.String(), fmt.Errorf("chat stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		chunks++
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if chunks == 0 {
		return "", ErrNoChoices
	}
	return sb.String(), nil
}
