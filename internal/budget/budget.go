package budget

import (
	"math"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

// messageOverhead approximates per-message role and framing tokens.
const messageOverhead = 4

// EstimateTokensFromChars converts a character count into an estimated token
// count (~4 chars per token in English), rounding up.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// EstimateMessages estimates the prompt size of a chat request.
func EstimateMessages(msgs []openai.ChatCompletionMessage) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead + EstimateTokens(m.Content)
	}
	return total
}

// ModelContextTokens returns an estimated context window for modelName.
// Unknown models fall back to 8192.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	switch {
	case strings.HasSuffix(name, "1m"):
		return 1_000_000
	case strings.HasSuffix(name, "128k"):
		return 128_000
	case strings.HasSuffix(name, "32k"):
		return 32_768
	case strings.HasPrefix(name, "gpt-4o"), strings.HasPrefix(name, "gpt-4.1"), strings.Contains(name, "-mini"):
		return 128_000
	}
	return 8192
}

// FitsInContext reports whether promptTokens plus the output reservation fit
// into the model's context window.
func FitsInContext(modelName string, reservedForOutput int, promptTokens int) bool {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	return promptTokens+reservedForOutput <= ModelContextTokens(modelName)
}

// knownModelMax contains rough context sizes for common model identifiers.
var knownModelMax = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-4":         8_192,
	"gpt-3.5-turbo": 16_384,
	"llama-3":       8_192,
	"llama-3.1":     128_000,
}
