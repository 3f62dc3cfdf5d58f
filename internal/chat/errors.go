package chat

import (
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/pageassist/internal/llm"
)

const errorPrefix = "Sorry, I encountered an error. "

// DescribeError turns a failed request into the text shown to the user in
// place of an answer.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	switch llm.StatusCode(err) {
	case http.StatusUnauthorized:
		return errorPrefix + "Invalid API key. Please check your API key configuration."
	case http.StatusForbidden:
		return errorPrefix + "Access denied. Please verify your API key configuration."
	case http.StatusTooManyRequests:
		return errorPrefix + "Rate limit exceeded. Please wait a moment and try again."
	case http.StatusInternalServerError:
		return errorPrefix + "OpenAI server error. Please try again later."
	}
	return errorPrefix + "Error: " + message(err)
}

func message(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
