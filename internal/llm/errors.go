package llm

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// ErrStreamingUnsupported is returned when the wrapped client cannot stream.
var ErrStreamingUnsupported = errors.New("streaming not supported by client")

// StatusCode extracts the HTTP status of a failed API call, or 0.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
