package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubClient(t *testing.T, key string) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(newMux("gpt-4o"))
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func pageRequest(question string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: "gpt-4o",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a helpful AI assistant that helps users understand web pages. Here is the content of the current webpage:\n\nTitle: Release Notes\nURL: https://example.com\nContent: text"},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	}
}

func TestStub_Completion(t *testing.T) {
	c := stubClient(t, "sk-test")
	resp, err := c.CreateChatCompletion(context.Background(), pageRequest("What changed?"))
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, `About **Release Notes**: you asked "What changed?". (0 earlier messages in context)`, resp.Choices[0].Message.Content)
}

func TestStub_Stream(t *testing.T) {
	c := stubClient(t, "sk-test")
	req := pageRequest("Summarize")
	req.Stream = true
	s, err := c.CreateChatCompletionStream(context.Background(), req)
	require.NoError(t, err)
	defer s.Close()

	var sb strings.Builder
	for {
		r, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(r.Choices[0].Delta.Content)
	}
	assert.Contains(t, sb.String(), `you asked "Summarize"`)
}

func TestStub_RejectsBadKey(t *testing.T) {
	c := stubClient(t, "bad")
	_, err := c.CreateChatCompletion(context.Background(), pageRequest("hi"))
	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
}
