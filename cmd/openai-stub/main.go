package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

const systemMarker = "helps users understand web pages"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newMux(model)); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func newMux(model string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer sk-") {
			writeError(w, http.StatusUnauthorized, "Incorrect API key provided.")
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Messages) == 0 || !strings.Contains(req.Messages[0].Content, systemMarker) {
			writeError(w, http.StatusBadRequest, "unexpected system message")
			return
		}
		content := answer(req.Messages)
		log.Debug().Int("messages", len(req.Messages)).Bool("stream", req.Stream).Msg("chat completion")
		if req.Stream {
			stream(w, content)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{
				{"index": 0, "message": chatMessage{Role: "assistant", Content: content}, "finish_reason": "stop"},
			},
		})
	})
	return mux
}

// answer produces a deterministic reply naming the page and the question.
func answer(msgs []chatMessage) string {
	title := "this page"
	for _, line := range strings.Split(msgs[0].Content, "\n") {
		if t, ok := strings.CutPrefix(line, "Title: "); ok && strings.TrimSpace(t) != "" {
			title = strings.TrimSpace(t)
			break
		}
	}
	question := strings.TrimSpace(msgs[len(msgs)-1].Content)
	prior := len(msgs) - 2
	return fmt.Sprintf("About **%s**: you asked %q. (%d earlier messages in context)", title, question, prior)
}

// stream writes content as server-sent events, one word per chunk.
func stream(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)
	words := strings.SplitAfter(content, " ")
	for _, word := range words {
		chunk := map[string]any{
			"object":  "chat.completion.chunk",
			"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": word}}},
		}
		b, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", b)
		if flusher != nil {
			flusher.Flush()
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": msg, "type": "invalid_request_error"},
	})
}
