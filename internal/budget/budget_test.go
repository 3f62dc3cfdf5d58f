package budget

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestEstimateTokensFromChars(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{400, 100},
	}
	for _, c := range cases {
		if got := EstimateTokensFromChars(c.in); got != c.want {
			t.Fatalf("EstimateTokensFromChars(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEstimateTokens_CountsRunes(t *testing.T) {
	// 4 runes, 8 bytes
	if got := EstimateTokens("äöüß"); got != 1 {
		t.Fatalf("EstimateTokens = %d, want 1", got)
	}
}

func TestEstimateMessages(t *testing.T) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "system"},      // 2 + 4
		{Role: openai.ChatMessageRoleUser, Content: "user message"}, // 3 + 4
	}
	if got := EstimateMessages(msgs); got != 13 {
		t.Fatalf("EstimateMessages = %d, want 13", got)
	}
}

func TestModelContextTokens(t *testing.T) {
	if ModelContextTokens("") != 8192 {
		t.Fatal("empty model should default to 8192")
	}
	if ModelContextTokens("GPT-4o") != 128_000 {
		t.Fatal("gpt-4o lookup should be case-insensitive")
	}
	if ModelContextTokens("gpt-4o-2024-08-06") != 128_000 {
		t.Fatal("dated gpt-4o snapshots should map to 128k")
	}
	if ModelContextTokens("mystery-32k") != 32_768 {
		t.Fatal("32k suffix heuristic")
	}
}

func TestFitsInContext(t *testing.T) {
	if !FitsInContext("gpt-4", 500, 7000) {
		t.Fatal("7000+500 should fit into 8192")
	}
	if FitsInContext("gpt-4", 500, 8000) {
		t.Fatal("8000+500 should not fit into 8192")
	}
}
