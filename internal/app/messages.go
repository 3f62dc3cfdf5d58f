package app

import "github.com/hyperifyio/pageassist/internal/history"

func userMessage(s string) history.Message {
	return history.Message{Role: history.RoleUser, Content: s}
}

func assistantMessage(s string) history.Message {
	return history.Message{Role: history.RoleAssistant, Content: s}
}
