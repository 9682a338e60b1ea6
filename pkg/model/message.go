package model

import "strings"

// Message is a single turn of a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FlattenMessages joins conversation turns into "role: content" lines,
// the form the classifier and extraction prompts consume.
func FlattenMessages(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, msg.Role+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}
