package adapter

import "context"

// CompletionConfig controls a single short completion request
type CompletionConfig struct {
	MaxTokens   int32
	Temperature float32
}

// Completer is the narrow text completion surface consumed by the
// classifier and the profile generator. Both Gemini and Claude adapters
// implement it.
type Completer interface {
	Complete(ctx context.Context, prompt string, cfg CompletionConfig) (string, error)
}
