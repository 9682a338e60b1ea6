package adapter

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
)

// Claude is the interface for the Claude API client. It satisfies
// Completer and can stand in for Gemini as the classification backend.
type Claude interface {
	Complete(ctx context.Context, prompt string, cfg CompletionConfig) (string, error)
}

// claudeClient implements Claude interface
type claudeClient struct {
	client *anthropic.Client
	model  anthropic.Model
}

type ClaudeOption func(*claudeClient)

func WithClaudeModel(model anthropic.Model) ClaudeOption {
	return func(c *claudeClient) {
		c.model = model
	}
}

// NewClaude creates a new Claude API client
func NewClaude(apiKey string, opts ...ClaudeOption) Claude {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	c := &claudeClient{
		client: &client,
		model:  anthropic.ModelClaudeSonnet4_0,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *claudeClient) Complete(ctx context.Context, prompt string, cfg CompletionConfig) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(cfg.MaxTokens),
		Temperature: anthropic.Float(float64(cfg.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create message")
	}

	var parts []string
	for _, content := range message.Content {
		if content.Type == "text" {
			parts = append(parts, content.AsText().Text)
		}
	}

	return strings.Join(parts, ""), nil
}
