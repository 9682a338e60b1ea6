package classifier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/membox/pkg/adapter"
	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/service/classifier"
)

// mockCompleter is a mock implementation of adapter.Completer for testing
type mockCompleter struct {
	completeFunc func(ctx context.Context, prompt string, cfg adapter.CompletionConfig) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string, cfg adapter.CompletionConfig) (string, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, prompt, cfg)
	}
	return "", errors.New("not implemented")
}

func TestClassifyLabels(t *testing.T) {
	tests := []struct {
		name       string
		completion string
		expected   model.MemoryType
	}{
		{"semantic", "semantic", model.MemoryTypeSemantic},
		{"episodic", "episodic", model.MemoryTypeEpisodic},
		{"procedural", "procedural", model.MemoryTypeProcedural},
		{"working", "working", model.MemoryTypeWorking},
		{"none", "none", model.MemoryTypeNone},
		{"uppercase", "SEMANTIC", model.MemoryTypeSemantic},
		{"mixed case", "Episodic", model.MemoryTypeEpisodic},
		{"surrounding whitespace", "  working\n", model.MemoryTypeWorking},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			completer := &mockCompleter{
				completeFunc: func(ctx context.Context, prompt string, cfg adapter.CompletionConfig) (string, error) {
					return tc.completion, nil
				},
			}

			clsf := classifier.New(completer)
			label, err := clsf.Classify(context.Background(), "I live in Tokyo")
			gt.NoError(t, err)
			gt.V(t, label).Equal(tc.expected)
		})
	}
}

func TestClassifyIncludesConversation(t *testing.T) {
	var capturedPrompt string
	var capturedCfg adapter.CompletionConfig
	completer := &mockCompleter{
		completeFunc: func(ctx context.Context, prompt string, cfg adapter.CompletionConfig) (string, error) {
			capturedPrompt = prompt
			capturedCfg = cfg
			return "semantic", nil
		},
	}

	clsf := classifier.New(completer)
	_, err := clsf.Classify(context.Background(), "user: my cat is named Mochi")
	gt.NoError(t, err)

	gt.S(t, capturedPrompt).Contains("user: my cat is named Mochi")
	gt.S(t, capturedPrompt).Contains("semantic")
	gt.S(t, capturedPrompt).Contains("episodic")
	gt.V(t, capturedCfg.Temperature).Equal(0.0)
	gt.N(t, capturedCfg.MaxTokens).Greater(0)
}

func TestClassifyUnrecognizedLabel(t *testing.T) {
	tests := []struct {
		name       string
		completion string
	}{
		{"garbage", "I think this is a semantic memory about the user"},
		{"empty", ""},
		{"unknown label", "declarative"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			completer := &mockCompleter{
				completeFunc: func(ctx context.Context, prompt string, cfg adapter.CompletionConfig) (string, error) {
					return tc.completion, nil
				},
			}

			clsf := classifier.New(completer)
			_, err := clsf.Classify(context.Background(), "some content")
			gt.Error(t, err)
			gt.True(t, errors.Is(err, classifier.ErrUnrecognizedLabel))
		})
	}
}

func TestClassifyCompleterError(t *testing.T) {
	wantErr := errors.New("completion service unavailable")
	completer := &mockCompleter{
		completeFunc: func(ctx context.Context, prompt string, cfg adapter.CompletionConfig) (string, error) {
			return "", wantErr
		},
	}

	clsf := classifier.New(completer)
	_, err := clsf.Classify(context.Background(), "some content")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, wantErr))
	gt.False(t, errors.Is(err, classifier.ErrUnrecognizedLabel))
}
