// Package classifier assigns a memory type label to conversational text
// with a single call to a text completion service.
package classifier

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/adapter"
	"github.com/m-mizutani/membox/pkg/model"
)

// ErrUnrecognizedLabel is returned when the completion text does not
// match any label of the taxonomy. Callers decide the fallback; the
// orchestrator collapses it to the semantic default so that a
// misclassification never fails a write.
var ErrUnrecognizedLabel = goerr.New("completion did not match a memory type label")

//go:embed prompt/classify.md
var classifyPromptRaw string

var classifyPromptTmpl = template.Must(template.New("classify").Parse(classifyPromptRaw))

const (
	// maxTokens keeps the completion to a single label word
	maxTokens = 20
	// temperature biases the completion toward determinism
	temperature = 0.0
)

// Classifier maps raw conversational text to one memory type label
type Classifier struct {
	completer adapter.Completer
}

// New creates a Classifier on top of a text completion service
func New(completer adapter.Completer) *Classifier {
	return &Classifier{completer: completer}
}

// Classify builds the taxonomy prompt around the conversation text and
// parses the completion into a label. It returns ErrUnrecognizedLabel
// when the completion is not one of the five labels, and propagates
// completion service errors as-is.
func (c *Classifier) Classify(ctx context.Context, conversation string) (model.MemoryType, error) {
	var buf bytes.Buffer
	if err := classifyPromptTmpl.Execute(&buf, map[string]any{
		"Conversation": conversation,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute classify prompt template")
	}

	raw, err := c.completer.Complete(ctx, buf.String(), adapter.CompletionConfig{
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to complete classification")
	}

	label := model.MemoryType(strings.ToLower(strings.TrimSpace(raw)))
	if err := label.Validate(); err != nil {
		return "", goerr.Wrap(ErrUnrecognizedLabel, "unexpected completion", goerr.V("completion", raw))
	}

	return label, nil
}
