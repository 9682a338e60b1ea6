package repository

import (
	"bytes"
	"context"
	_ "embed"
	"sort"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/adapter"
	"github.com/m-mizutani/membox/pkg/model"
)

//go:embed prompt/profile.md
var profilePromptRaw string

var profilePromptTmpl = template.Must(template.New("profile").Parse(profilePromptRaw))

const (
	profileMaxMemories = 50
	profileMaxTokens   = 512
)

// generateProfile summarizes a user's memories into a profile blob via
// the completion service. Without a completer it degrades to a plain
// listing of the most recent memories, so the profile surface keeps
// working in local setups.
func generateProfile(ctx context.Context, completer adapter.Completer, memories []*model.Memory) (string, error) {
	if len(memories) == 0 {
		return "", nil
	}

	sort.Slice(memories, func(i, j int) bool {
		return memories[i].CreatedAt.After(memories[j].CreatedAt)
	})
	if len(memories) > profileMaxMemories {
		memories = memories[:profileMaxMemories]
	}

	texts := make([]string, 0, len(memories))
	for _, m := range memories {
		if m.Text != "" {
			texts = append(texts, m.Text)
		}
	}

	if completer == nil {
		var buf bytes.Buffer
		for _, t := range texts {
			buf.WriteString("- ")
			buf.WriteString(t)
			buf.WriteString("\n")
		}
		return buf.String(), nil
	}

	var buf bytes.Buffer
	if err := profilePromptTmpl.Execute(&buf, map[string]any{
		"Memories": texts,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute profile prompt template")
	}

	profile, err := completer.Complete(ctx, buf.String(), adapter.CompletionConfig{
		MaxTokens:   profileMaxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate profile")
	}

	return profile, nil
}
