// Package chat generates memory-aware assistant responses: related
// memories and the user profile are retrieved for the latest message,
// injected into the system prompt, and the exchange is recorded back
// into memory after the response is produced.
package chat

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/adapter"
	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/usecase/memory"
	"github.com/m-mizutani/membox/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/system.md
var systemPromptRaw string

var systemPromptTmpl = template.Must(template.New("system").Parse(systemPromptRaw))

const memorySearchLimit = 5

// UseCase provides chat completion over the memory layer
type UseCase struct {
	memory *memory.UseCase
	gemini adapter.Gemini

	// detach controls whether the post-response memory write runs as a
	// detached task. It stays on everywhere except in tests.
	detach bool
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithSynchronousRecording makes the post-response memory write run
// inline. Used by tests and hosts that manage their own task queue.
func WithSynchronousRecording() Option {
	return func(uc *UseCase) {
		uc.detach = false
	}
}

// New creates a chat UseCase instance
func New(mem *memory.UseCase, gemini adapter.Gemini, opts ...Option) *UseCase {
	uc := &UseCase{
		memory: mem,
		gemini: gemini,
		detach: true,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Input is a chat completion request
type Input struct {
	Messages []model.Message
	UserID   string
}

// Output is a non-streaming chat completion response
type Output struct {
	Message       string `json:"message"`
	MemoryContext string `json:"memory_context"`
}

// Complete generates a single response and records the exchange
func (u *UseCase) Complete(ctx context.Context, input Input) (*Output, error) {
	contents, config, memoryContext, err := u.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	resp, err := u.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate chat response")
	}

	message := responseText(resp)
	u.record(ctx, input, message)

	return &Output{Message: message, MemoryContext: memoryContext}, nil
}

// CompleteStream yields response chunks as they arrive. The exchange
// is recorded once the stream has fully drained; an abandoned stream
// is not recorded.
func (u *UseCase) CompleteStream(ctx context.Context, input Input) func(yield func(string, error) bool) {
	return func(yield func(string, error) bool) {
		contents, config, _, err := u.prepare(ctx, input)
		if err != nil {
			yield("", err)
			return
		}

		var full strings.Builder
		for resp, err := range u.gemini.GenerateContentStream(ctx, contents, config) {
			if err != nil {
				yield("", goerr.Wrap(err, "failed to stream chat response"))
				return
			}

			chunk := responseText(resp)
			if chunk == "" {
				continue
			}
			full.WriteString(chunk)
			if !yield(chunk, nil) {
				return
			}
		}

		u.record(ctx, input, full.String())
	}
}

// prepare retrieves memory context for the latest user message and
// assembles the generation request
func (u *UseCase) prepare(ctx context.Context, input Input) ([]*genai.Content, *genai.GenerateContentConfig, string, error) {
	if len(input.Messages) == 0 {
		return nil, nil, "", goerr.New("messages are required")
	}
	if input.UserID == "" {
		return nil, nil, "", goerr.New("user_id is required")
	}

	lastMessage := input.Messages[len(input.Messages)-1].Content

	found, err := u.memory.Search(ctx, memory.SearchInput{
		Query:          lastMessage,
		UserID:         input.UserID,
		Limit:          memorySearchLimit,
		IncludeProfile: true,
	})
	if err != nil {
		return nil, nil, "", goerr.Wrap(err, "failed to retrieve memory context")
	}

	memoryContext := buildContext(found)

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, map[string]any{
		"Context": memoryContext,
	}); err != nil {
		return nil, nil, "", goerr.Wrap(err, "failed to execute system prompt template")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(buf.String(), ""),
	}

	contents := make([]*genai.Content, 0, len(input.Messages))
	for _, msg := range input.Messages {
		role := genai.Role(genai.RoleUser)
		if msg.Role == "assistant" || msg.Role == string(genai.RoleModel) {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	return contents, config, memoryContext, nil
}

// record persists the latest exchange as a conversation memory. It is
// fire-and-forget by default: failures are logged, never surfaced to
// the caller, and the response path is not blocked.
func (u *UseCase) record(ctx context.Context, input Input, response string) {
	if response == "" {
		return
	}

	// Keep the tail of the conversation: the last user turn(s) plus the
	// new assistant response
	messages := input.Messages
	if len(messages) > 2 {
		messages = messages[len(messages)-2:]
	}
	conversation := make([]model.Message, 0, len(messages)+1)
	conversation = append(conversation, messages...)
	conversation = append(conversation, model.Message{Role: "assistant", Content: response})

	save := func(ctx context.Context) {
		if _, err := u.memory.AddConversation(ctx, conversation, input.UserID, ""); err != nil {
			logging.From(ctx).Warn("failed to record conversation memory",
				"user_id", input.UserID, "error", err)
		}
	}

	if u.detach {
		go save(context.WithoutCancel(ctx))
		return
	}
	save(ctx)
}

func buildContext(found *memory.SearchResult) string {
	var parts []string

	if found.Profile != "" {
		parts = append(parts, "User Profile: "+found.Profile)
	}

	if len(found.Results) > 0 {
		parts = append(parts, "Related Memories:")
		for _, mem := range found.Results {
			parts = append(parts, "  - "+mem.Text)
		}
	}

	if len(parts) == 0 {
		return "No related memories yet"
	}
	return strings.Join(parts, "\n")
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "")
}
