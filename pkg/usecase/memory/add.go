package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/repository"
	"github.com/m-mizutani/membox/pkg/utils/logging"
)

// AddInput is a request to store one memory
type AddInput struct {
	Content string
	UserID  string
	// Type skips classification when set
	Type model.MemoryType
	// ImageURL is an optional reference to an uploaded image
	ImageURL string
}

// AddResult reports the outcome of an add operation. Skipped means the
// content was classified as not memorable; that is a normal outcome,
// not a failure.
type AddResult struct {
	Skipped        bool             `json:"skipped"`
	ClassifiedType model.MemoryType `json:"classified_type"`
	Memory         *model.Memory    `json:"memory,omitempty"`
}

// Add classifies the content (unless an explicit type is given),
// routes it to a partition, and persists it. Classification failures
// degrade to the semantic default; a write is never dropped because
// the classifier misbehaved. Store failures propagate.
func (u *UseCase) Add(ctx context.Context, input AddInput) (*AddResult, error) {
	if input.UserID == "" {
		return nil, goerr.New("user_id is required")
	}
	if input.Content == "" {
		return nil, goerr.New("content is required")
	}

	memoryType := u.resolveType(ctx, input.Content, input.Type)

	if memoryType == model.MemoryTypeNone {
		return &AddResult{Skipped: true, ClassifiedType: model.MemoryTypeNone}, nil
	}

	// An attached image is evidence of an event, not a standing fact
	if input.ImageURL != "" && memoryType == model.MemoryTypeSemantic {
		memoryType = model.MemoryTypeEpisodic
	}

	mem, err := u.store.Put(ctx, repository.PutInput{
		Partition: u.router.Route(memoryType),
		UserID:    input.UserID,
		Text:      input.Content,
		Type:      memoryType,
		ImageURL:  input.ImageURL,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist memory", goerr.V("user_id", input.UserID))
	}

	return &AddResult{ClassifiedType: memoryType, Memory: mem}, nil
}

// AddConversation stores a multi-turn exchange as one memory. The
// classifier sees the flattened "role: content" lines.
func (u *UseCase) AddConversation(ctx context.Context, messages []model.Message, userID string, explicitType model.MemoryType) (*AddResult, error) {
	if len(messages) == 0 {
		return nil, goerr.New("messages are required")
	}

	return u.Add(ctx, AddInput{
		Content: model.FlattenMessages(messages),
		UserID:  userID,
		Type:    explicitType,
	})
}

// resolveType returns the explicit type when given, otherwise
// classifies the content. Any classification error, including an
// unrecognized label, collapses to the semantic default here: a
// misclassified memory is recoverable, a dropped one is not.
func (u *UseCase) resolveType(ctx context.Context, content string, explicit model.MemoryType) model.MemoryType {
	if explicit != "" && explicit.Validate() == nil {
		return explicit
	}

	label, err := u.classifier.Classify(ctx, content)
	if err != nil {
		logging.From(ctx).Warn("classification degraded to semantic default", "error", err)
		return model.MemoryTypeSemantic
	}

	return label
}
