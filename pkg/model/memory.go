package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidMemoryType = goerr.New("invalid memory type")
)

type MemoryID string

// NewMemoryID generates a new unique MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

// MemoryType is the classification label of a memory. The label set is
// closed: four storable types plus MemoryTypeNone, which marks content
// that is not worth persisting.
type MemoryType string

const (
	// MemoryTypeSemantic is for static facts about the user or the world
	MemoryTypeSemantic MemoryType = "semantic"
	// MemoryTypeEpisodic is for time-bound experiences and events
	MemoryTypeEpisodic MemoryType = "episodic"
	// MemoryTypeProcedural is for instructions and rules for the assistant
	MemoryTypeProcedural MemoryType = "procedural"
	// MemoryTypeWorking is for short-lived tasks and reminders
	MemoryTypeWorking MemoryType = "working"
	// MemoryTypeNone marks content that should not be stored
	MemoryTypeNone MemoryType = "none"
)

// MemoryTypes lists the storable types, excluding MemoryTypeNone
var MemoryTypes = []MemoryType{
	MemoryTypeSemantic,
	MemoryTypeEpisodic,
	MemoryTypeProcedural,
	MemoryTypeWorking,
}

// Validate checks if the memory type is one of the label set
func (t MemoryType) Validate() error {
	switch t {
	case MemoryTypeSemantic, MemoryTypeEpisodic, MemoryTypeProcedural, MemoryTypeWorking, MemoryTypeNone:
		return nil
	default:
		return goerr.Wrap(ErrInvalidMemoryType, "unknown label", goerr.V("type", string(t)))
	}
}

// Storable reports whether a memory of this type should be persisted
func (t MemoryType) Storable() bool {
	return t.Validate() == nil && t != MemoryTypeNone
}

// Memory is the unit of storage. ID and CreatedAt are assigned by the
// store on creation and immutable afterward; the type is never
// reclassified once written.
type Memory struct {
	ID       MemoryID   `json:"id"`
	UserID   string     `json:"user_id"`
	Text     string     `json:"text"`
	Type     MemoryType `json:"memory_type"`
	ImageURL string     `json:"image_url,omitempty"`

	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoredMemory is a search candidate. Score comes from the similarity
// store, Retention and Combined are derived at query time and never
// persisted.
type ScoredMemory struct {
	Memory
	Score     float64 `json:"score"`
	Retention float64 `json:"retention,omitempty"`
	Combined  float64 `json:"combined_score,omitempty"`
}
