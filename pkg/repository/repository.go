// Package repository provides the embedding/similarity store that
// memories are persisted to and retrieved from. The store computes
// embeddings on write, performs vector search on read, and owns the
// physical partition layout; routing decisions stay in the substore
// service.
package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/model"
)

// DefaultPartition is the main bucket. Memories land here unless a
// sub-store partition has been activated for their type.
const DefaultPartition = "memories"

var (
	ErrMemoryNotFound = goerr.New("memory not found")
)

// Embedder converts text to an embedding vector. adapter.Gemini
// satisfies this interface.
type Embedder interface {
	Embedding(ctx context.Context, text string) ([]float32, error)
}

// PutInput is a routed write request
type PutInput struct {
	Partition string
	UserID    string
	Text      string
	Type      model.MemoryType
	ImageURL  string
}

// SearchInput is a similarity search request. Partitions lists the
// physical buckets to search; the substore router decides the set.
type SearchInput struct {
	Query          string
	UserID         string
	Partitions     []string
	Type           model.MemoryType // optional filter, empty matches all
	Limit          int
	IncludeProfile bool
}

// SearchOutput carries scored candidates ordered by similarity,
// plus the user profile when requested
type SearchOutput struct {
	Results []*model.ScoredMemory
	Profile string
}

// Store is the embedding/similarity store interface consumed by the
// memory orchestrator and the substore router.
type Store interface {
	// Put embeds the text and writes the record to the given partition.
	// The returned memory has its ID and CreatedAt assigned.
	Put(ctx context.Context, input PutInput) (*model.Memory, error)

	// Search performs vector search over the given partitions and
	// returns candidates ordered by similarity score (descending)
	Search(ctx context.Context, input SearchInput) (*SearchOutput, error)

	// GetAll retrieves every memory of a user across the partitions
	GetAll(ctx context.Context, userID string, partitions []string) ([]*model.Memory, error)

	// Delete removes a memory owned by the user. Returns
	// ErrMemoryNotFound if no partition holds the record.
	Delete(ctx context.Context, userID string, id model.MemoryID, partitions []string) error

	// Profile returns the store-computed summary of a user's memories
	Profile(ctx context.Context, userID string) (string, error)

	// MigratePartition moves records of the given type from the default
	// partition into the named partition, returning the count moved
	MigratePartition(ctx context.Context, partition string, memoryType model.MemoryType) (int, error)

	// PartitionActive reports whether the partition has been activated
	PartitionActive(ctx context.Context, partition string) (bool, error)

	// MarkPartitionActive marks the partition live for routing. The
	// marker persists so re-activation skips migration.
	MarkPartitionActive(ctx context.Context, partition string) error
}
