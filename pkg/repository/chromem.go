package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/adapter"
	"github.com/m-mizutani/membox/pkg/model"
	chromem "github.com/philippgille/chromem-go"
)

// Chromem implements Store with an embedded pure-Go vector database.
// It is meant for local development and tests; nothing survives a
// process restart. A side index keeps full records because chromem
// collections only support similarity queries.
type Chromem struct {
	db        *chromem.DB
	embedder  Embedder
	completer adapter.Completer

	mu      sync.RWMutex
	records map[string]map[model.MemoryID]*model.Memory // partition -> id -> memory
	active  map[string]bool
}

type ChromemOption func(*Chromem)

// WithChromemCompleter enables LLM-generated user profiles
func WithChromemCompleter(completer adapter.Completer) ChromemOption {
	return func(c *Chromem) {
		c.completer = completer
	}
}

// NewChromem creates an in-memory store backed by chromem-go
func NewChromem(embedder Embedder, opts ...ChromemOption) *Chromem {
	c := &Chromem{
		db:       chromem.NewDB(),
		embedder: embedder,
		records:  make(map[string]map[model.MemoryID]*model.Memory),
		active:   make(map[string]bool),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Chromem) collection(partition string) (*chromem.Collection, error) {
	col, err := c.db.GetOrCreateCollection(partition, nil, c.embeddingFunc())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get collection", goerr.V("partition", partition))
	}
	return col, nil
}

func (c *Chromem) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return c.embedder.Embedding(ctx, text)
	}
}

func (c *Chromem) Put(ctx context.Context, input PutInput) (*model.Memory, error) {
	col, err := c.collection(input.Partition)
	if err != nil {
		return nil, err
	}

	mem := &model.Memory{
		ID:        model.NewMemoryID(),
		UserID:    input.UserID,
		Text:      input.Text,
		Type:      input.Type,
		ImageURL:  input.ImageURL,
		CreatedAt: time.Now(),
	}

	if err := col.AddDocument(ctx, chromem.Document{
		ID:      string(mem.ID),
		Content: mem.Text,
		Metadata: map[string]string{
			"user_id":     mem.UserID,
			"memory_type": string(mem.Type),
		},
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to add document", goerr.V("partition", input.Partition))
	}

	c.mu.Lock()
	if c.records[input.Partition] == nil {
		c.records[input.Partition] = make(map[model.MemoryID]*model.Memory)
	}
	c.records[input.Partition][mem.ID] = mem
	c.mu.Unlock()

	return mem, nil
}

// countMatching returns how many records in the partition satisfy the
// user/type filter. chromem rejects queries asking for more results
// than the collection holds, so the caller clamps to this count.
func (c *Chromem) countMatching(partition, userID string, memoryType model.MemoryType) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, mem := range c.records[partition] {
		if mem.UserID != userID {
			continue
		}
		if memoryType != "" && mem.Type != memoryType {
			continue
		}
		n++
	}
	return n
}

func (c *Chromem) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	var results []*model.ScoredMemory

	for _, partition := range input.Partitions {
		n := input.Limit
		if matching := c.countMatching(partition, input.UserID, input.Type); matching < n {
			n = matching
		}
		if n == 0 {
			continue
		}

		col, err := c.collection(partition)
		if err != nil {
			return nil, err
		}

		where := map[string]string{"user_id": input.UserID}
		if input.Type != "" {
			where["memory_type"] = string(input.Type)
		}

		found, err := col.Query(ctx, input.Query, n, where, nil)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query collection", goerr.V("partition", partition))
		}

		c.mu.RLock()
		for _, res := range found {
			mem, ok := c.records[partition][model.MemoryID(res.ID)]
			if !ok {
				continue
			}
			results = append(results, &model.ScoredMemory{
				Memory: *mem,
				Score:  float64(res.Similarity),
			})
		}
		c.mu.RUnlock()
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > input.Limit {
		results = results[:input.Limit]
	}

	out := &SearchOutput{Results: results}

	if input.IncludeProfile {
		profile, err := c.Profile(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		out.Profile = profile
	}

	return out, nil
}

func (c *Chromem) GetAll(ctx context.Context, userID string, partitions []string) ([]*model.Memory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var memories []*model.Memory
	for _, partition := range partitions {
		for _, mem := range c.records[partition] {
			if mem.UserID == userID {
				memories = append(memories, mem)
			}
		}
	}

	return memories, nil
}

func (c *Chromem) Delete(ctx context.Context, userID string, id model.MemoryID, partitions []string) error {
	for _, partition := range partitions {
		c.mu.RLock()
		mem, ok := c.records[partition][id]
		c.mu.RUnlock()
		if !ok || mem.UserID != userID {
			continue
		}

		col, err := c.collection(partition)
		if err != nil {
			return err
		}
		if err := col.Delete(ctx, nil, nil, string(id)); err != nil {
			return goerr.Wrap(err, "failed to delete document", goerr.V("id", id))
		}

		c.mu.Lock()
		delete(c.records[partition], id)
		c.mu.Unlock()
		return nil
	}

	return goerr.Wrap(ErrMemoryNotFound, "no partition holds the memory", goerr.V("id", id))
}

func (c *Chromem) Profile(ctx context.Context, userID string) (string, error) {
	c.mu.RLock()
	var memories []*model.Memory
	for _, byID := range c.records {
		for _, mem := range byID {
			if mem.UserID == userID {
				memories = append(memories, mem)
			}
		}
	}
	c.mu.RUnlock()

	return generateProfile(ctx, c.completer, memories)
}

func (c *Chromem) MigratePartition(ctx context.Context, partition string, memoryType model.MemoryType) (int, error) {
	c.mu.RLock()
	var moving []*model.Memory
	for _, mem := range c.records[DefaultPartition] {
		if mem.Type == memoryType {
			moving = append(moving, mem)
		}
	}
	c.mu.RUnlock()

	if len(moving) == 0 {
		return 0, nil
	}

	src, err := c.collection(DefaultPartition)
	if err != nil {
		return 0, err
	}
	dst, err := c.collection(partition)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, mem := range moving {
		if err := dst.AddDocument(ctx, chromem.Document{
			ID:      string(mem.ID),
			Content: mem.Text,
			Metadata: map[string]string{
				"user_id":     mem.UserID,
				"memory_type": string(mem.Type),
			},
		}); err != nil {
			return migrated, goerr.Wrap(err, "failed to copy record to partition",
				goerr.V("partition", partition), goerr.V("id", mem.ID))
		}
		if err := src.Delete(ctx, nil, nil, string(mem.ID)); err != nil {
			return migrated, goerr.Wrap(err, "failed to remove migrated record", goerr.V("id", mem.ID))
		}

		c.mu.Lock()
		if c.records[partition] == nil {
			c.records[partition] = make(map[model.MemoryID]*model.Memory)
		}
		c.records[partition][mem.ID] = mem
		delete(c.records[DefaultPartition], mem.ID)
		c.mu.Unlock()
		migrated++
	}

	return migrated, nil
}

func (c *Chromem) PartitionActive(ctx context.Context, partition string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active[partition], nil
}

func (c *Chromem) MarkPartitionActive(ctx context.Context, partition string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[partition] = true
	return nil
}
