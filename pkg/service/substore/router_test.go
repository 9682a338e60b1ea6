package substore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/repository"
	"github.com/m-mizutani/membox/pkg/service/substore"
)

// mockStore is a mock implementation of repository.Store covering the
// activation surface used by the router
type mockStore struct {
	repository.Store

	migrateFunc func(ctx context.Context, partition string, memoryType model.MemoryType) (int, error)
	activeFunc  func(ctx context.Context, partition string) (bool, error)
	markFunc    func(ctx context.Context, partition string) error
}

func (m *mockStore) MigratePartition(ctx context.Context, partition string, memoryType model.MemoryType) (int, error) {
	if m.migrateFunc != nil {
		return m.migrateFunc(ctx, partition, memoryType)
	}
	return 0, nil
}

func (m *mockStore) PartitionActive(ctx context.Context, partition string) (bool, error) {
	if m.activeFunc != nil {
		return m.activeFunc(ctx, partition)
	}
	return false, nil
}

func (m *mockStore) MarkPartitionActive(ctx context.Context, partition string) error {
	if m.markFunc != nil {
		return m.markFunc(ctx, partition)
	}
	return nil
}

func TestRouteBeforeActivation(t *testing.T) {
	router := substore.New(&mockStore{}, substore.DefaultPartitions())

	// Nothing is live yet, so every type routes to the default bucket
	for _, memoryType := range model.MemoryTypes {
		gt.V(t, router.Route(memoryType)).Equal(repository.DefaultPartition)
	}
}

func TestRouteAfterActivation(t *testing.T) {
	ctx := context.Background()
	router := substore.New(&mockStore{}, substore.DefaultPartitions())
	router.ActivateAll(ctx)

	gt.V(t, router.Route(model.MemoryTypeWorking)).Equal("working_memories")
	gt.V(t, router.Route(model.MemoryTypeEpisodic)).Equal("episodic_memories")
	gt.V(t, router.Route(model.MemoryTypeProcedural)).Equal("procedural_memories")

	// Semantic has no configured partition and stays in the default bucket
	gt.V(t, router.Route(model.MemoryTypeSemantic)).Equal(repository.DefaultPartition)
}

func TestActivateAllMigratesOnce(t *testing.T) {
	ctx := context.Background()

	migrations := map[string]int{}
	marked := map[string]bool{}
	store := &mockStore{
		migrateFunc: func(ctx context.Context, partition string, memoryType model.MemoryType) (int, error) {
			migrations[partition]++
			return 3, nil
		},
		activeFunc: func(ctx context.Context, partition string) (bool, error) {
			return marked[partition], nil
		},
		markFunc: func(ctx context.Context, partition string) error {
			marked[partition] = true
			return nil
		},
	}

	router := substore.New(store, substore.DefaultPartitions())

	counts := router.ActivateAll(ctx)
	gt.V(t, counts["working_memories"]).Equal(3)
	gt.V(t, counts["episodic_memories"]).Equal(3)
	gt.V(t, counts["procedural_memories"]).Equal(3)

	// Second activation sees the persisted markers and skips migration
	counts = router.ActivateAll(ctx)
	gt.V(t, counts["working_memories"]).Equal(0)
	gt.V(t, migrations["working_memories"]).Equal(1)
	gt.V(t, migrations["episodic_memories"]).Equal(1)
	gt.V(t, migrations["procedural_memories"]).Equal(1)
}

func TestActivateAllPartialFailure(t *testing.T) {
	ctx := context.Background()

	store := &mockStore{
		migrateFunc: func(ctx context.Context, partition string, memoryType model.MemoryType) (int, error) {
			if partition == "episodic_memories" {
				return 0, errors.New("backend unavailable")
			}
			return 1, nil
		},
	}

	router := substore.New(store, substore.DefaultPartitions())
	counts := router.ActivateAll(ctx)

	// The failing partition is skipped, the others still activate
	_, failed := counts["episodic_memories"]
	gt.False(t, failed)
	gt.V(t, counts["working_memories"]).Equal(1)
	gt.V(t, counts["procedural_memories"]).Equal(1)

	// Routing stays on the default bucket for the failed partition only
	gt.V(t, router.Route(model.MemoryTypeEpisodic)).Equal(repository.DefaultPartition)
	gt.V(t, router.Route(model.MemoryTypeWorking)).Equal("working_memories")
}

func TestSearchPartitions(t *testing.T) {
	ctx := context.Background()
	router := substore.New(&mockStore{}, substore.DefaultPartitions())
	router.ActivateAll(ctx)

	t.Run("filtered search covers routed partition and default", func(t *testing.T) {
		got := router.SearchPartitions(model.MemoryTypeWorking)
		gt.A(t, got).Length(2)
		gt.A(t, got).Has("working_memories")
		gt.A(t, got).Has(repository.DefaultPartition)
	})

	t.Run("type without partition searches default only", func(t *testing.T) {
		got := router.SearchPartitions(model.MemoryTypeSemantic)
		gt.A(t, got).Length(1)
		gt.A(t, got).Has(repository.DefaultPartition)
	})

	t.Run("empty filter searches everything", func(t *testing.T) {
		got := router.SearchPartitions("")
		gt.A(t, got).Length(4)
		gt.A(t, got).Has(repository.DefaultPartition)
		gt.A(t, got).Has("working_memories")
		gt.A(t, got).Has("episodic_memories")
		gt.A(t, got).Has("procedural_memories")
	})
}

func TestAllPartitions(t *testing.T) {
	router := substore.New(&mockStore{}, substore.DefaultPartitions())

	// Includes inactive partitions: earlier runs may have written there
	got := router.AllPartitions()
	gt.A(t, got).Length(4)
	gt.A(t, got).Has(repository.DefaultPartition)
}
