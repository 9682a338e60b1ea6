// Package substore routes classified memories to physical partitions
// and manages the one-time activation protocol that makes routing take
// effect.
package substore

import (
	"context"
	"sync"

	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/repository"
	"github.com/m-mizutani/membox/pkg/utils/logging"
)

// Partition binds one memory type to a named physical bucket
type Partition struct {
	Name string           `yaml:"name"`
	Type model.MemoryType `yaml:"memory_type"`
}

// DefaultPartitions is the standard sub-store layout. Semantic
// memories stay in the default bucket.
func DefaultPartitions() []Partition {
	return []Partition{
		{Name: "working_memories", Type: model.MemoryTypeWorking},
		{Name: "episodic_memories", Type: model.MemoryTypeEpisodic},
		{Name: "procedural_memories", Type: model.MemoryTypeProcedural},
	}
}

// Router translates memory type labels into target partitions. A
// partition only receives routed writes after it has been activated;
// until then everything falls back to the default bucket.
type Router struct {
	store      repository.Store
	partitions []Partition
	byType     map[model.MemoryType]string

	mu   sync.RWMutex
	live map[string]bool
}

// New creates a Router over the given store and partition layout
func New(store repository.Store, partitions []Partition) *Router {
	byType := make(map[model.MemoryType]string, len(partitions))
	for _, p := range partitions {
		byType[p.Type] = p.Name
	}

	return &Router{
		store:      store,
		partitions: partitions,
		byType:     byType,
		live:       make(map[string]bool),
	}
}

// ActivateAll activates every configured partition: records of the
// partition's type are migrated out of the default bucket and the
// partition is marked live for future routing. Safe to call again on
// an already-active store; markers persisted by the store prevent
// re-migration. A failing partition is logged and skipped so that the
// process can start in degraded (all-in-default) mode.
func (r *Router) ActivateAll(ctx context.Context) map[string]int {
	logger := logging.From(ctx)
	migrated := make(map[string]int, len(r.partitions))

	for _, p := range r.partitions {
		active, err := r.store.PartitionActive(ctx, p.Name)
		if err != nil {
			logger.Error("failed to check partition state, skipping",
				"partition", p.Name, "error", err)
			continue
		}

		if active {
			r.markLive(p.Name)
			migrated[p.Name] = 0
			continue
		}

		count, err := r.store.MigratePartition(ctx, p.Name, p.Type)
		if err != nil {
			logger.Error("failed to migrate partition, routing stays on default bucket",
				"partition", p.Name, "error", err)
			continue
		}

		if err := r.store.MarkPartitionActive(ctx, p.Name); err != nil {
			logger.Error("failed to mark partition active",
				"partition", p.Name, "error", err)
			continue
		}

		r.markLive(p.Name)
		migrated[p.Name] = count
		logger.Info("activated sub-store partition", "partition", p.Name, "migrated", count)
	}

	return migrated
}

func (r *Router) markLive(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[name] = true
}

func (r *Router) isLive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live[name]
}

// Route returns the target partition for a memory type. Types without
// an active partition route to the default bucket. MemoryTypeNone is
// filtered upstream and never reaches this call.
func (r *Router) Route(memoryType model.MemoryType) string {
	name, ok := r.byType[memoryType]
	if !ok || !r.isLive(name) {
		return repository.DefaultPartition
	}
	return name
}

// SearchPartitions returns the buckets to search for the given type
// filter. Filtered searches cover the routed partition plus the
// default bucket, since records written before activation stay there.
// An empty filter covers everything.
func (r *Router) SearchPartitions(memoryType model.MemoryType) []string {
	if memoryType == "" {
		return r.AllPartitions()
	}

	routed := r.Route(memoryType)
	if routed == repository.DefaultPartition {
		return []string{repository.DefaultPartition}
	}
	return []string{routed, repository.DefaultPartition}
}

// AllPartitions returns the default bucket plus every configured
// partition, active or not. Reads that must see every record (get-all,
// delete) use this set because earlier runs may have routed writes to
// partitions this process failed to activate.
func (r *Router) AllPartitions() []string {
	names := make([]string, 0, len(r.partitions)+1)
	names = append(names, repository.DefaultPartition)
	for _, p := range r.partitions {
		names = append(names, p.Name)
	}
	return names
}
