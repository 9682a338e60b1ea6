// Package memory is the facade over classification, routing,
// persistence, and retention-weighted retrieval.
package memory

import (
	"context"

	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/repository"
	"github.com/m-mizutani/membox/pkg/service/classifier"
	"github.com/m-mizutani/membox/pkg/service/substore"
)

const (
	// DefaultReviewThreshold selects memories faded enough to be worth
	// resurfacing to the user
	DefaultReviewThreshold = 0.3

	// defaultSearchLimit applies when a search request omits the limit
	defaultSearchLimit = 5

	// overfetchFactor widens the candidate pool for retention-weighted
	// search, since decay reweighting can reorder which items make the
	// final cut
	overfetchFactor = 2
)

// UseCase combines the classifier, the sub-store router, and the
// similarity store into the memory operations exposed to controllers.
// Construct one instance at startup and share it; all state lives in
// the collaborators.
type UseCase struct {
	store      repository.Store
	classifier *classifier.Classifier
	router     *substore.Router
}

// New creates a memory UseCase instance
func New(store repository.Store, clsf *classifier.Classifier, router *substore.Router) *UseCase {
	return &UseCase{
		store:      store,
		classifier: clsf,
		router:     router,
	}
}

// Activate runs the sub-store activation protocol. Call once at
// process start, before serving routed operations; failures degrade to
// the default bucket and never abort startup.
func (u *UseCase) Activate(ctx context.Context) map[string]int {
	return u.router.ActivateAll(ctx)
}

// Profile returns the store-computed summary of the user's memories
func (u *UseCase) Profile(ctx context.Context, userID string) (string, error) {
	return u.store.Profile(ctx, userID)
}

// GetAll returns every memory of the user across all partitions
func (u *UseCase) GetAll(ctx context.Context, userID string) ([]*model.Memory, error) {
	return u.store.GetAll(ctx, userID, u.router.AllPartitions())
}
