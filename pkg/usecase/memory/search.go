package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/repository"
	"github.com/m-mizutani/membox/pkg/service/retention"
)

// SearchInput is a ranked retrieval request
type SearchInput struct {
	Query  string
	UserID string
	// Type restricts results to one memory type when set
	Type  model.MemoryType
	Limit int
	// UseRetention blends the forgetting curve into the ranking
	UseRetention bool
	// IncludeProfile attaches the user profile to the result
	IncludeProfile bool
}

// SearchResult holds ranked candidates and, when requested, the user
// profile blob
type SearchResult struct {
	Results []*model.ScoredMemory `json:"results"`
	Profile string                `json:"profile_content,omitempty"`
}

// Search runs similarity search and, when retention weighting is
// requested, re-ranks candidates by similarity × retention. The store
// is over-fetched in that case because decay can promote items beyond
// the plain top-N.
func (u *UseCase) Search(ctx context.Context, input SearchInput) (*SearchResult, error) {
	if input.UserID == "" {
		return nil, goerr.New("user_id is required")
	}
	if input.Query == "" {
		return nil, goerr.New("query is required")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	fetchLimit := limit
	if input.UseRetention {
		fetchLimit = limit * overfetchFactor
	}

	out, err := u.store.Search(ctx, repository.SearchInput{
		Query:          input.Query,
		UserID:         input.UserID,
		Partitions:     u.router.SearchPartitions(input.Type),
		Type:           input.Type,
		Limit:          fetchLimit,
		IncludeProfile: input.IncludeProfile,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search memories", goerr.V("user_id", input.UserID))
	}

	results := out.Results
	if input.UseRetention {
		results = rankByRetention(results, limit)
	}

	return &SearchResult{Results: results, Profile: out.Profile}, nil
}

// rankByRetention computes combined scores and reorders candidates.
// The sort is stable so ties keep their original similarity order.
func rankByRetention(results []*model.ScoredMemory, limit int) []*model.ScoredMemory {
	now := time.Now()
	for _, r := range results {
		r.Retention = retention.Since(r.CreatedAt, now)
		r.Combined = r.Score * r.Retention
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Combined > results[j].Combined
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
