package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/service/retention"
)

// NeedsReview returns the user's memories whose retention has fallen
// below the threshold, weakest first. A non-positive threshold falls
// back to DefaultReviewThreshold.
func (u *UseCase) NeedsReview(ctx context.Context, userID string, threshold float64) ([]*model.ScoredMemory, error) {
	if userID == "" {
		return nil, goerr.New("user_id is required")
	}
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}

	memories, err := u.GetAll(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memories", goerr.V("user_id", userID))
	}

	now := time.Now()
	var fading []*model.ScoredMemory
	for _, mem := range memories {
		r := retention.Since(mem.CreatedAt, now)
		if r < threshold {
			fading = append(fading, &model.ScoredMemory{
				Memory:    *mem,
				Retention: r,
			})
		}
	}

	sort.SliceStable(fading, func(i, j int) bool {
		return fading[i].Retention < fading[j].Retention
	})

	return fading, nil
}
