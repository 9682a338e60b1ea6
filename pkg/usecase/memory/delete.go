package memory

import (
	"context"

	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/utils/logging"
)

// Delete removes a memory as best-effort cleanup. Failures are logged
// and reported as false, never propagated.
func (u *UseCase) Delete(ctx context.Context, userID string, id model.MemoryID) bool {
	if err := u.store.Delete(ctx, userID, id, u.router.AllPartitions()); err != nil {
		logging.From(ctx).Warn("failed to delete memory",
			"user_id", userID, "memory_id", id, "error", err)
		return false
	}
	return true
}
