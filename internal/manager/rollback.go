package manager

import (
	"context"
	"fmt"
	"sort"

	"github.com/victorivanov/permcast/internal/snowflake"
)

// Rollback restores every channel captured in the recorded operation's
// pre-image to its prior overwrite map. Returns ErrNothingToRollback
// when no operation is recorded. A failed write aborts the rollback and
// keeps the record so it can be retried; only a fully successful
// rollback clears the slot.
func (m *Manager) Rollback(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastOp == nil {
		return ErrNothingToRollback
	}
	op := m.lastOp

	ids := make([]int64, 0, len(op.PreImage))
	for id := range op.PreImage {
		ids = append(ids, id.Int64())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, raw := range ids {
		id := snowflake.ID(raw)
		if err := m.platform.SetChannelOverrides(ctx, id, op.PreImage[id].Clone()); err != nil {
			m.log.Error("rollback write rejected", "op", op.ID, "channel", id, "error", err)
			return RollbackFailure("ROLLBACK_WRITE", fmt.Sprintf("restoring channel %s: %v", id, err))
		}
	}

	m.lastOp = nil
	m.log.Info("rollback complete", "op", op.ID, "type", op.Type, "channels", len(ids))
	return nil
}
