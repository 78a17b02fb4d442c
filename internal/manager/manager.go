package manager

import (
	"context"
	"log/slog"
	"sync"

	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/permissions"
	"github.com/victorivanov/permcast/internal/snowflake"
)

// Platform is the remote side every operation runs against. All calls
// block until the network round trip completes; remote rejections come
// back as errors.
type Platform interface {
	ListRoles(ctx context.Context, guildID snowflake.ID) ([]models.Role, error)
	ListChannels(ctx context.Context, guildID snowflake.ID) ([]models.Channel, error)
	GetChannelOverrides(ctx context.Context, channelID snowflake.ID) (permissions.OverwriteMap, error)
	SetChannelOverrides(ctx context.Context, channelID snowflake.ID, m permissions.OverwriteMap) error
}

// Manager orchestrates batch overwrite operations against the platform
// and owns the single-slot operation log that backs rollback. The mutex
// serializes the write and rollback paths; operations never interleave.
type Manager struct {
	platform Platform
	log      *slog.Logger

	mu     sync.Mutex
	lastOp *BatchOperation
}

// New creates a Manager.
func New(platform Platform, log *slog.Logger) *Manager {
	return &Manager{platform: platform, log: log}
}

// Audit returns the channel's live overwrite map. Pure read, never
// touches the operation log. An empty map means no overwrites.
func (m *Manager) Audit(ctx context.Context, channelID snowflake.ID) (permissions.OverwriteMap, error) {
	return m.platform.GetChannelOverrides(ctx, channelID)
}

// LastOperation returns the recorded batch operation, or nil when there
// is nothing to roll back. Callers must treat the result as read-only.
func (m *Manager) LastOperation() *BatchOperation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOp
}

// Results maps an operation target (a channel name, or "role -> channel"
// for pattern operations) to its outcome.
type Results map[string]string

// StatusOK marks a target the platform accepted.
const StatusOK = "OK"

func failStatus(err error) string {
	return "failed: " + err.Error()
}

// Failed reports whether any target in the result set failed.
func (r Results) Failed() bool {
	for _, status := range r {
		if status != StatusOK {
			return true
		}
	}
	return false
}

// hasKnownFlag reports whether at least one requested flag name is in
// the catalog. Unknown names are filtered during merge; an all-unknown
// request would silently write nothing, so it is rejected up front.
func hasKnownFlag(requested map[string]bool) bool {
	for name := range requested {
		if _, ok := permissions.FlagBit(name); ok {
			return true
		}
	}
	return false
}
