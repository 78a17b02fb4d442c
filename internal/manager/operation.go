package manager

import (
	"time"

	"github.com/google/uuid"

	"github.com/victorivanov/permcast/internal/permissions"
	"github.com/victorivanov/permcast/internal/snowflake"
)

// OpType tags the batch operation variant held in the log.
type OpType string

const (
	OpTypeRoleToChannels OpType = "role_to_channels"
	OpTypePatternMatch   OpType = "pattern_match"
	OpTypeCopyOverwrites OpType = "copy_overwrites"
	OpTypeImportConfig   OpType = "import_config"
)

// BatchOperation describes the most recently executed write operation,
// with enough prior state to reverse it. History depth is one: a new
// batch replaces the previous record, and only a fully successful
// rollback clears it.
type BatchOperation struct {
	ID        uuid.UUID
	Type      OpType
	StartedAt time.Time

	// Variant fields; which are set depends on Type.
	Role            string
	Channels        []string
	RolePattern     string
	ChannelPattern  string
	MatchedRoles    []string
	MatchedChannels []string
	SourceChannel   string
	TargetChannel   string
	SourceFile      string
	RequestedFlags  map[string]bool

	// PreImage holds every touched channel's full overwrite map as it
	// was before the first write of the batch.
	PreImage map[snowflake.ID]permissions.OverwriteMap
}

func newBatchOperation(t OpType) *BatchOperation {
	return &BatchOperation{
		ID:        uuid.New(),
		Type:      t,
		StartedAt: time.Now(),
		PreImage:  map[snowflake.ID]permissions.OverwriteMap{},
	}
}
