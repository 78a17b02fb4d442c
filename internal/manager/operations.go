package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/permissions"
	"github.com/victorivanov/permcast/internal/snowflake"
)

// ApplyRoleToChannels merges the requested flags into the role's
// overwrite on every listed channel. Targets fail independently; a
// rejected write on one channel never aborts the rest of the batch.
func (m *Manager) ApplyRoleToChannels(ctx context.Context, role models.Role, channels []models.Channel, requested map[string]bool) (Results, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(channels) == 0 {
		return nil, Precondition("NO_CHANNELS", "no channels selected")
	}
	if !hasKnownFlag(requested) {
		return nil, Precondition("NO_FLAGS", "no valid permission flags requested")
	}

	op := newBatchOperation(OpTypeRoleToChannels)
	op.Role = role.Name
	op.RequestedFlags = requested

	results := Results{}
	for _, ch := range channels {
		op.Channels = append(op.Channels, ch.Name)

		current, err := m.platform.GetChannelOverrides(ctx, ch.ID)
		if err != nil {
			results[ch.Name] = failStatus(err)
			continue
		}
		op.PreImage[ch.ID] = current.Clone()

		next := applyMerge(current, role.ID, requested)
		if err := m.platform.SetChannelOverrides(ctx, ch.ID, next); err != nil {
			results[ch.Name] = failStatus(err)
			m.log.Warn("overwrite write rejected", "channel", ch.Name, "role", role.Name, "error", err)
			continue
		}
		results[ch.Name] = StatusOK
	}

	m.record(op)
	m.log.Info("applied role overwrites",
		"op", op.ID, "role", role.Name, "channels", len(channels), "failed", results.Failed())
	return results, nil
}

// ApplyPattern applies the requested flags to every (role, channel)
// pair whose names contain the given substrings, case-insensitively.
// An empty match on either side aborts before any write.
func (m *Manager) ApplyPattern(ctx context.Context, guildID snowflake.ID, rolePattern, channelPattern string, requested map[string]bool) (Results, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !hasKnownFlag(requested) {
		return nil, Precondition("NO_FLAGS", "no valid permission flags requested")
	}

	roles, err := m.platform.ListRoles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	channels, err := m.platform.ListChannels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}

	var matchedRoles []models.Role
	for _, r := range roles {
		if containsFold(r.Name, rolePattern) {
			matchedRoles = append(matchedRoles, r)
		}
	}
	var matchedChannels []models.Channel
	for _, c := range channels {
		if containsFold(c.Name, channelPattern) {
			matchedChannels = append(matchedChannels, c)
		}
	}

	if len(matchedRoles) == 0 {
		return nil, Precondition("NO_MATCHING_ROLES", fmt.Sprintf("no roles match pattern %q", rolePattern))
	}
	if len(matchedChannels) == 0 {
		return nil, Precondition("NO_MATCHING_CHANNELS", fmt.Sprintf("no channels match pattern %q", channelPattern))
	}

	op := newBatchOperation(OpTypePatternMatch)
	op.RolePattern = rolePattern
	op.ChannelPattern = channelPattern
	op.RequestedFlags = requested
	for _, r := range matchedRoles {
		op.MatchedRoles = append(op.MatchedRoles, r.Name)
	}
	for _, c := range matchedChannels {
		op.MatchedChannels = append(op.MatchedChannels, c.Name)
	}

	// Snapshot every matched channel before any write; channels whose
	// current state cannot be read are excluded from the batch.
	results := Results{}
	live := map[snowflake.ID]permissions.OverwriteMap{}
	var targets []models.Channel
	for _, ch := range matchedChannels {
		current, err := m.platform.GetChannelOverrides(ctx, ch.ID)
		if err != nil {
			results[ch.Name] = failStatus(err)
			continue
		}
		op.PreImage[ch.ID] = current.Clone()
		live[ch.ID] = current
		targets = append(targets, ch)
	}

	// One merge+write per pair, each independently fault tolerant.
	for _, role := range matchedRoles {
		for _, ch := range targets {
			key := role.Name + " -> " + ch.Name
			next := applyMerge(live[ch.ID], role.ID, requested)
			if err := m.platform.SetChannelOverrides(ctx, ch.ID, next); err != nil {
				results[key] = failStatus(err)
				m.log.Warn("overwrite write rejected", "channel", ch.Name, "role", role.Name, "error", err)
				continue
			}
			live[ch.ID] = next
			results[key] = StatusOK
		}
	}

	m.record(op)
	m.log.Info("applied pattern overwrites",
		"op", op.ID, "roles", len(matchedRoles), "channels", len(targets), "failed", results.Failed())
	return results, nil
}

// CopyOverwrites replaces the target channel's entire overwrite map
// with a copy of the source channel's. No per-flag merge happens.
func (m *Manager) CopyOverwrites(ctx context.Context, source, target models.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sourceMap, err := m.platform.GetChannelOverrides(ctx, source.ID)
	if err != nil {
		return fmt.Errorf("reading source channel %s: %w", source.Name, err)
	}
	targetMap, err := m.platform.GetChannelOverrides(ctx, target.ID)
	if err != nil {
		return fmt.Errorf("reading target channel %s: %w", target.Name, err)
	}

	if err := m.platform.SetChannelOverrides(ctx, target.ID, sourceMap.Clone()); err != nil {
		m.log.Warn("copy write rejected", "source", source.Name, "target", target.Name, "error", err)
		return NewError(ErrRemoteWrite, "COPY_WRITE", fmt.Sprintf("writing target channel %s: %v", target.Name, err))
	}

	op := newBatchOperation(OpTypeCopyOverwrites)
	op.SourceChannel = source.Name
	op.TargetChannel = target.Name
	op.PreImage[target.ID] = targetMap.Clone()
	m.record(op)

	m.log.Info("copied overwrites", "op", op.ID, "source", source.Name, "target", target.Name)
	return nil
}

// applyMerge returns a copy of current with the role's overwrite merged
// against the requested flags. A record left without explicit entries
// is dropped entirely.
func applyMerge(current permissions.OverwriteMap, roleID snowflake.ID, requested map[string]bool) permissions.OverwriteMap {
	next := current.Clone()
	merged := permissions.Merge(next[roleID], requested)
	if merged.IsZero() {
		delete(next, roleID)
	} else {
		next[roleID] = merged
	}
	return next
}

// record installs op as the single rollback slot, discarding whatever
// was there. Operations that captured no pre-image wrote nothing and
// leave the slot untouched.
func (m *Manager) record(op *BatchOperation) {
	if len(op.PreImage) == 0 {
		return
	}
	m.lastOp = op
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
