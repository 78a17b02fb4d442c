package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/permissions"
	"github.com/victorivanov/permcast/internal/snowflake"
)

// ExportedConfig is the persisted snapshot format. Flag maps carry only
// explicitly set flags; inherited flags are omitted, never null.
type ExportedConfig struct {
	GuildID    int64             `json:"guild_id"`
	GuildName  string            `json:"guild_name"`
	ExportedAt time.Time         `json:"exported_at"`
	Channels   []ExportedChannel `json:"channels"`
}

// ExportedChannel is one channel's entry in an exported config.
// Overwrites are keyed by role ID string.
type ExportedChannel struct {
	ID         int64                      `json:"id"`
	Name       string                     `json:"name"`
	Type       string                     `json:"type"`
	CategoryID *int64                     `json:"category_id"`
	Overwrites map[string]map[string]bool `json:"overwrites"`
}

// ExportConfig snapshots every channel's overwrite map in the guild.
// Pure read; the operation log is untouched.
func (m *Manager) ExportConfig(ctx context.Context, guild models.Guild) (*ExportedConfig, error) {
	channels, err := m.platform.ListChannels(ctx, guild.ID)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}

	cfg := &ExportedConfig{
		GuildID:    guild.ID.Int64(),
		GuildName:  guild.Name,
		ExportedAt: time.Now().UTC(),
		Channels:   make([]ExportedChannel, 0, len(channels)),
	}

	for _, ch := range channels {
		current, err := m.platform.GetChannelOverrides(ctx, ch.ID)
		if err != nil {
			return nil, fmt.Errorf("reading channel %s: %w", ch.Name, err)
		}

		entry := ExportedChannel{
			ID:         ch.ID.Int64(),
			Name:       ch.Name,
			Type:       ch.Type.String(),
			Overwrites: map[string]map[string]bool{},
		}
		if ch.ParentID != nil {
			parent := ch.ParentID.Int64()
			entry.CategoryID = &parent
		}
		for roleID, o := range current {
			if o.IsZero() {
				continue
			}
			entry.Overwrites[roleID.String()] = o.Flags()
		}
		cfg.Channels = append(cfg.Channels, entry)
	}

	m.log.Info("exported config", "guild", guild.Name, "channels", len(cfg.Channels))
	return cfg, nil
}

// ImportConfig parses an exported config and replaces the overwrite map
// of every channel found both in the config and live. Channels and
// roles that no longer exist are skipped silently. The pre-image covers
// the full live guild, captured before any write; writes are issued
// sequentially and each is awaited before the next starts.
func (m *Manager) ImportConfig(ctx context.Context, guildID snowflake.ID, sourceName string, data []byte) (Results, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cfg ExportedConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, ParseFailure("INVALID_CONFIG", fmt.Sprintf("parsing %s: %v", sourceName, err))
	}

	channels, err := m.platform.ListChannels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}
	roles, err := m.platform.ListRoles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}

	liveChannels := make(map[int64]models.Channel, len(channels))
	for _, ch := range channels {
		liveChannels[ch.ID.Int64()] = ch
	}
	liveRoles := make(map[snowflake.ID]bool, len(roles))
	for _, r := range roles {
		liveRoles[r.ID] = true
	}

	// Full snapshot before any write. A read failure here aborts the
	// import while nothing has been mutated yet.
	op := newBatchOperation(OpTypeImportConfig)
	op.SourceFile = sourceName
	for _, ch := range channels {
		current, err := m.platform.GetChannelOverrides(ctx, ch.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshotting channel %s: %w", ch.Name, err)
		}
		op.PreImage[ch.ID] = current.Clone()
	}

	results := Results{}
	for _, entry := range cfg.Channels {
		ch, ok := liveChannels[entry.ID]
		if !ok {
			continue
		}

		next := permissions.OverwriteMap{}
		for roleIDStr, flags := range entry.Overwrites {
			roleID, err := snowflake.Parse(roleIDStr)
			if err != nil || !liveRoles[roleID] {
				continue
			}
			o := permissions.FromFlags(flags)
			if o.IsZero() {
				continue
			}
			next[roleID] = o
		}

		if err := m.platform.SetChannelOverrides(ctx, ch.ID, next); err != nil {
			results[ch.Name] = failStatus(err)
			m.log.Warn("import write rejected", "channel", ch.Name, "error", err)
			continue
		}
		results[ch.Name] = StatusOK
	}

	m.record(op)
	m.log.Info("imported config", "op", op.ID, "source", sourceName, "channels", len(results), "failed", results.Failed())
	return results, nil
}
