package models

import "github.com/victorivanov/permcast/internal/snowflake"

// ChannelOverride is the wire shape of a per-role permission overwrite
// on a channel. Allow and Deny are permission bitfields; a bit set in
// neither means the flag is inherited from guild-level defaults.
type ChannelOverride struct {
	ChannelID snowflake.ID `json:"channel_id"`
	RoleID    snowflake.ID `json:"role_id"`
	Allow     int64        `json:"allow,string"`
	Deny      int64        `json:"deny,string"`
}
