package models

import "github.com/victorivanov/permcast/internal/snowflake"

type ChannelType int

const (
	ChannelTypeText     ChannelType = 0
	ChannelTypeVoice    ChannelType = 2
	ChannelTypeCategory ChannelType = 4
)

// String returns the name used in exported configs and table output.
func (t ChannelType) String() string {
	switch t {
	case ChannelTypeText:
		return "text"
	case ChannelTypeVoice:
		return "voice"
	case ChannelTypeCategory:
		return "category"
	default:
		return "unknown"
	}
}

// ParseChannelType is the inverse of ChannelType.String.
func ParseChannelType(s string) ChannelType {
	switch s {
	case "voice":
		return ChannelTypeVoice
	case "category":
		return ChannelTypeCategory
	default:
		return ChannelTypeText
	}
}

type Channel struct {
	ID       snowflake.ID  `json:"id"`
	GuildID  snowflake.ID  `json:"guild_id"`
	Name     string        `json:"name"`
	Type     ChannelType   `json:"type"`
	Position int           `json:"position"`
	Topic    *string       `json:"topic,omitempty"`
	ParentID *snowflake.ID `json:"parent_id,omitempty"`
}
