package models

import "github.com/victorivanov/permcast/internal/snowflake"

type Role struct {
	ID          snowflake.ID `json:"id"`
	GuildID     snowflake.ID `json:"guild_id"`
	Name        string       `json:"name"`
	Color       int          `json:"color"`
	Permissions int64        `json:"permissions,string"`
	Position    int          `json:"position"`
	IsDefault   bool         `json:"is_default"`
}
