package models

import "github.com/victorivanov/permcast/internal/snowflake"

type Guild struct {
	ID      snowflake.ID `json:"id"`
	Name    string       `json:"name"`
	OwnerID snowflake.ID `json:"owner_id"`
}
