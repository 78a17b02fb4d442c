package models

import "github.com/victorivanov/permcast/internal/snowflake"

type User struct {
	ID          snowflake.ID `json:"id"`
	Username    string       `json:"username"`
	DisplayName string       `json:"display_name"`
}
