package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Session is a conversation between one user and the assistant.
type Session struct {
	ID             snowflake.ID `gorm:"column:id" json:"id"`
	OrgID          snowflake.ID `gorm:"column:org_id" json:"org_id"`
	UserID         string       `gorm:"column:user_id" json:"user_id"`
	Source         string       `gorm:"column:source" json:"source"`
	Title          *string      `gorm:"column:title" json:"title,omitempty"`
	CreatedAt      time.Time    `gorm:"column:created_at" json:"created_at"`
	LastActivityAt time.Time    `gorm:"column:last_activity_at" json:"last_activity_at"`
}

type Message struct {
	ID        snowflake.ID      `gorm:"column:id" json:"id"`
	SessionID snowflake.ID      `gorm:"column:session_id" json:"session_id"`
	OrgID     snowflake.ID      `gorm:"column:org_id" json:"org_id"`
	Role      Role              `gorm:"column:role" json:"role"`
	Content   string            `gorm:"column:content" json:"content"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	CreatedAt time.Time         `gorm:"column:created_at" json:"created_at"`
}
