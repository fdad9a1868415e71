package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertSession(ctx context.Context, db *gorm.DB, session *Session) error
	FindSession(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Session, error)
	TouchSession(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, at time.Time) (int64, error)
	// ListSessions returns up to limit sessions after the cursor, most
	// recently active first.
	ListSessions(ctx context.Context, db *gorm.DB, orgID snowflake.ID, userID string, after *pagination.Cursor, limit int) ([]Session, error)
	DeleteSession(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)

	InsertMessage(ctx context.Context, db *gorm.DB, msg *Message) error
	ListMessages(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) ([]Message, error)
	DeleteMessages(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) (int64, error)
}
