package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, link *ShareLink) error
	FindByToken(ctx context.Context, db *gorm.DB, token string) (*ShareLink, error)
	// IncrementViews bumps views_count server side and returns the new row.
	IncrementViews(ctx context.Context, db *gorm.DB, token string, at time.Time) (*ShareLink, error)
	// IncrementEdits bumps edit_count server side and returns the new row.
	// payload_updated_at is only touched when payloadChanged is set.
	IncrementEdits(ctx context.Context, db *gorm.DB, token string, at time.Time, payloadChanged bool) (*ShareLink, error)
	UpdateViewPrefs(ctx context.Context, db *gorm.DB, token string, prefs datatypes.JSONMap) (*ShareLink, error)
	Revoke(ctx context.Context, db *gorm.DB, orgID snowflake.ID, token string, at time.Time) (int64, error)
	ListByJob(ctx context.Context, db *gorm.DB, orgID snowflake.ID, jobID string) ([]ShareLink, error)
}
