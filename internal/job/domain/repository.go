package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *Job) error
	FindByID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id string) (*Job, error)
	// FindOwner looks a job up across tenants. It only serves cross-tenant
	// detection and must not leak the row to callers.
	FindOwner(ctx context.Context, db *gorm.DB, id string) (snowflake.ID, bool, error)
	Delete(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id string) (int64, error)
}
