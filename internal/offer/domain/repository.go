package domain

import (
	"context"
	"iter"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, offer *Offer) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Offer, error)
	Update(ctx context.Context, db *gorm.DB, offer *Offer) error
	ListByJob(ctx context.Context, db *gorm.DB, orgID snowflake.ID, jobID string) ([]Offer, error)
	DeleteByJob(ctx context.Context, db *gorm.DB, orgID snowflake.ID, jobID string) (int64, error)
	Stream(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter OfferFilter) iter.Seq2[Offer, error]
}
