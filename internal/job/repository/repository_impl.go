package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/internal/job/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *domain.Job) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO jobs (id, org_id, subject_ref, product_line, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		job.ID,
		job.OrgID,
		job.SubjectRef,
		job.ProductLine,
		job.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id string) (*domain.Job, error) {
	var job domain.Job
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, subject_ref, product_line, created_at
		 FROM jobs WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, nil
	}
	return &job, nil
}

func (r *repo) FindOwner(ctx context.Context, db *gorm.DB, id string) (snowflake.ID, bool, error) {
	var owners []int64
	err := db.WithContext(ctx).Raw(
		`SELECT org_id FROM jobs WHERE id = ?`,
		id,
	).Scan(&owners).Error
	if err != nil {
		return 0, false, err
	}
	if len(owners) == 0 {
		return 0, false, nil
	}
	return snowflake.ID(owners[0]), true, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM jobs WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}
