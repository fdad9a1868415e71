package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/internal/sharelink/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const linkColumns = `token, job_id, org_id, product_line, views_count, edit_count,
	last_viewed_at, last_edited_at, payload_updated_at, view_prefs, expires_at, revoked_at, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, link *domain.ShareLink) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO share_links (`+linkColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		link.Token,
		link.JobID,
		link.OrgID,
		link.ProductLine,
		link.ViewsCount,
		link.EditCount,
		link.LastViewedAt,
		link.LastEditedAt,
		link.PayloadUpdatedAt,
		link.ViewPrefs,
		link.ExpiresAt,
		link.RevokedAt,
		link.CreatedAt,
	).Error
}

func (r *repo) FindByToken(ctx context.Context, db *gorm.DB, token string) (*domain.ShareLink, error) {
	return scanOne(db.WithContext(ctx).Raw(
		`SELECT `+linkColumns+` FROM share_links WHERE token = ?`,
		token,
	))
}

func (r *repo) IncrementViews(ctx context.Context, db *gorm.DB, token string, at time.Time) (*domain.ShareLink, error) {
	return scanOne(db.WithContext(ctx).Raw(
		`UPDATE share_links
		 SET views_count = views_count + 1, last_viewed_at = ?
		 WHERE token = ?
		 RETURNING `+linkColumns,
		at,
		token,
	))
}

func (r *repo) IncrementEdits(ctx context.Context, db *gorm.DB, token string, at time.Time, payloadChanged bool) (*domain.ShareLink, error) {
	if payloadChanged {
		return scanOne(db.WithContext(ctx).Raw(
			`UPDATE share_links
			 SET edit_count = edit_count + 1, last_edited_at = ?, payload_updated_at = ?
			 WHERE token = ?
			 RETURNING `+linkColumns,
			at,
			at,
			token,
		))
	}
	return scanOne(db.WithContext(ctx).Raw(
		`UPDATE share_links
		 SET edit_count = edit_count + 1, last_edited_at = ?
		 WHERE token = ?
		 RETURNING `+linkColumns,
		at,
		token,
	))
}

func (r *repo) UpdateViewPrefs(ctx context.Context, db *gorm.DB, token string, prefs datatypes.JSONMap) (*domain.ShareLink, error) {
	return scanOne(db.WithContext(ctx).Raw(
		`UPDATE share_links SET view_prefs = ? WHERE token = ? RETURNING `+linkColumns,
		prefs,
		token,
	))
}

func (r *repo) Revoke(ctx context.Context, db *gorm.DB, orgID snowflake.ID, token string, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE share_links SET revoked_at = COALESCE(revoked_at, ?)
		 WHERE org_id = ? AND token = ?`,
		at,
		orgID,
		token,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ListByJob(ctx context.Context, db *gorm.DB, orgID snowflake.ID, jobID string) ([]domain.ShareLink, error) {
	links := []domain.ShareLink{}
	err := db.WithContext(ctx).Raw(
		`SELECT `+linkColumns+` FROM share_links
		 WHERE org_id = ? AND job_id = ?
		 ORDER BY created_at DESC, token`,
		orgID,
		jobID,
	).Scan(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func scanOne(stmt *gorm.DB) (*domain.ShareLink, error) {
	var link domain.ShareLink
	if err := stmt.Scan(&link).Error; err != nil {
		return nil, err
	}
	if link.Token == "" {
		return nil, nil
	}
	return &link, nil
}
