package repository

import (
	"context"
	"iter"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/internal/offer/domain"
	"gorm.io/gorm"
)

const offerColumns = `id, job_id, org_id, insurer, insurer_key, subject_ref, insured_entity,
	legacy_inquiry_id, insured_amount, currency, premium_total, premium_breakdown, territory,
	period_from, period_to, coverage, raw_text, product_line, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, offer *domain.Offer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO offers (`+offerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		offer.ID,
		offer.JobID,
		offer.OrgID,
		offer.Insurer,
		offer.InsurerKey,
		offer.SubjectRef,
		offer.InsuredEntity,
		offer.LegacyInquiryID,
		offer.InsuredAmount,
		offer.Currency,
		offer.PremiumTotal,
		offer.PremiumBreakdown,
		offer.Territory,
		offer.PeriodFrom,
		offer.PeriodTo,
		offer.Coverage,
		offer.RawText,
		offer.ProductLine,
		offer.CreatedAt,
		offer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Offer, error) {
	var offer domain.Offer
	err := db.WithContext(ctx).Raw(
		`SELECT `+offerColumns+` FROM offers WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&offer).Error
	if err != nil {
		return nil, err
	}
	if offer.ID == 0 {
		return nil, nil
	}
	return &offer, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, offer *domain.Offer) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE offers SET insurer = ?, insurer_key = ?, insured_entity = ?, legacy_inquiry_id = ?,
		 insured_amount = ?, currency = ?, premium_total = ?, premium_breakdown = ?, territory = ?,
		 period_from = ?, period_to = ?, coverage = ?, raw_text = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		offer.Insurer,
		offer.InsurerKey,
		offer.InsuredEntity,
		offer.LegacyInquiryID,
		offer.InsuredAmount,
		offer.Currency,
		offer.PremiumTotal,
		offer.PremiumBreakdown,
		offer.Territory,
		offer.PeriodFrom,
		offer.PeriodTo,
		offer.Coverage,
		offer.RawText,
		offer.UpdatedAt,
		offer.OrgID,
		offer.ID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) ListByJob(ctx context.Context, db *gorm.DB, orgID snowflake.ID, jobID string) ([]domain.Offer, error) {
	offers := []domain.Offer{}
	err := db.WithContext(ctx).Raw(
		`SELECT `+offerColumns+` FROM offers
		 WHERE org_id = ? AND job_id = ?
		 ORDER BY created_at DESC, id DESC`,
		orgID,
		jobID,
	).Scan(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repo) DeleteByJob(ctx context.Context, db *gorm.DB, orgID snowflake.ID, jobID string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM offers WHERE org_id = ? AND job_id = ?`,
		orgID,
		jobID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Stream(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.OfferFilter) iter.Seq2[domain.Offer, error] {
	return func(yield func(domain.Offer, error) bool) {
		stmt := db.WithContext(ctx).
			Table("offers").
			Select(offerColumns).
			Where("org_id = ?", orgID)
		if filter.SubjectRef != "" {
			stmt = stmt.Where("subject_ref = ?", filter.SubjectRef)
		}
		if filter.Insurer != "" {
			stmt = stmt.Where("insurer_key = ?", domain.InsurerKey(filter.Insurer))
		}
		if filter.JobID != "" {
			stmt = stmt.Where("job_id = ?", filter.JobID)
		}
		if filter.ProductLine != "" {
			stmt = stmt.Where("product_line = ?", filter.ProductLine)
		}
		if filter.Limit > 0 {
			stmt = stmt.Limit(filter.Limit)
		}

		rows, err := stmt.Order("created_at DESC, id DESC").Rows()
		if err != nil {
			yield(domain.Offer{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var offer domain.Offer
			if err := db.ScanRows(rows, &offer); err != nil {
				yield(domain.Offer{}, err)
				return
			}
			if !yield(offer, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Offer{}, err)
		}
	}
}
