package domain

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/bwmarrin/snowflake"
)

type RecordOfferRequest struct {
	Insurer          string
	SubjectRef       string
	InsuredEntity    *string
	LegacyInquiryID  *string
	InsuredAmount    *float64
	Currency         string
	PremiumTotal     *float64
	PremiumBreakdown map[string]any
	Territory        *string
	PeriodFrom       *time.Time
	PeriodTo         *time.Time
	Coverage         map[string]any
	RawText          *string
}

// OfferPatch carries the fields to change. Nil fields are left untouched.
// Coverage is merged key by key; PremiumBreakdown is replaced.
type OfferPatch struct {
	Insurer          *string
	InsuredEntity    *string
	LegacyInquiryID  *string
	InsuredAmount    *float64
	Currency         *string
	PremiumTotal     *float64
	PremiumBreakdown map[string]any
	Territory        *string
	PeriodFrom       *time.Time
	PeriodTo         *time.Time
	Coverage         map[string]any
	RawText          *string
}

// IsEmpty reports whether the patch changes nothing.
func (p OfferPatch) IsEmpty() bool {
	return p.Insurer == nil && p.InsuredEntity == nil && p.LegacyInquiryID == nil &&
		p.InsuredAmount == nil && p.Currency == nil && p.PremiumTotal == nil &&
		p.PremiumBreakdown == nil && p.Territory == nil && p.PeriodFrom == nil &&
		p.PeriodTo == nil && p.Coverage == nil && p.RawText == nil
}

type OfferFilter struct {
	SubjectRef  string
	Insurer     string
	JobID       string
	ProductLine string
	Limit       int
}

type Service interface {
	Record(ctx context.Context, jobID string, req RecordOfferRequest) (Offer, error)
	Update(ctx context.Context, offerID snowflake.ID, patch OfferPatch) (Offer, error)
	Get(ctx context.Context, offerID snowflake.ID) (Offer, error)
	// Query streams matching offers newest first. The sequence holds a
	// database cursor until it is exhausted or the caller stops ranging.
	Query(ctx context.Context, filter OfferFilter) iter.Seq2[Offer, error]
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidInsurer      = errors.New("invalid_insurer")
	ErrInvalidCoverage     = errors.New("invalid_coverage")
	ErrInvalidSubjectRef   = errors.New("invalid_subject_ref")
	ErrSubjectRefMismatch  = errors.New("subject_ref_mismatch")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidPeriod       = errors.New("invalid_period")
	ErrInvalidProductLine  = errors.New("invalid_product_line")
	ErrJobNotFound         = errors.New("job_not_found")
	ErrNotFound            = errors.New("not_found")
)
