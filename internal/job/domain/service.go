package domain

import (
	"context"
	"errors"

	offerdomain "github.com/smallbiznis/quoteshare/internal/offer/domain"
)

type CreateJobRequest struct {
	// ID is optional; a UUID is generated when empty.
	ID          string
	SubjectRef  string
	ProductLine string
}

type Service interface {
	Create(ctx context.Context, req CreateJobRequest) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	ListOffers(ctx context.Context, id string) ([]offerdomain.Offer, error)
	// Delete removes the job and every offer it owns in one transaction.
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidSubjectRef   = errors.New("invalid_subject_ref")
	ErrInvalidProductLine  = errors.New("invalid_product_line")
	ErrDuplicateID         = errors.New("duplicate_id")
	ErrNotFound            = errors.New("not_found")
	ErrCascadeFailed       = errors.New("cascade_failed")
)
