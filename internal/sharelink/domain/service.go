package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	offerdomain "github.com/smallbiznis/quoteshare/internal/offer/domain"
)

type IssueLinkRequest struct {
	JobID string
	// ProductLine defaults to the job's; a different value is rejected.
	ProductLine string
	ExpiresAt   *time.Time
}

type OfferEdit struct {
	OfferID snowflake.ID
	Patch   offerdomain.OfferPatch
}

// EditMutation is applied atomically: every patch succeeds or none is kept.
type EditMutation struct {
	Patches []OfferEdit
}

type Service interface {
	Issue(ctx context.Context, req IssueLinkRequest) (ShareLink, error)
	ResolveForView(ctx context.Context, token string) (ShareLinkView, error)
	ResolveForEdit(ctx context.Context, token string, mutation EditMutation) (ShareLinkView, error)
	UpdateViewPrefs(ctx context.Context, token string, prefs map[string]any) (ShareLink, error)
	Revoke(ctx context.Context, token string) error
	ListForJob(ctx context.Context, jobID string) ([]ShareLink, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidToken        = errors.New("invalid_token")
	ErrLinkExpired         = errors.New("link_expired")
	ErrForbidden           = errors.New("forbidden")
	ErrJobNotFound         = errors.New("job_not_found")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidProductLine  = errors.New("invalid_product_line")
	ErrProductLineMismatch = errors.New("product_line_mismatch")
	ErrInvalidExpiry       = errors.New("invalid_expiry")
	ErrInvalidViewPrefs    = errors.New("invalid_view_prefs")
)
