package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/quoteshare/internal/clock"
	"github.com/smallbiznis/quoteshare/internal/config"
	jobdomain "github.com/smallbiznis/quoteshare/internal/job/domain"
	obslogger "github.com/smallbiznis/quoteshare/internal/observability/logger"
	offerdomain "github.com/smallbiznis/quoteshare/internal/offer/domain"
	"github.com/smallbiznis/quoteshare/internal/orgcontext"
	"github.com/smallbiznis/quoteshare/internal/productline"
	"github.com/smallbiznis/quoteshare/internal/sharelink/domain"
	"github.com/smallbiznis/quoteshare/pkg/db"
	"github.com/smallbiznis/quoteshare/pkg/rls"
	"github.com/smallbiznis/quoteshare/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const issueAttempts = 3

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	Clock        clock.Clock
	Repo         domain.Repository
	JobRepo      jobdomain.Repository
	OfferRepo    offerdomain.Repository
	ProductLines *productline.Holder
	Metrics      *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	ttl          time.Duration
	clock        clock.Clock
	repo         domain.Repository
	jobRepo      jobdomain.Repository
	offerRepo    offerdomain.Repository
	productLines *productline.Holder
	metrics      *telemetry.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("sharelink.service"),
		ttl:          p.Cfg.ShareLinkTTL,
		clock:        p.Clock,
		repo:         p.Repo,
		jobRepo:      p.JobRepo,
		offerRepo:    p.OfferRepo,
		productLines: p.ProductLines,
		metrics:      p.Metrics,
	}
}

func (s *Service) Issue(ctx context.Context, req domain.IssueLinkRequest) (domain.ShareLink, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ShareLink{}, domain.ErrInvalidOrganization
	}

	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		return domain.ShareLink{}, domain.ErrJobNotFound
	}

	owner, found, err := s.jobRepo.FindOwner(ctx, s.db, jobID)
	if err != nil {
		return domain.ShareLink{}, err
	}
	if !found {
		return domain.ShareLink{}, domain.ErrJobNotFound
	}
	if owner != orgID {
		s.log.Warn("cross-tenant share link issue rejected",
			zap.String("job_id", jobID),
			zap.String("org_id", orgID.String()),
		)
		return domain.ShareLink{}, domain.ErrForbidden
	}

	job, err := s.jobRepo.FindByID(ctx, s.db, orgID, jobID)
	if err != nil {
		return domain.ShareLink{}, err
	}
	if job == nil {
		return domain.ShareLink{}, domain.ErrJobNotFound
	}

	line := job.ProductLine
	if line == "" {
		line = s.productLines.For(productline.TableShareLinks)
	}
	if requested := productline.Normalize(req.ProductLine); requested != "" {
		if !productline.Valid(requested) {
			return domain.ShareLink{}, domain.ErrInvalidProductLine
		}
		if requested != line {
			return domain.ShareLink{}, domain.ErrProductLineMismatch
		}
	}

	now := s.clock.Now()
	expiresAt := req.ExpiresAt
	if expiresAt == nil && s.ttl > 0 {
		at := now.Add(s.ttl)
		expiresAt = &at
	}
	if expiresAt != nil {
		if !expiresAt.After(now) {
			return domain.ShareLink{}, domain.ErrInvalidExpiry
		}
		at := expiresAt.UTC()
		expiresAt = &at
	}

	link := domain.ShareLink{
		JobID:       job.ID,
		OrgID:       orgID,
		ProductLine: line,
		ViewPrefs:   datatypes.JSONMap{},
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}

	for attempt := 1; ; attempt++ {
		link.Token, err = generateToken()
		if err != nil {
			return domain.ShareLink{}, err
		}
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := rls.WithTenant(tx, int64(orgID)); err != nil {
				return err
			}
			return s.repo.Insert(ctx, tx, &link)
		})
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) || attempt == issueAttempts {
			return domain.ShareLink{}, err
		}
	}

	obslogger.WithShareToken(s.log, link.Token).Info("share link issued",
		zap.String("job_id", link.JobID),
		zap.String("org_id", orgID.String()),
	)
	return link, nil
}

func (s *Service) ResolveForView(ctx context.Context, token string) (domain.ShareLinkView, error) {
	now := s.clock.Now()

	var view domain.ShareLinkView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := s.lookup(ctx, tx, token, now)
		if err != nil {
			return err
		}

		updated, err := s.repo.IncrementViews(ctx, tx, link.Token, now)
		if err != nil {
			return fmt.Errorf("increment views: %w", err)
		}
		if updated == nil {
			return domain.ErrInvalidToken
		}

		offers, err := s.offerRepo.ListByJob(ctx, tx, link.OrgID, link.JobID)
		if err != nil {
			return err
		}
		view = newView(*updated, offers)
		return nil
	})
	s.metrics.ObserveShareResolve("view", outcome(err))
	if err != nil {
		return domain.ShareLinkView{}, err
	}
	return view, nil
}

func (s *Service) ResolveForEdit(ctx context.Context, token string, mutation domain.EditMutation) (domain.ShareLinkView, error) {
	now := s.clock.Now()

	var view domain.ShareLinkView
	changedOffers := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := s.lookup(ctx, tx, token, now)
		if err != nil {
			return err
		}

		for _, edit := range mutation.Patches {
			current, err := s.offerRepo.FindByID(ctx, tx, link.OrgID, edit.OfferID)
			if err != nil {
				return err
			}
			if current == nil || current.JobID != link.JobID {
				return domain.ErrForbidden
			}

			next, changed, err := current.Apply(edit.Patch)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}
			next.UpdatedAt = now
			if err := s.offerRepo.Update(ctx, tx, &next); err != nil {
				return err
			}
			changedOffers++
		}

		updated, err := s.repo.IncrementEdits(ctx, tx, link.Token, now, changedOffers > 0)
		if err != nil {
			return fmt.Errorf("increment edits: %w", err)
		}
		if updated == nil {
			return domain.ErrInvalidToken
		}

		offers, err := s.offerRepo.ListByJob(ctx, tx, link.OrgID, link.JobID)
		if err != nil {
			return err
		}
		view = newView(*updated, offers)
		return nil
	})
	s.metrics.ObserveShareResolve("edit", outcome(err))
	if err != nil {
		return domain.ShareLinkView{}, err
	}

	obslogger.WithShareToken(s.log, token).Debug("share link edit applied",
		zap.Int("patches", len(mutation.Patches)),
		zap.Int("offers_changed", changedOffers),
	)
	return view, nil
}

func (s *Service) UpdateViewPrefs(ctx context.Context, token string, prefs map[string]any) (domain.ShareLink, error) {
	if prefs == nil {
		return domain.ShareLink{}, domain.ErrInvalidViewPrefs
	}
	now := s.clock.Now()

	var updated *domain.ShareLink
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := s.lookup(ctx, tx, token, now)
		if err != nil {
			return err
		}
		updated, err = s.repo.UpdateViewPrefs(ctx, tx, link.Token, datatypes.JSONMap(prefs))
		if err != nil {
			return err
		}
		if updated == nil {
			return domain.ErrInvalidToken
		}
		return nil
	})
	s.metrics.ObserveShareResolve("prefs", outcome(err))
	if err != nil {
		return domain.ShareLink{}, err
	}
	return *updated, nil
}

func (s *Service) Revoke(ctx context.Context, token string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOrganization
	}

	token = strings.TrimSpace(token)
	if token == "" || len(token) > maxTokenLength {
		return domain.ErrNotFound
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}
		var err error
		affected, err = s.repo.Revoke(ctx, tx, orgID, token, s.clock.Now())
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	obslogger.WithShareToken(s.log, token).Info("share link revoked", zap.String("org_id", orgID.String()))
	return nil
}

func (s *Service) ListForJob(ctx context.Context, jobID string) ([]domain.ShareLink, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	jobID = strings.TrimSpace(jobID)
	job, err := s.jobRepo.FindByID(ctx, s.db, orgID, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	return s.repo.ListByJob(ctx, s.db, orgID, job.ID)
}

// lookup applies the token resolution rules shared by every bearer operation
// and pins the transaction to the link's tenant.
func (s *Service) lookup(ctx context.Context, tx *gorm.DB, token string, now time.Time) (*domain.ShareLink, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > maxTokenLength {
		return nil, domain.ErrInvalidToken
	}

	link, err := s.repo.FindByToken(ctx, tx, token)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrInvalidToken
	}

	// Possession of the token is the capability; an org in context is only
	// cross-checked.
	if orgID, ok := orgcontext.OrgIDFromContext(ctx); ok && orgID != link.OrgID {
		return nil, domain.ErrForbidden
	}
	if !link.Usable(now) {
		return nil, domain.ErrLinkExpired
	}

	if err := rls.WithTenant(tx, int64(link.OrgID)); err != nil {
		return nil, err
	}
	job, err := s.jobRepo.FindByID(ctx, tx, link.OrgID, link.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrLinkExpired
	}
	return link, nil
}

func newView(link domain.ShareLink, offers []offerdomain.Offer) domain.ShareLinkView {
	prefs := map[string]any(link.ViewPrefs)
	if prefs == nil {
		prefs = map[string]any{}
	}
	if offers == nil {
		offers = []offerdomain.Offer{}
	}
	return domain.ShareLinkView{Link: link, Offers: offers, ViewPrefs: prefs}
}

var outcomes = []error{
	domain.ErrInvalidToken,
	domain.ErrLinkExpired,
	domain.ErrForbidden,
	domain.ErrInvalidViewPrefs,
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, known := range outcomes {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if isOfferValidation(err) {
		return "validation_error"
	}
	return "error"
}

func isOfferValidation(err error) bool {
	for _, target := range []error{
		offerdomain.ErrInvalidInsurer,
		offerdomain.ErrInvalidCoverage,
		offerdomain.ErrInvalidSubjectRef,
		offerdomain.ErrInvalidCurrency,
		offerdomain.ErrInvalidAmount,
		offerdomain.ErrInvalidPeriod,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
