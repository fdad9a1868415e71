package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/internal/clock"
	jobdomain "github.com/smallbiznis/quoteshare/internal/job/domain"
	"github.com/smallbiznis/quoteshare/internal/offer/domain"
	"github.com/smallbiznis/quoteshare/internal/orgcontext"
	"github.com/smallbiznis/quoteshare/internal/productline"
	"github.com/smallbiznis/quoteshare/pkg/rls"
	"github.com/smallbiznis/quoteshare/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	JobRepo      jobdomain.Repository
	ProductLines *productline.Holder
	Metrics      *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	jobRepo      jobdomain.Repository
	productLines *productline.Holder
	metrics      *telemetry.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("offer.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		jobRepo:      p.JobRepo,
		productLines: p.ProductLines,
		metrics:      p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, jobID string, req domain.RecordOfferRequest) (domain.Offer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Offer{}, domain.ErrInvalidOrganization
	}

	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return domain.Offer{}, domain.ErrJobNotFound
	}

	currency, err := domain.NormalizeCurrency(req.Currency)
	if err != nil {
		return domain.Offer{}, err
	}

	var offer domain.Offer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}

		job, err := s.jobRepo.FindByID(ctx, tx, orgID, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return domain.ErrJobNotFound
		}

		subjectRef := strings.TrimSpace(req.SubjectRef)
		if subjectRef == "" {
			subjectRef = job.SubjectRef
		}
		if subjectRef != job.SubjectRef {
			return domain.ErrSubjectRefMismatch
		}

		line := job.ProductLine
		if line == "" {
			line = s.productLines.For(productline.TableOffers)
		}

		insurer := strings.TrimSpace(req.Insurer)
		now := s.clock.Now()
		offer = domain.Offer{
			ID:               s.genID.Generate(),
			JobID:            job.ID,
			OrgID:            orgID,
			Insurer:          insurer,
			InsurerKey:       domain.InsurerKey(insurer),
			SubjectRef:       subjectRef,
			InsuredEntity:    trimmed(req.InsuredEntity),
			LegacyInquiryID:  trimmed(req.LegacyInquiryID),
			InsuredAmount:    req.InsuredAmount,
			Currency:         currency,
			PremiumTotal:     req.PremiumTotal,
			PremiumBreakdown: jsonMapOrNil(req.PremiumBreakdown),
			Territory:        trimmed(req.Territory),
			PeriodFrom:       req.PeriodFrom,
			PeriodTo:         req.PeriodTo,
			RawText:          req.RawText,
			ProductLine:      line,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if req.Coverage != nil {
			offer.Coverage = domain.Coverage(req.Coverage)
		}
		if err := offer.Validate(); err != nil {
			return err
		}

		return s.repo.Insert(ctx, tx, &offer)
	})
	if err != nil {
		return domain.Offer{}, err
	}

	s.metrics.ObserveOfferRecorded(offer.ProductLine)
	s.log.Debug("offer recorded",
		zap.String("job_id", offer.JobID),
		zap.String("offer_id", offer.ID.String()),
		zap.String("insurer_key", offer.InsurerKey),
	)
	return offer, nil
}

func (s *Service) Update(ctx context.Context, offerID snowflake.ID, patch domain.OfferPatch) (domain.Offer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Offer{}, domain.ErrInvalidOrganization
	}
	if offerID <= 0 {
		return domain.Offer{}, domain.ErrInvalidID
	}

	var updated domain.Offer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}

		current, err := s.repo.FindByID(ctx, tx, orgID, offerID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}

		next, changed, err := current.Apply(patch)
		if err != nil {
			return err
		}
		if !changed {
			updated = *current
			return nil
		}
		next.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.Offer{}, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, offerID snowflake.ID) (domain.Offer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Offer{}, domain.ErrInvalidOrganization
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, offerID)
	if err != nil {
		return domain.Offer{}, err
	}
	if item == nil {
		return domain.Offer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Query(ctx context.Context, filter domain.OfferFilter) iter.Seq2[domain.Offer, error] {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return failed(domain.ErrInvalidOrganization)
	}

	filter.SubjectRef = strings.TrimSpace(filter.SubjectRef)
	filter.Insurer = strings.TrimSpace(filter.Insurer)
	filter.JobID = strings.TrimSpace(filter.JobID)
	if filter.ProductLine != "" {
		filter.ProductLine = productline.Normalize(filter.ProductLine)
		if !productline.Valid(filter.ProductLine) {
			return failed(domain.ErrInvalidProductLine)
		}
	}
	if filter.Limit < 0 {
		filter.Limit = 0
	}

	seq := s.repo.Stream(ctx, s.db, orgID, filter)
	return func(yield func(domain.Offer, error) bool) {
		for offer, err := range seq {
			if err != nil {
				yield(domain.Offer{}, fmt.Errorf("query offers: %w", err))
				return
			}
			if !yield(offer, nil) {
				return
			}
		}
	}
}

// Collect drains a query sequence into a slice.
func Collect(seq iter.Seq2[domain.Offer, error]) ([]domain.Offer, error) {
	out := []domain.Offer{}
	for offer, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, offer)
	}
	return out, nil
}

func failed(err error) iter.Seq2[domain.Offer, error] {
	return func(yield func(domain.Offer, error) bool) {
		yield(domain.Offer{}, err)
	}
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	if out == "" {
		return nil
	}
	return &out
}

func jsonMapOrNil(m map[string]any) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	return datatypes.JSONMap(m)
}
