package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/quoteshare/internal/clock"
	"github.com/smallbiznis/quoteshare/internal/job/domain"
	offerdomain "github.com/smallbiznis/quoteshare/internal/offer/domain"
	"github.com/smallbiznis/quoteshare/internal/orgcontext"
	"github.com/smallbiznis/quoteshare/internal/productline"
	"github.com/smallbiznis/quoteshare/pkg/db"
	"github.com/smallbiznis/quoteshare/pkg/rls"
	"github.com/smallbiznis/quoteshare/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxIDLength = 128

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Repo         domain.Repository
	OfferRepo    offerdomain.Repository
	ProductLines *productline.Holder
	Metrics      *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	repo         domain.Repository
	offerRepo    offerdomain.Repository
	productLines *productline.Holder
	metrics      *telemetry.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("job.service"),
		clock:        p.Clock,
		repo:         p.Repo,
		offerRepo:    p.OfferRepo,
		productLines: p.ProductLines,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateJobRequest) (domain.Job, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Job{}, domain.ErrInvalidOrganization
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if len(id) > maxIDLength {
		return domain.Job{}, domain.ErrInvalidID
	}

	subjectRef := strings.TrimSpace(req.SubjectRef)
	if subjectRef == "" {
		return domain.Job{}, domain.ErrInvalidSubjectRef
	}

	line := productline.Normalize(req.ProductLine)
	if line == "" {
		line = s.productLines.For(productline.TableJobs)
	}
	if !productline.Valid(line) {
		return domain.Job{}, domain.ErrInvalidProductLine
	}

	job := domain.Job{
		ID:          id,
		OrgID:       orgID,
		SubjectRef:  subjectRef,
		ProductLine: line,
		CreatedAt:   s.clock.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, &job)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Job{}, domain.ErrDuplicateID
		}
		return domain.Job{}, err
	}

	s.log.Info("job created",
		zap.String("job_id", job.ID),
		zap.String("org_id", orgID.String()),
		zap.String("product_line", job.ProductLine),
	)
	return job, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Job, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Job{}, domain.ErrInvalidOrganization
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Job{}, domain.ErrNotFound
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Job{}, err
	}
	if item == nil {
		return domain.Job{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListOffers(ctx context.Context, id string) ([]offerdomain.Offer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	id = strings.TrimSpace(id)
	var offers []offerdomain.Offer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}
		job, err := s.repo.FindByID(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if job == nil {
			return domain.ErrNotFound
		}
		offers, err = s.offerRepo.ListByJob(ctx, tx, orgID, job.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOrganization
	}

	id = strings.TrimSpace(id)
	var removedOffers int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}

		job, err := s.repo.FindByID(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if job == nil {
			return domain.ErrNotFound
		}

		removedOffers, err = s.offerRepo.DeleteByJob(ctx, tx, orgID, job.ID)
		if err != nil {
			return fmt.Errorf("delete offers: %w", err)
		}

		deleted, err := s.repo.Delete(ctx, tx, orgID, job.ID)
		if err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		if deleted != 1 {
			return fmt.Errorf("delete job: %d rows affected", deleted)
		}
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err != nil {
		s.metrics.ObserveCascadeDelete("job", err)
		s.log.Error("job cascade delete failed", zap.String("job_id", id), zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrCascadeFailed, err)
	}

	s.metrics.ObserveCascadeDelete("job", nil)
	s.log.Info("job deleted",
		zap.String("job_id", id),
		zap.Int64("offers_removed", removedOffers),
	)
	return nil
}
