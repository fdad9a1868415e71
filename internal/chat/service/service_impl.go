package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/internal/chat/domain"
	"github.com/smallbiznis/quoteshare/internal/clock"
	"github.com/smallbiznis/quoteshare/internal/orgcontext"
	"github.com/smallbiznis/quoteshare/pkg/db/pagination"
	"github.com/smallbiznis/quoteshare/pkg/rls"
	"github.com/smallbiznis/quoteshare/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *telemetry.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("chat.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateSession(ctx context.Context, req domain.CreateSessionRequest) (domain.Session, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Session{}, domain.ErrInvalidOrganization
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.Session{}, domain.ErrInvalidUserID
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return domain.Session{}, domain.ErrInvalidSource
	}

	var title *string
	if req.Title != nil {
		if v := strings.TrimSpace(*req.Title); v != "" {
			title = &v
		}
	}

	now := s.clock.Now()
	session := domain.Session{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		UserID:         userID,
		Source:         source,
		Title:          title,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}
		return s.repo.InsertSession(ctx, tx, &session)
	})
	if err != nil {
		return domain.Session{}, err
	}

	s.log.Info("chat session created",
		zap.String("session_id", session.ID.String()),
		zap.String("org_id", orgID.String()),
		zap.String("source", source),
	)
	return session, nil
}

func (s *Service) AppendMessage(ctx context.Context, sessionID snowflake.ID, req domain.AppendMessageRequest) (domain.Message, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Message{}, domain.ErrInvalidOrganization
	}

	role := domain.Role(strings.ToLower(strings.TrimSpace(string(req.Role))))
	if !role.Valid() {
		return domain.Message{}, domain.ErrInvalidRole
	}

	metadata := datatypes.JSONMap(req.Metadata)
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}

	now := s.clock.Now()
	msg := domain.Message{
		ID:        s.genID.Generate(),
		SessionID: sessionID,
		OrgID:     orgID,
		Role:      role,
		Content:   req.Content,
		Metadata:  metadata,
		CreatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}
		touched, err := s.repo.TouchSession(ctx, tx, orgID, sessionID, now)
		if err != nil {
			return err
		}
		if touched == 0 {
			return domain.ErrNotFound
		}
		return s.repo.InsertMessage(ctx, tx, &msg)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (s *Service) ListMessages(ctx context.Context, sessionID snowflake.ID) ([]domain.Message, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	var messages []domain.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}
		session, err := s.repo.FindSession(ctx, tx, orgID, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNotFound
		}
		messages, err = s.repo.ListMessages(ctx, tx, orgID, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Service) ListSessions(ctx context.Context, req domain.ListSessionsRequest) (domain.ListSessionsResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ListSessionsResponse{}, domain.ErrInvalidOrganization
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListSessionsResponse{}, err
	}

	limit := req.Size()
	sessions, err := s.repo.ListSessions(ctx, s.db, orgID, strings.TrimSpace(req.UserID), cursor, limit+1)
	if err != nil {
		return domain.ListSessionsResponse{}, err
	}

	page, info, err := pagination.BuildCursorPage(sessions, limit, func(session domain.Session) pagination.Cursor {
		return pagination.Cursor{ID: strconv.FormatInt(session.ID.Int64(), 10), At: session.LastActivityAt}
	})
	if err != nil {
		return domain.ListSessionsResponse{}, err
	}
	return domain.ListSessionsResponse{Sessions: page, PageInfo: info}, nil
}

func (s *Service) DeleteSession(ctx context.Context, sessionID snowflake.ID) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOrganization
	}

	var removedMessages int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(orgID)); err != nil {
			return err
		}

		session, err := s.repo.FindSession(ctx, tx, orgID, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNotFound
		}

		removedMessages, err = s.repo.DeleteMessages(ctx, tx, orgID, sessionID)
		if err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}

		deleted, err := s.repo.DeleteSession(ctx, tx, orgID, sessionID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if deleted != 1 {
			return fmt.Errorf("delete session: %d rows affected", deleted)
		}
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	s.metrics.ObserveCascadeDelete("chat_session", err)
	if err != nil {
		s.log.Error("chat session cascade delete failed",
			zap.String("session_id", sessionID.String()),
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", domain.ErrCascadeFailed, err)
	}

	s.log.Info("chat session deleted",
		zap.String("session_id", sessionID.String()),
		zap.String("org_id", orgID.String()),
		zap.Int64("messages_removed", removedMessages),
	)
	return nil
}
