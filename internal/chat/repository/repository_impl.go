package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/internal/chat/domain"
	"github.com/smallbiznis/quoteshare/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	sessionColumns = `id, org_id, user_id, source, title, created_at, last_activity_at`
	messageColumns = `id, session_id, org_id, role, content, metadata, created_at`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO chat_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.OrgID,
		session.UserID,
		session.Source,
		session.Title,
		session.CreatedAt,
		session.LastActivityAt,
	).Error
}

func (r *repo) FindSession(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) TouchSession(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE chat_sessions SET last_activity_at = ? WHERE org_id = ? AND id = ?`,
		at,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ListSessions(ctx context.Context, db *gorm.DB, orgID snowflake.ID, userID string, after *pagination.Cursor, limit int) ([]domain.Session, error) {
	query := db.WithContext(ctx).
		Table("chat_sessions").
		Select(sessionColumns).
		Where("org_id = ?", orgID)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if after != nil {
		afterID, err := strconv.ParseInt(after.ID, 10, 64)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		query = query.Where(
			"(last_activity_at < ? OR (last_activity_at = ? AND id < ?))",
			after.At,
			after.At,
			afterID,
		)
	}

	sessions := []domain.Session{}
	err := query.
		Order("last_activity_at DESC").
		Order("id DESC").
		Limit(limit).
		Scan(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) DeleteSession(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM chat_sessions WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) InsertMessage(ctx context.Context, db *gorm.DB, msg *domain.Message) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO chat_messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.SessionID,
		msg.OrgID,
		msg.Role,
		msg.Content,
		msg.Metadata,
		msg.CreatedAt,
	).Error
}

func (r *repo) ListMessages(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) ([]domain.Message, error) {
	messages := []domain.Message{}
	err := db.WithContext(ctx).Raw(
		`SELECT `+messageColumns+` FROM chat_messages
		 WHERE org_id = ? AND session_id = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
		sessionID,
	).Scan(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repo) DeleteMessages(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM chat_messages WHERE org_id = ? AND session_id = ?`,
		orgID,
		sessionID,
	)
	return result.RowsAffected, result.Error
}
