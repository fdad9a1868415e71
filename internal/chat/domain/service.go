package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/pkg/db/pagination"
)

type CreateSessionRequest struct {
	UserID string
	Source string
	Title  *string
}

type AppendMessageRequest struct {
	Role     Role
	Content  string
	Metadata map[string]any
}

type ListSessionsRequest struct {
	// UserID narrows the listing to one user when set.
	UserID string
	pagination.Pagination
}

type ListSessionsResponse struct {
	Sessions []Session          `json:"sessions"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (Session, error)
	AppendMessage(ctx context.Context, sessionID snowflake.ID, req AppendMessageRequest) (Message, error)
	ListMessages(ctx context.Context, sessionID snowflake.ID) ([]Message, error)
	ListSessions(ctx context.Context, req ListSessionsRequest) (ListSessionsResponse, error)
	// DeleteSession removes the session and its transcript in one transaction.
	DeleteSession(ctx context.Context, sessionID snowflake.ID) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidUserID       = errors.New("invalid_user_id")
	ErrInvalidSource       = errors.New("invalid_source")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrNotFound            = errors.New("not_found")
	ErrCascadeFailed       = errors.New("cascade_failed")
)
