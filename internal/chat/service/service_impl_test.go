package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/internal/chat/domain"
	"github.com/smallbiznis/quoteshare/internal/chat/repository"
	"github.com/smallbiznis/quoteshare/internal/clock"
	"github.com/smallbiznis/quoteshare/internal/migration/migrationtest"
	"github.com/smallbiznis/quoteshare/internal/orgcontext"
	"github.com/smallbiznis/quoteshare/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db := migrationtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, db, fake
}

func orgCtx(orgID int64) context.Context {
	return orgcontext.WithOrgID(context.Background(), orgID)
}

func TestCreateSessionValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateSession(context.Background(), domain.CreateSessionRequest{UserID: "u1", Source: "web"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	_, err = svc.CreateSession(orgCtx(42), domain.CreateSessionRequest{UserID: " ", Source: "web"})
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)

	_, err = svc.CreateSession(orgCtx(42), domain.CreateSessionRequest{UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrInvalidSource)

	blank := "  "
	session, err := svc.CreateSession(orgCtx(42), domain.CreateSessionRequest{UserID: "u1", Source: "web", Title: &blank})
	require.NoError(t, err)
	assert.Nil(t, session.Title)
	assert.Equal(t, snowflake.ID(42), session.OrgID)
	assert.True(t, session.CreatedAt.Equal(session.LastActivityAt))
}

func TestAppendAndListMessages(t *testing.T) {
	svc, db, fake := newTestService(t)
	ctx := orgCtx(42)

	session, err := svc.CreateSession(ctx, domain.CreateSessionRequest{UserID: "u1", Source: "telegram"})
	require.NoError(t, err)

	fake.Advance(time.Minute)
	first, err := svc.AppendMessage(ctx, session.ID, domain.AppendMessageRequest{Role: "User", Content: "compare casco offers"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, first.Role)

	fake.Advance(time.Minute)
	second, err := svc.AppendMessage(ctx, session.ID, domain.AppendMessageRequest{
		Role:     domain.RoleAssistant,
		Content:  "Acme is cheapest",
		Metadata: map[string]any{"job_id": "J1"},
	})
	require.NoError(t, err)

	messages, err := svc.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, first.ID, messages[0].ID)
	assert.Equal(t, second.ID, messages[1].ID)
	assert.Equal(t, "J1", messages[1].Metadata["job_id"])

	stored, err := repository.Provide().FindSession(ctx, db, 42, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, fake.Now().Equal(stored.LastActivityAt))
}

func TestAppendMessageRejections(t *testing.T) {
	svc, _, _ := newTestService(t)

	session, err := svc.CreateSession(orgCtx(42), domain.CreateSessionRequest{UserID: "u1", Source: "web"})
	require.NoError(t, err)

	_, err = svc.AppendMessage(orgCtx(42), session.ID, domain.AppendMessageRequest{Role: "tool", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = svc.AppendMessage(orgCtx(42), snowflake.ID(999), domain.AppendMessageRequest{Role: domain.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// another tenant cannot write into the session
	_, err = svc.AppendMessage(orgCtx(7), session.ID, domain.AppendMessageRequest{Role: domain.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	messages, err := svc.ListMessages(orgCtx(42), session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestAppendMessageAcceptsEmptyContent(t *testing.T) {
	svc, _, _ := newTestService(t)

	session, err := svc.CreateSession(orgCtx(42), domain.CreateSessionRequest{UserID: "u1", Source: "web"})
	require.NoError(t, err)

	msg, err := svc.AppendMessage(orgCtx(42), session.ID, domain.AppendMessageRequest{Role: domain.RoleAssistant})
	require.NoError(t, err)
	assert.Equal(t, "", msg.Content)

	messages, err := svc.ListMessages(orgCtx(42), session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, domain.RoleAssistant, messages[0].Role)
}

func TestListSessionsPagesByActivity(t *testing.T) {
	svc, _, fake := newTestService(t)
	ctx := orgCtx(42)

	var ids []snowflake.ID
	for i := 0; i < 5; i++ {
		fake.Advance(time.Minute)
		session, err := svc.CreateSession(ctx, domain.CreateSessionRequest{UserID: "u1", Source: "web"})
		require.NoError(t, err)
		ids = append(ids, session.ID)
	}
	_, err := svc.CreateSession(ctx, domain.CreateSessionRequest{UserID: "u2", Source: "web"})
	require.NoError(t, err)
	_, err = svc.CreateSession(orgCtx(7), domain.CreateSessionRequest{UserID: "u1", Source: "web"})
	require.NoError(t, err)

	// the oldest session becomes the most recently active
	fake.Advance(time.Minute)
	_, err = svc.AppendMessage(ctx, ids[0], domain.AppendMessageRequest{Role: domain.RoleUser, Content: "hi"})
	require.NoError(t, err)

	req := domain.ListSessionsRequest{UserID: "u1", Pagination: pagination.Pagination{PageSize: 2}}
	var got []snowflake.ID
	for pages := 0; pages < 5; pages++ {
		resp, err := svc.ListSessions(ctx, req)
		require.NoError(t, err)
		for _, s := range resp.Sessions {
			got = append(got, s.ID)
		}
		if !resp.PageInfo.HasMore {
			break
		}
		req.PageToken = resp.PageInfo.NextPageToken
	}

	assert.Equal(t, []snowflake.ID{ids[0], ids[4], ids[3], ids[2], ids[1]}, got)

	all, err := svc.ListSessions(ctx, domain.ListSessionsRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Sessions, 6)

	_, err = svc.ListSessions(ctx, domain.ListSessionsRequest{Pagination: pagination.Pagination{PageToken: "!!"}})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestDeleteSessionRemovesTranscript(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := orgCtx(42)

	session, err := svc.CreateSession(ctx, domain.CreateSessionRequest{UserID: "u1", Source: "web"})
	require.NoError(t, err)
	other, err := svc.CreateSession(ctx, domain.CreateSessionRequest{UserID: "u1", Source: "web"})
	require.NoError(t, err)
	for _, id := range []snowflake.ID{session.ID, session.ID, other.ID} {
		_, err := svc.AppendMessage(ctx, id, domain.AppendMessageRequest{Role: domain.RoleUser, Content: "x"})
		require.NoError(t, err)
	}

	assert.ErrorIs(t, svc.DeleteSession(orgCtx(7), session.ID), domain.ErrNotFound)
	require.NoError(t, svc.DeleteSession(ctx, session.ID))
	assert.ErrorIs(t, svc.DeleteSession(ctx, session.ID), domain.ErrNotFound)

	var remaining int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM chat_messages WHERE session_id = ?`, session.ID).Scan(&remaining).Error)
	assert.Zero(t, remaining)

	messages, err := svc.ListMessages(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestDeleteSessionFailureIsCascadeFailed(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := orgCtx(42)

	session, err := svc.CreateSession(ctx, domain.CreateSessionRequest{UserID: "u1", Source: "web"})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`DROP TABLE chat_messages`).Error)

	err = svc.DeleteSession(ctx, session.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCascadeFailed))

	stored, err := repository.Provide().FindSession(ctx, db, 42, session.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}
