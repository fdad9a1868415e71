package server

import (
	"context"
	"iter"

	"github.com/bwmarrin/snowflake"
	chatdomain "github.com/smallbiznis/quoteshare/internal/chat/domain"
	jobdomain "github.com/smallbiznis/quoteshare/internal/job/domain"
	offerdomain "github.com/smallbiznis/quoteshare/internal/offer/domain"
	sharelinkdomain "github.com/smallbiznis/quoteshare/internal/sharelink/domain"
	"github.com/stretchr/testify/mock"
)

type mockJobService struct{ mock.Mock }

func (m *mockJobService) Create(ctx context.Context, req jobdomain.CreateJobRequest) (jobdomain.Job, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(jobdomain.Job), args.Error(1)
}

func (m *mockJobService) Get(ctx context.Context, id string) (jobdomain.Job, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(jobdomain.Job), args.Error(1)
}

func (m *mockJobService) ListOffers(ctx context.Context, id string) ([]offerdomain.Offer, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]offerdomain.Offer), args.Error(1)
}

func (m *mockJobService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockOfferService struct{ mock.Mock }

func (m *mockOfferService) Record(ctx context.Context, jobID string, req offerdomain.RecordOfferRequest) (offerdomain.Offer, error) {
	args := m.Called(ctx, jobID, req)
	return args.Get(0).(offerdomain.Offer), args.Error(1)
}

func (m *mockOfferService) Update(ctx context.Context, id snowflake.ID, patch offerdomain.OfferPatch) (offerdomain.Offer, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(offerdomain.Offer), args.Error(1)
}

func (m *mockOfferService) Get(ctx context.Context, id snowflake.ID) (offerdomain.Offer, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(offerdomain.Offer), args.Error(1)
}

func (m *mockOfferService) Query(ctx context.Context, filter offerdomain.OfferFilter) iter.Seq2[offerdomain.Offer, error] {
	args := m.Called(ctx, filter)
	offers := args.Get(0).([]offerdomain.Offer)
	failure := args.Error(1)
	return func(yield func(offerdomain.Offer, error) bool) {
		for _, offer := range offers {
			if !yield(offer, nil) {
				return
			}
		}
		if failure != nil {
			yield(offerdomain.Offer{}, failure)
		}
	}
}

type mockShareService struct{ mock.Mock }

func (m *mockShareService) Issue(ctx context.Context, req sharelinkdomain.IssueLinkRequest) (sharelinkdomain.ShareLink, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(sharelinkdomain.ShareLink), args.Error(1)
}

func (m *mockShareService) ResolveForView(ctx context.Context, token string) (sharelinkdomain.ShareLinkView, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(sharelinkdomain.ShareLinkView), args.Error(1)
}

func (m *mockShareService) ResolveForEdit(ctx context.Context, token string, mutation sharelinkdomain.EditMutation) (sharelinkdomain.ShareLinkView, error) {
	args := m.Called(ctx, token, mutation)
	return args.Get(0).(sharelinkdomain.ShareLinkView), args.Error(1)
}

func (m *mockShareService) UpdateViewPrefs(ctx context.Context, token string, prefs map[string]any) (sharelinkdomain.ShareLink, error) {
	args := m.Called(ctx, token, prefs)
	return args.Get(0).(sharelinkdomain.ShareLink), args.Error(1)
}

func (m *mockShareService) Revoke(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockShareService) ListForJob(ctx context.Context, jobID string) ([]sharelinkdomain.ShareLink, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]sharelinkdomain.ShareLink), args.Error(1)
}

type mockChatService struct{ mock.Mock }

func (m *mockChatService) CreateSession(ctx context.Context, req chatdomain.CreateSessionRequest) (chatdomain.Session, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(chatdomain.Session), args.Error(1)
}

func (m *mockChatService) AppendMessage(ctx context.Context, sessionID snowflake.ID, req chatdomain.AppendMessageRequest) (chatdomain.Message, error) {
	args := m.Called(ctx, sessionID, req)
	return args.Get(0).(chatdomain.Message), args.Error(1)
}

func (m *mockChatService) ListMessages(ctx context.Context, sessionID snowflake.ID) ([]chatdomain.Message, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]chatdomain.Message), args.Error(1)
}

func (m *mockChatService) ListSessions(ctx context.Context, req chatdomain.ListSessionsRequest) (chatdomain.ListSessionsResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(chatdomain.ListSessionsResponse), args.Error(1)
}

func (m *mockChatService) DeleteSession(ctx context.Context, sessionID snowflake.ID) error {
	return m.Called(ctx, sessionID).Error(0)
}
