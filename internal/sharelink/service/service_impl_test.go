package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteshare/internal/clock"
	"github.com/smallbiznis/quoteshare/internal/config"
	jobdomain "github.com/smallbiznis/quoteshare/internal/job/domain"
	jobrepo "github.com/smallbiznis/quoteshare/internal/job/repository"
	jobservice "github.com/smallbiznis/quoteshare/internal/job/service"
	"github.com/smallbiznis/quoteshare/internal/migration/migrationtest"
	offerdomain "github.com/smallbiznis/quoteshare/internal/offer/domain"
	offerrepo "github.com/smallbiznis/quoteshare/internal/offer/repository"
	offerservice "github.com/smallbiznis/quoteshare/internal/offer/service"
	"github.com/smallbiznis/quoteshare/internal/orgcontext"
	"github.com/smallbiznis/quoteshare/internal/productline"
	"github.com/smallbiznis/quoteshare/internal/sharelink/domain"
	linkrepo "github.com/smallbiznis/quoteshare/internal/sharelink/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    domain.Service
	jobs   jobdomain.Service
	offers offerdomain.Service
	clock  *clock.FakeClock
}

func newFixture(t *testing.T, cfg config.Config) fixture {
	t.Helper()

	db := migrationtest.Open(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	fake := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	defaults := productline.NewStaticHolder(nil)
	jobRepo := jobrepo.Provide()
	offerRepo := offerrepo.Provide()

	jobs := jobservice.New(jobservice.Params{
		DB: db, Log: zap.NewNop(), Clock: fake, Repo: jobRepo, OfferRepo: offerRepo, ProductLines: defaults,
	})
	offers := offerservice.New(offerservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake, Repo: offerRepo, JobRepo: jobRepo, ProductLines: defaults,
	})
	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Cfg:          cfg,
		Clock:        fake,
		Repo:         linkrepo.Provide(),
		JobRepo:      jobRepo,
		OfferRepo:    offerRepo,
		ProductLines: defaults,
	})
	return fixture{db: db, svc: svc, jobs: jobs, offers: offers, clock: fake}
}

func orgCtx(orgID int64) context.Context {
	return orgcontext.WithOrgID(context.Background(), orgID)
}

// seedJob creates job J1 (ABC123, casco) under org with one Acme offer.
func (f fixture) seedJob(t *testing.T, orgID int64) offerdomain.Offer {
	t.Helper()
	_, err := f.jobs.Create(orgCtx(orgID), jobdomain.CreateJobRequest{ID: "J1", SubjectRef: "ABC123", ProductLine: "casco"})
	require.NoError(t, err)
	offer, err := f.offers.Record(orgCtx(orgID), "J1", offerdomain.RecordOfferRequest{
		Insurer:  "Acme",
		Coverage: map[string]any{"liability": true},
	})
	require.NoError(t, err)
	return offer
}

func (f fixture) reload(t *testing.T, token string) domain.ShareLink {
	t.Helper()
	link, err := linkrepo.Provide().FindByToken(context.Background(), f.db, token)
	require.NoError(t, err)
	require.NotNil(t, link)
	return *link
}

func TestShareLinkScenario(t *testing.T) {
	f := newFixture(t, config.Config{})
	offer := f.seedJob(t, 42)
	assert.Equal(t, productline.Casco, offer.ProductLine)

	link, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)
	assert.Len(t, link.Token, 43)
	assert.Zero(t, link.ViewsCount)
	assert.Zero(t, link.EditCount)
	assert.Equal(t, productline.Casco, link.ProductLine)
	assert.Empty(t, link.ViewPrefs)

	f.clock.Advance(time.Minute)
	_, err = f.svc.ResolveForView(context.Background(), link.Token)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	secondView := f.clock.Now()
	view, err := f.svc.ResolveForView(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.Link.ViewsCount)
	require.NotNil(t, view.Link.LastViewedAt)
	assert.True(t, secondView.Equal(*view.Link.LastViewedAt))
	require.Len(t, view.Offers, 1)
	assert.Equal(t, offer.ID, view.Offers[0].ID)
	assert.NotNil(t, view.ViewPrefs)

	f.clock.Advance(time.Minute)
	editAt := f.clock.Now()
	edited, err := f.svc.ResolveForEdit(context.Background(), link.Token, domain.EditMutation{
		Patches: []domain.OfferEdit{{
			OfferID: offer.ID,
			Patch:   offerdomain.OfferPatch{Coverage: map[string]any{"liability": false, "towing": true}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), edited.Link.EditCount)
	assert.Equal(t, int64(2), edited.Link.ViewsCount)
	require.NotNil(t, edited.Link.LastEditedAt)
	require.NotNil(t, edited.Link.PayloadUpdatedAt)
	assert.True(t, editAt.Equal(*edited.Link.PayloadUpdatedAt))
	require.Len(t, edited.Offers, 1)
	assert.Equal(t, offerdomain.Coverage{"liability": false, "towing": true}, edited.Offers[0].Coverage)
	assert.True(t, editAt.Equal(edited.Offers[0].UpdatedAt))
}

func TestConcurrentViewsAreAllCounted(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.seedJob(t, 42)
	link, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)

	const viewers = 25
	var wg sync.WaitGroup
	errs := make(chan error, viewers)
	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ResolveForView(context.Background(), link.Token)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(viewers), f.reload(t, link.Token).ViewsCount)
}

func TestFailedEditLeavesCountersUntouched(t *testing.T) {
	f := newFixture(t, config.Config{})
	offer := f.seedJob(t, 42)
	link, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)

	blank := " "
	_, err = f.svc.ResolveForEdit(context.Background(), link.Token, domain.EditMutation{
		Patches: []domain.OfferEdit{
			{OfferID: offer.ID, Patch: offerdomain.OfferPatch{Coverage: map[string]any{"towing": true}}},
			{OfferID: offer.ID, Patch: offerdomain.OfferPatch{Insurer: &blank}},
		},
	})
	assert.True(t, errors.Is(err, offerdomain.ErrInvalidInsurer))

	stored := f.reload(t, link.Token)
	assert.Zero(t, stored.EditCount)
	assert.Nil(t, stored.LastEditedAt)
	assert.Nil(t, stored.PayloadUpdatedAt)

	current, err := f.offers.Get(orgCtx(42), offer.ID)
	require.NoError(t, err)
	_, hasTowing := current.Coverage["towing"]
	assert.False(t, hasTowing)
}

func TestEditWithoutChangesKeepsPayloadTimestamp(t *testing.T) {
	f := newFixture(t, config.Config{})
	offer := f.seedJob(t, 42)
	link, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)

	view, err := f.svc.ResolveForEdit(context.Background(), link.Token, domain.EditMutation{
		Patches: []domain.OfferEdit{{OfferID: offer.ID, Patch: offerdomain.OfferPatch{Coverage: map[string]any{"liability": true}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Link.EditCount)
	assert.NotNil(t, view.Link.LastEditedAt)
	assert.Nil(t, view.Link.PayloadUpdatedAt)
}

func TestEditRejectsOfferFromAnotherJob(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.seedJob(t, 42)
	_, err := f.jobs.Create(orgCtx(42), jobdomain.CreateJobRequest{ID: "J2", SubjectRef: "XYZ"})
	require.NoError(t, err)
	other, err := f.offers.Record(orgCtx(42), "J2", offerdomain.RecordOfferRequest{Insurer: "Beta", Coverage: map[string]any{}})
	require.NoError(t, err)

	link, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)

	raw := "tampered"
	_, err = f.svc.ResolveForEdit(context.Background(), link.Token, domain.EditMutation{
		Patches: []domain.OfferEdit{{OfferID: other.ID, Patch: offerdomain.OfferPatch{RawText: &raw}}},
	})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Zero(t, f.reload(t, link.Token).EditCount)
}

func TestCrossTenantResolutionIsForbidden(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.seedJob(t, 42)
	link, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)

	_, err = f.svc.ResolveForView(orgCtx(7), link.Token)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.svc.ResolveForEdit(orgCtx(7), link.Token, domain.EditMutation{})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	view, err := f.svc.ResolveForView(orgCtx(42), link.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Link.ViewsCount)
}

func TestIssueForOtherTenantJobIsForbidden(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.seedJob(t, 42)

	_, err := f.svc.Issue(orgCtx(7), domain.IssueLinkRequest{JobID: "J1"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestIssueValidation(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.seedJob(t, 42)
	past := f.clock.Now().Add(-time.Hour)

	cases := []struct {
		name string
		ctx  context.Context
		req  domain.IssueLinkRequest
		want error
	}{
		{name: "no org", ctx: context.Background(), req: domain.IssueLinkRequest{JobID: "J1"}, want: domain.ErrInvalidOrganization},
		{name: "missing job", ctx: orgCtx(42), req: domain.IssueLinkRequest{JobID: "nope"}, want: domain.ErrJobNotFound},
		{name: "unknown line", ctx: orgCtx(42), req: domain.IssueLinkRequest{JobID: "J1", ProductLine: "pets"}, want: domain.ErrInvalidProductLine},
		{name: "line mismatch", ctx: orgCtx(42), req: domain.IssueLinkRequest{JobID: "J1", ProductLine: "health"}, want: domain.ErrProductLineMismatch},
		{name: "expiry in past", ctx: orgCtx(42), req: domain.IssueLinkRequest{JobID: "J1", ExpiresAt: &past}, want: domain.ErrInvalidExpiry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Issue(tc.ctx, tc.req)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestUnknownTokenIsInvalidNotExpired(t *testing.T) {
	f := newFixture(t, config.Config{})

	for _, token := range []string{"does-not-exist", "", string(make([]byte, 500))} {
		_, err := f.svc.ResolveForView(context.Background(), token)
		assert.True(t, errors.Is(err, domain.ErrInvalidToken))
		assert.False(t, errors.Is(err, domain.ErrLinkExpired))
	}
}

func TestDeletedJobResolvesExpired(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.seedJob(t, 42)
	link, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)

	require.NoError(t, f.jobs.Delete(orgCtx(42), "J1"))

	_, err = f.svc.ResolveForView(context.Background(), link.Token)
	assert.True(t, errors.Is(err, domain.ErrLinkExpired))
	assert.False(t, errors.Is(err, domain.ErrInvalidToken))

	// the dangling link is kept and was not counted
	assert.Zero(t, f.reload(t, link.Token).ViewsCount)
}

func TestExpiryAndRevocation(t *testing.T) {
	f := newFixture(t, config.Config{ShareLinkTTL: time.Hour})
	f.seedJob(t, 42)

	link, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)
	require.NotNil(t, link.ExpiresAt)
	assert.True(t, f.clock.Now().Add(time.Hour).Equal(*link.ExpiresAt))

	_, err = f.svc.ResolveForView(context.Background(), link.Token)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.ResolveForView(context.Background(), link.Token)
	assert.True(t, errors.Is(err, domain.ErrLinkExpired))

	other, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)

	assert.True(t, errors.Is(f.svc.Revoke(orgCtx(7), other.Token), domain.ErrNotFound))
	require.NoError(t, f.svc.Revoke(orgCtx(42), other.Token))
	require.NoError(t, f.svc.Revoke(orgCtx(42), other.Token))

	_, err = f.svc.ResolveForView(context.Background(), other.Token)
	assert.True(t, errors.Is(err, domain.ErrLinkExpired))
}

func TestUpdateViewPrefsDoesNotCount(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.seedJob(t, 42)
	link, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)

	updated, err := f.svc.UpdateViewPrefs(context.Background(), link.Token, map[string]any{
		"column_order": []any{"premium_total", "insurer"},
		"hidden_rows":  []any{"raw_text"},
	})
	require.NoError(t, err)
	assert.Zero(t, updated.ViewsCount)
	assert.Zero(t, updated.EditCount)

	replaced, err := f.svc.UpdateViewPrefs(context.Background(), link.Token, map[string]any{"compact": true})
	require.NoError(t, err)
	assert.Equal(t, true, replaced.ViewPrefs["compact"])
	_, kept := replaced.ViewPrefs["hidden_rows"]
	assert.False(t, kept)

	view, err := f.svc.ResolveForView(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, true, view.ViewPrefs["compact"])
	assert.Equal(t, int64(1), view.Link.ViewsCount)

	_, err = f.svc.UpdateViewPrefs(context.Background(), link.Token, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidViewPrefs))

	_, err = f.svc.UpdateViewPrefs(context.Background(), "unknown", map[string]any{})
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestListForJob(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.seedJob(t, 42)

	first, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.svc.Issue(orgCtx(42), domain.IssueLinkRequest{JobID: "J1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	links, err := f.svc.ListForJob(orgCtx(42), "J1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, second.Token, links[0].Token)

	_, err = f.svc.ListForJob(orgCtx(7), "J1")
	assert.True(t, errors.Is(err, domain.ErrJobNotFound))
}

func TestGenerateTokenIsURLSafe(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		token, err := generateToken()
		require.NoError(t, err)
		assert.Len(t, token, 43)
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")
		seen[token] = struct{}{}
	}
	assert.Len(t, seen, 50)
}
