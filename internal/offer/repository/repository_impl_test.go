package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/smallbiznis/quoteshare/internal/migration/migrationtest"
	"github.com/smallbiznis/quoteshare/internal/offer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverageIsReadBack(t *testing.T) {
	ctx := context.Background()
	db := migrationtest.Open(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.Exec(
		`INSERT INTO jobs (id, org_id, subject_ref, product_line, created_at) VALUES (?, ?, ?, ?, ?)`,
		"J1", 42, "ABC123", "casco", now,
	).Error)

	r := Provide()
	offer := domain.Offer{
		ID:          1,
		JobID:       "J1",
		OrgID:       42,
		Insurer:     "Acme",
		InsurerKey:  "acme",
		SubjectRef:  "ABC123",
		Currency:    "EUR",
		Coverage:    domain.Coverage{"liability": true, "deductible": 150.0},
		ProductLine: "casco",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, r.Insert(ctx, db, &offer))

	want := domain.Coverage{"liability": true, "deductible": json.Number("150")}

	found, err := r.FindByID(ctx, db, 42, 1)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, want, found.Coverage)

	listed, err := r.ListByJob(ctx, db, 42, "J1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, want, listed[0].Coverage)

	streamed := 0
	for item, err := range r.Stream(ctx, db, 42, domain.OfferFilter{JobID: "J1"}) {
		require.NoError(t, err)
		assert.Equal(t, want, item.Coverage)
		streamed++
	}
	assert.Equal(t, 1, streamed)

	found.Coverage = found.Coverage.Merge(map[string]any{"theft": true})
	require.NoError(t, r.Update(ctx, db, found))

	found, err = r.FindByID(ctx, db, 42, 1)
	require.NoError(t, err)
	liability, _ := found.Coverage.Bool("liability")
	theft, _ := found.Coverage.Bool("theft")
	assert.True(t, liability)
	assert.True(t, theft)
}
