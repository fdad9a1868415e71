package productline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smallbiznis/quoteshare/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValid(t *testing.T) {
	assert.True(t, Valid("casco"))
	assert.True(t, Valid(" Health "))
	assert.False(t, Valid("pets"))
	assert.False(t, Valid(""))
	assert.Equal(t, []string{"casco", "health", "liability", "mtpl", "property", "travel"}, Known())
}

func TestParseDefaults(t *testing.T) {
	d, err := ParseDefaults("jobs=casco, offers=Health")
	require.NoError(t, err)
	assert.Equal(t, "casco", d.For(TableJobs))
	assert.Equal(t, "health", d.For(TableOffers))

	_, err = ParseDefaults("jobs=pets")
	assert.True(t, errors.Is(err, ErrUnknown))

	_, err = ParseDefaults("invoices=casco")
	assert.Error(t, err)

	_, err = ParseDefaults("jobs")
	assert.Error(t, err)
}

func TestStaticHolder(t *testing.T) {
	h := NewStaticHolder(Defaults{TableShareLinks: Travel})

	assert.Equal(t, Casco, h.For(TableJobs))
	assert.Equal(t, Travel, h.For(TableShareLinks))

	got := h.Get()
	got[TableJobs] = Health
	assert.Equal(t, Casco, h.For(TableJobs))
}

func TestNewHolderLayersFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "productlines.yml")
	content := "product_line_defaults:\n  offers: health\n  share_links: property\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	h, err := NewHolder(config.Config{
		ProductLineConfigPath: path,
		ProductLineDefaults:   "share_links=travel",
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, Casco, h.For(TableJobs))
	assert.Equal(t, Health, h.For(TableOffers))
	assert.Equal(t, Travel, h.For(TableShareLinks))
}

func TestNewHolderRejectsUnknownLineInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "productlines.yml")
	require.NoError(t, os.WriteFile(path, []byte("product_line_defaults:\n  jobs: pets\n"), 0o600))

	_, err := NewHolder(config.Config{ProductLineConfigPath: path}, zap.NewNop())
	assert.True(t, errors.Is(err, ErrUnknown))
}

func TestNewHolderMissingExplicitFile(t *testing.T) {
	_, err := NewHolder(config.Config{
		ProductLineConfigPath: filepath.Join(t.TempDir(), "missing.yml"),
	}, zap.NewNop())
	assert.Error(t, err)
}
