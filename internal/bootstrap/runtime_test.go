package bootstrap

import (
	"context"
	"testing"

	"shopagg/internal/models"
	"shopagg/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIfEmpty(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()

	require.NoError(t, seedIfEmpty(ctx, db, "../../fixtures/catalog.yml"))
	var products int64
	require.NoError(t, db.Model(&models.Product{}).Count(&products).Error)
	assert.Equal(t, int64(8), products)

	// A populated database is left alone, even with a bad path.
	assert.NoError(t, seedIfEmpty(ctx, db, "missing.yml"))
}

func TestSeedIfEmpty_MissingFixture(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	assert.Error(t, seedIfEmpty(context.Background(), db, "missing.yml"))
}
