package service

import (
	"context"
	"errors"
	"testing"

	"shopagg/internal/models"
	"shopagg/internal/repository"
	"shopagg/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	cat       *testutil.Catalog
	likes     *LikeService
	cities    *CityService
	catalog   *CatalogService
	products  *ProductService
	discovery *DiscoveryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	cat := testutil.NewCatalog(t, db)

	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	cityRepo := repository.NewCityRepository(db)
	sellerRepo := repository.NewSellerRepository(db)
	userRepo := repository.NewUserRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	f := &fixture{db: db, cat: cat}
	f.likes = NewLikeService(likeRepo, productRepo)
	f.cities = NewCityService(cityRepo, userRepo, cat.Capital.ID)
	f.catalog = NewCatalogService(categoryRepo, sellerRepo)
	f.products = NewProductService(productRepo, sellerRepo, cityRepo, f.likes)
	f.discovery = NewDiscoveryService(productRepo, categoryRepo, f.cities, f.likes, 20, 20)
	return f
}

func (f *fixture) softDelete(t *testing.T, p models.Product) {
	t.Helper()
	require.NoError(t, f.db.Delete(&models.Product{}, p.ID).Error)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func cardIDs(cards []models.ProductCard) []uint {
	out := make([]uint, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

// likeRepoStub lets tests script individual LikeRepository calls.
type likeRepoStub struct {
	repository.LikeRepository
	insertFn func(ctx context.Context, userID, productID uint) error
	deleteFn func(ctx context.Context, userID, productID uint) (bool, error)
}

func (s *likeRepoStub) Insert(ctx context.Context, userID, productID uint) error {
	return s.insertFn(ctx, userID, productID)
}

func (s *likeRepoStub) Delete(ctx context.Context, userID, productID uint) (bool, error) {
	return s.deleteFn(ctx, userID, productID)
}

type productRepoStub struct {
	repository.ProductRepository
	getByIDFn func(ctx context.Context, id uint) (*models.Product, error)
}

func (s *productRepoStub) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	return s.getByIDFn(ctx, id)
}
