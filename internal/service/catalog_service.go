package service

import (
	"context"

	"shopagg/internal/cache"
	"shopagg/internal/models"
	"shopagg/internal/repository"
)

// CatalogService serves the category and seller directories.
type CatalogService struct {
	categoryRepo repository.CategoryRepository
	sellerRepo   repository.SellerRepository
}

func NewCatalogService(categoryRepo repository.CategoryRepository, sellerRepo repository.SellerRepository) *CatalogService {
	return &CatalogService{categoryRepo: categoryRepo, sellerRepo: sellerRepo}
}

// CategoriesWithCounts lists every category with the number of products
// available in city. A nil city counts all available products.
func (s *CatalogService) CategoriesWithCounts(ctx context.Context, city *models.City) ([]models.CategoryWithCount, error) {
	var cityID *uint
	if city != nil {
		cityID = &city.ID
	}

	var out []models.CategoryWithCount
	err := cache.Aside(ctx, cache.CategoryCountsKey(cityID), &out, cache.CategoryCountsTTL, func() error {
		var err error
		out, err = s.categoryRepo.ListWithCounts(ctx, cityID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CatalogService) Category(ctx context.Context, slug string) (*models.Category, error) {
	return s.categoryRepo.GetBySlug(ctx, slug)
}

func (s *CatalogService) VerifiedSellers(ctx context.Context) ([]models.Seller, error) {
	var sellers []models.Seller
	err := cache.Aside(ctx, cache.SellerListKey(), &sellers, cache.SellerListTTL, func() error {
		var err error
		sellers, err = s.sellerRepo.ListVerified(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sellers, nil
}
