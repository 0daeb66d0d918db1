package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shopagg/internal/cache"
	"shopagg/internal/middleware"
	"shopagg/internal/models"
	"shopagg/internal/repository"
	"shopagg/internal/textnorm"
	"shopagg/internal/validation"

	"github.com/shopspring/decimal"
)

// ProductService covers single-product reads and seller-side listing management.
type ProductService struct {
	productRepo repository.ProductRepository
	sellerRepo  repository.SellerRepository
	cityRepo    repository.CityRepository
	likes       *LikeService
}

type ProductInput struct {
	Name            string
	Description     string
	Link            string
	Price           decimal.Decimal
	StockQuantity   uint
	IsActive        bool
	CategoryID      uint
	OriginCityID    uint
	DeliveryCityIDs []uint
}

func NewProductService(
	productRepo repository.ProductRepository,
	sellerRepo repository.SellerRepository,
	cityRepo repository.CityRepository,
	likes *LikeService,
) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		sellerRepo:  sellerRepo,
		cityRepo:    cityRepo,
		likes:       likes,
	}
}

// Card returns the product behind slug annotated for id. Soft-deleted
// products are not found.
func (s *ProductService) Card(ctx context.Context, id Identity, slug string) (*models.ProductCard, error) {
	p, err := s.productRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	cards, err := s.likes.Annotate(ctx, id, []models.Product{*p})
	if err != nil {
		return nil, err
	}
	return &cards[0], nil
}

// SellerProducts lists every live product of the seller owned by userID.
func (s *ProductService) SellerProducts(ctx context.Context, userID uint) ([]models.Product, error) {
	seller, err := s.verifiedSeller(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.productRepo.ListBySeller(ctx, seller.ID)
}

func (s *ProductService) Create(ctx context.Context, userID uint, in ProductInput) (*models.Product, error) {
	seller, err := s.verifiedSeller(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &models.Product{SellerID: seller.ID}
	if err := s.apply(ctx, seller, p, in); err != nil {
		return nil, err
	}
	if p.Slug, err = s.uniqueSlug(ctx, p.Name); err != nil {
		return nil, err
	}
	if err := s.productRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	middleware.Logger.InfoContext(ctx, "Product created",
		slog.Uint64("product_id", uint64(p.ID)),
		slog.Uint64("seller_id", uint64(seller.ID)),
		slog.String("slug", p.Slug),
	)
	return p, nil
}

// Update rewrites a product's editable fields. The slug is kept.
func (s *ProductService) Update(ctx context.Context, userID uint, slug string, in ProductInput) (*models.Product, error) {
	seller, p, err := s.owned(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, seller, p, in); err != nil {
		return nil, err
	}
	p.Seller, p.Category, p.OriginCity = nil, nil, nil
	if err := s.productRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

// Delete soft deletes the product. Its slug stays reserved.
func (s *ProductService) Delete(ctx context.Context, userID uint, slug string) error {
	_, p, err := s.owned(ctx, userID, slug)
	if err != nil {
		return err
	}
	if err := s.productRepo.SoftDelete(ctx, p.ID); err != nil {
		return err
	}
	s.invalidate(ctx)
	middleware.Logger.InfoContext(ctx, "Product deleted", slog.Uint64("product_id", uint64(p.ID)))
	return nil
}

func (s *ProductService) verifiedSeller(ctx context.Context, userID uint) (*models.Seller, error) {
	seller, err := s.sellerRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, models.NewForbiddenError("Seller profile required")
	}
	if !seller.IsVerified {
		return nil, models.NewForbiddenError("Seller is not verified")
	}
	return seller, nil
}

func (s *ProductService) owned(ctx context.Context, userID uint, slug string) (*models.Seller, *models.Product, error) {
	seller, err := s.verifiedSeller(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.productRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if p.SellerID != seller.ID {
		return nil, nil, models.NewForbiddenError("You can only manage your own products")
	}
	return seller, p, nil
}

// apply validates in and copies it onto p.
func (s *ProductService) apply(ctx context.Context, seller *models.Seller, p *models.Product, in ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateProductName(name); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateDescription(in.Description); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePrice(in.Price); err != nil {
		return models.NewValidationError(err.Error())
	}
	if in.CategoryID == 0 || in.OriginCityID == 0 {
		return models.NewValidationError("Category and origin city are required")
	}

	var link *string
	if raw := strings.TrimSpace(in.Link); raw != "" {
		if !seller.OwnsLink(raw) {
			return models.NewValidationError(fmt.Sprintf("Product link must start with %s", seller.Website))
		}
		taken, err := s.productRepo.LinkTaken(ctx, raw, p.ID)
		if err != nil {
			return err
		}
		if taken {
			return models.NewConflictError("This product is already listed")
		}
		link = &raw
	}

	cities := make([]models.City, 0, len(in.DeliveryCityIDs))
	seen := make(map[uint]bool, len(in.DeliveryCityIDs))
	for _, id := range in.DeliveryCityIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		city, err := s.cityRepo.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return models.NewValidationError(fmt.Sprintf("Unknown delivery city %d", id))
			}
			return err
		}
		cities = append(cities, *city)
	}

	p.Name = name
	p.Description = in.Description
	p.Link = link
	p.Price = in.Price
	p.StockQuantity = in.StockQuantity
	p.IsActive = in.IsActive
	p.CategoryID = in.CategoryID
	p.OriginCityID = in.OriginCityID
	p.DeliveryCities = cities
	return nil
}

// uniqueSlug derives a slug from name, appending -1, -2, ... until it is free.
// Slugs of soft-deleted products count as taken.
func (s *ProductService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := textnorm.Slugify(name)
	if base == "" {
		base = "product"
	}
	slug := base
	for n := 1; ; n++ {
		taken, err := s.productRepo.SlugTaken(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *ProductService) invalidate(ctx context.Context) {
	cache.InvalidateCategoryCounts(ctx)
}
