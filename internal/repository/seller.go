package repository

import (
	"context"
	"errors"

	"shopagg/internal/models"

	"gorm.io/gorm"
)

// SellerRepository defines persistence operations for sellers.
type SellerRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Seller, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Seller, error)
	ListVerified(ctx context.Context) ([]models.Seller, error)
	Create(ctx context.Context, s *models.Seller) error
}

type sellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository returns a new SellerRepository implementation.
func NewSellerRepository(db *gorm.DB) SellerRepository {
	return &sellerRepository{db: db}
}

func (r *sellerRepository) GetByID(ctx context.Context, id uint) (*models.Seller, error) {
	var s models.Seller
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Seller", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &s, nil
}

// GetByUserID returns nil, nil when the user has no seller profile.
func (r *sellerRepository) GetByUserID(ctx context.Context, userID uint) (*models.Seller, error) {
	var s models.Seller
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &s, nil
}

func (r *sellerRepository) ListVerified(ctx context.Context) ([]models.Seller, error) {
	var sellers []models.Seller
	if err := r.db.WithContext(ctx).Where("is_verified = ?", true).
		Order("store_name ASC").Find(&sellers).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return sellers, nil
}

func (r *sellerRepository) Create(ctx context.Context, s *models.Seller) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Seller store name, website or user already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}
