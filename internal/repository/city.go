package repository

import (
	"context"
	"errors"

	"shopagg/internal/models"

	"gorm.io/gorm"
)

// CityRepository defines persistence operations for cities.
type CityRepository interface {
	List(ctx context.Context) ([]models.City, error)
	GetByID(ctx context.Context, id uint) (*models.City, error)
	Create(ctx context.Context, c *models.City) error
	Delete(ctx context.Context, id uint) error
}

type cityRepository struct {
	db *gorm.DB
}

// NewCityRepository returns a new CityRepository implementation.
func NewCityRepository(db *gorm.DB) CityRepository {
	return &cityRepository{db: db}
}

func (r *cityRepository) List(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&cities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return cities, nil
}

func (r *cityRepository) GetByID(ctx context.Context, id uint) (*models.City, error) {
	var c models.City
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("City", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &c, nil
}

func (r *cityRepository) Create(ctx context.Context, c *models.City) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("City already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Delete fails with a conflict while a product origin or a user's preferred
// city references it. Delivery links are dropped with the city.
func (r *cityRepository) Delete(ctx context.Context, id uint) error {
	var refs int64
	if err := r.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Where("origin_city_id = ?", id).Count(&refs).Error; err != nil {
		return models.NewInternalError(err)
	}
	if refs == 0 {
		if err := r.db.WithContext(ctx).Model(&models.User{}).
			Where("preferred_city_id = ?", id).Count(&refs).Error; err != nil {
			return models.NewInternalError(err)
		}
	}
	if refs > 0 {
		return models.NewConflictError("City is in use")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM product_delivery_cities WHERE city_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.City{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("City", id)
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case isForeignKeyError(err):
		return models.NewConflictError("City is in use")
	default:
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}
}
