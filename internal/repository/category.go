package repository

import (
	"context"
	"errors"

	"shopagg/internal/models"
	"shopagg/internal/observability"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	ListWithCounts(ctx context.Context, cityID *uint) ([]models.CategoryWithCount, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uint) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

// ListWithCounts returns every category with the number of products available
// in cityID. Categories with no available products are included with zero.
func (r *categoryRepository) ListWithCounts(ctx context.Context, cityID *uint) ([]models.CategoryWithCount, error) {
	defer observability.TrackQuery("list_with_counts", "categories")()

	available := AvailableIn(cityID)(r.db.Model(&models.Product{}).
		Select("products.category_id, COUNT(*) AS product_count")).
		Where("products.deleted_at IS NULL").
		Group("products.category_id")

	var rows []models.CategoryWithCount
	err := r.db.WithContext(ctx).Model(&models.Category{}).
		Select("categories.id, categories.name, categories.slug, COALESCE(counts.product_count, 0) AS product_count").
		Joins("LEFT JOIN (?) AS counts ON counts.category_id = categories.id", available).
		Order("categories.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Category", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &c, nil
}

func (r *categoryRepository) Create(ctx context.Context, c *models.Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Category already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Delete fails with a conflict while any product, live or soft deleted, references the category.
func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	var refs int64
	if err := r.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Where("category_id = ?", id).Count(&refs).Error; err != nil {
		return models.NewInternalError(err)
	}
	if refs > 0 {
		return models.NewConflictError("Category is in use by products")
	}

	res := r.db.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		if isForeignKeyError(res.Error) {
			return models.NewConflictError("Category is in use by products")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Category", id)
	}
	return nil
}
