package repository

import (
	"context"
	"errors"

	"shopagg/internal/models"
	"shopagg/internal/observability"

	"gorm.io/gorm"
)

// ProductFilter narrows discovery candidates in SQL. Nil fields do not filter.
type ProductFilter struct {
	CityID     *uint
	CategoryID *uint
	SellerID   *uint
}

// ProductRepository defines persistence operations for products. Reads see
// live (not soft deleted) products only.
type ProductRepository interface {
	ListAvailable(ctx context.Context, f ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	ExistingIDs(ctx context.Context, ids []uint) ([]uint, error)
	ListBySeller(ctx context.Context, sellerID uint) ([]models.Product, error)
	SlugTaken(ctx context.Context, slug string) (bool, error)
	LinkTaken(ctx context.Context, link string, excludeID uint) (bool, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	SoftDelete(ctx context.Context, id uint) error
	HardDelete(ctx context.Context, id uint) (likesRemoved int64, err error)
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository returns a new ProductRepository implementation.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// AvailableIn scopes a products query to active, in-stock products that
// originate in or deliver to cityID. A nil cityID drops the city condition.
// EXISTS keeps one row per product regardless of delivery city count.
func AvailableIn(cityID *uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("products.is_active = ? AND products.stock_quantity > 0", true)
		if cityID == nil {
			return db
		}
		return db.Where(
			"(products.origin_city_id = ? OR EXISTS (SELECT 1 FROM product_delivery_cities pdc WHERE pdc.product_id = products.id AND pdc.city_id = ?))",
			*cityID, *cityID,
		)
	}
}

func (r *productRepository) ListAvailable(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	defer observability.TrackQuery("list_available", "products")()

	q := r.db.WithContext(ctx).Model(&models.Product{}).
		Scopes(AvailableIn(f.CityID)).
		Preload("DeliveryCities")
	if f.CategoryID != nil {
		q = q.Where("products.category_id = ?", *f.CategoryID)
	}
	if f.SellerID != nil {
		q = q.Where("products.seller_id = ?", *f.SellerID)
	}

	var products []models.Product
	if err := q.Order("products.id ASC").Find(&products).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return products, nil
}

func (r *productRepository) withDetails() *gorm.DB {
	return r.db.Preload("Seller").Preload("Category").Preload("OriginCity").Preload("DeliveryCities")
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.withDetails().WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Product", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &p, nil
}

func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	if err := r.withDetails().WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Product", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &p, nil
}

func (r *productRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Preload("DeliveryCities").
		Where("id IN ?", ids).Order("id ASC").Find(&products).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return products, nil
}

func (r *productRepository) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return []uint{}, nil
	}
	var found []uint
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id IN ?", ids).Order("id ASC").Pluck("id", &found).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return found, nil
}

func (r *productRepository) ListBySeller(ctx context.Context, sellerID uint) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Preload("DeliveryCities").
		Where("seller_id = ?", sellerID).Order("created_at DESC, id DESC").Find(&products).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return products, nil
}

// SlugTaken includes soft-deleted rows, which still hold their slug.
func (r *productRepository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Where("slug = ?", slug).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// LinkTaken checks live products only; a soft-deleted listing frees its link.
func (r *productRepository) LinkTaken(ctx context.Context, link string, excludeID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("link = ?", link)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *productRepository) Create(ctx context.Context, p *models.Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("This product is already listed")
		}
		if isForeignKeyError(err) {
			return models.NewValidationError("Unknown seller, category or city")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Update saves scalar fields and replaces the delivery city set.
func (r *productRepository) Update(ctx context.Context, p *models.Product) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cities := p.DeliveryCities
		if err := tx.Omit("DeliveryCities", "Seller", "Category", "OriginCity").Save(p).Error; err != nil {
			return err
		}
		if len(cities) == 0 {
			return tx.Model(p).Association("DeliveryCities").Clear()
		}
		return tx.Model(p).Association("DeliveryCities").Replace(cities)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("This product is already listed")
		}
		if isForeignKeyError(err) {
			return models.NewValidationError("Unknown category or city")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *productRepository) SoftDelete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Product", id)
	}
	return nil
}

// HardDelete removes the product row, its delivery links and every Like
// referencing it, whether or not it was soft deleted before.
func (r *productRepository) HardDelete(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		likes := tx.Where("product_id = ?", id).Delete(&models.Like{})
		if likes.Error != nil {
			return likes.Error
		}
		removed = likes.RowsAffected

		if err := tx.Exec("DELETE FROM product_delivery_cities WHERE product_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Product", id)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return 0, err
		}
		return 0, models.NewInternalError(err)
	}
	return removed, nil
}
