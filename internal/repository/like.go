package repository

import (
	"context"

	"shopagg/internal/models"
	"shopagg/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository defines persistence operations for authenticated likes.
type LikeRepository interface {
	// Insert adds a like. It returns models.ErrLikeConflict when the pair
	// already exists, as decided by the unique index, not a prior read.
	Insert(ctx context.Context, userID, productID uint) error
	// Delete removes a like and reports whether a row was removed.
	Delete(ctx context.Context, userID, productID uint) (bool, error)
	Exists(ctx context.Context, userID, productID uint) (bool, error)
	ProductIDs(ctx context.Context, userID uint) ([]uint, error)
	LikedAmong(ctx context.Context, userID uint, productIDs []uint) (map[uint]bool, error)
	// InsertMissing adds likes for productIDs the user does not already like
	// and returns how many rows were created.
	InsertMissing(ctx context.Context, userID uint, productIDs []uint) (int64, error)
	ListProducts(ctx context.Context, userID uint) ([]models.Product, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Insert(ctx context.Context, userID, productID uint) error {
	defer observability.TrackQuery("insert", "likes")()

	like := models.Like{UserID: userID, ProductID: productID}
	if err := r.db.WithContext(ctx).Create(&like).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrLikeConflict
		}
		if isForeignKeyError(err) {
			return models.NewNotFoundError("Product", productID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *likeRepository) Delete(ctx context.Context, userID, productID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.Like{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID, productID uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND product_id = ?", userID, productID).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *likeRepository) ProductIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).Order("product_id ASC").Pluck("product_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *likeRepository) LikedAmong(ctx context.Context, userID uint, productIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool)
	if len(productIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Pluck("product_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// InsertMissing uses INSERT ... ON CONFLICT DO NOTHING so replays and
// concurrent merges never create duplicate rows.
func (r *likeRepository) InsertMissing(ctx context.Context, userID uint, productIDs []uint) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	defer observability.TrackQuery("insert_missing", "likes")()

	likes := make([]models.Like, 0, len(productIDs))
	for _, id := range productIDs {
		likes = append(likes, models.Like{UserID: userID, ProductID: id})
	}
	res := r.insertIgnoringDuplicates(ctx, &likes)
	if res.Error == nil {
		return res.RowsAffected, nil
	}
	if !isForeignKeyError(res.Error) {
		return 0, models.NewInternalError(res.Error)
	}

	// A product vanished since the caller checked; insert one by one and skip it.
	var inserted int64
	for i := range likes {
		one := []models.Like{{UserID: userID, ProductID: likes[i].ProductID}}
		res := r.insertIgnoringDuplicates(ctx, &one)
		switch {
		case res.Error == nil:
			inserted += res.RowsAffected
		case isForeignKeyError(res.Error):
			continue
		default:
			return inserted, models.NewInternalError(res.Error)
		}
	}
	return inserted, nil
}

func (r *likeRepository) insertIgnoringDuplicates(ctx context.Context, likes *[]models.Like) *gorm.DB {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}}, DoNothing: true}).
		Create(likes)
}

// ListProducts returns the user's liked live products, most recently liked first.
func (r *likeRepository) ListProducts(ctx context.Context, userID uint) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Preload("DeliveryCities").
		Joins("JOIN likes ON likes.product_id = products.id AND likes.user_id = ?", userID).
		Order("likes.created_at DESC, products.id DESC").
		Find(&products).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return products, nil
}
