package repository

import (
	"context"
	"errors"

	"shopagg/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetPreferredCity(ctx context.Context, userID uint, cityID *uint) error
	Delete(ctx context.Context, id uint) (likesRemoved int64, err error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Seller").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) SetPreferredCity(ctx context.Context, userID uint, cityID *uint) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("preferred_city_id", cityID)
	if res.Error != nil {
		if isForeignKeyError(res.Error) {
			return models.NewValidationError("Unknown city")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}

// Delete removes the user and their likes. Users owning a seller profile
// cannot be deleted.
func (r *userRepository) Delete(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sellers int64
		if err := tx.Model(&models.Seller{}).Where("user_id = ?", id).Count(&sellers).Error; err != nil {
			return err
		}
		if sellers > 0 {
			return models.NewConflictError("User owns a seller profile")
		}

		likes := tx.Where("user_id = ?", id).Delete(&models.Like{})
		if likes.Error != nil {
			return likes.Error
		}
		removed = likes.RowsAffected

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
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
