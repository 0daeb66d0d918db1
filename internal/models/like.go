package models

import "time"

// Like is a persisted (user, product) like. The pair is unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_likes_user_product;index" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`

	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
}

// LikeState is the outcome of a like toggle.
type LikeState string

const (
	LikeStateLiked   LikeState = "liked"
	LikeStateUnliked LikeState = "unliked"
)
