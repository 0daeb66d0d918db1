package models

import "time"

// User is an authenticated shopper. A user may own one Seller.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Username        string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email           string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password        string    `gorm:"not null" json:"-"`
	PreferredCityID *uint     `gorm:"index" json:"preferred_city_id,omitempty"`
	PreferredCity   *City     `gorm:"foreignKey:PreferredCityID;constraint:OnDelete:RESTRICT" json:"preferred_city,omitempty"`
	Seller          *Seller   `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"seller,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
