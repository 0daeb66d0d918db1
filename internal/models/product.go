package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a seller listing. Links are unique among live (not soft deleted) products.
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	StockQuantity uint            `gorm:"not null" json:"stock_quantity"`
	IsActive      bool            `gorm:"not null;index" json:"is_active"`
	Slug          string          `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Link          *string         `gorm:"size:500;index:idx_products_live_link,unique,where:deleted_at IS NULL" json:"link,omitempty"`

	SellerID     uint `gorm:"not null;index" json:"seller_id"`
	CategoryID   uint `gorm:"not null;index" json:"category_id"`
	OriginCityID uint `gorm:"not null;index" json:"origin_city_id"`

	Seller         *Seller   `gorm:"foreignKey:SellerID;constraint:OnDelete:RESTRICT" json:"seller,omitempty"`
	Category       *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	OriginCity     *City     `gorm:"foreignKey:OriginCityID;constraint:OnDelete:RESTRICT" json:"origin_city,omitempty"`
	DeliveryCities []City    `gorm:"many2many:product_delivery_cities;constraint:OnDelete:CASCADE" json:"delivery_cities,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsDeleted reports whether the product has been soft deleted.
func (p *Product) IsDeleted() bool {
	return p.DeletedAt.Valid
}

// DeliversTo reports whether cityID is among the product's delivery cities.
func (p *Product) DeliversTo(cityID uint) bool {
	return slices.ContainsFunc(p.DeliveryCities, func(c City) bool { return c.ID == cityID })
}

// ProductCard is a product annotated for the current identity.
type ProductCard struct {
	Product
	IsLiked bool `json:"is_liked"`
}
