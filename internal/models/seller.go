package models

import (
	"strings"
	"time"
)

// Seller is the store identity of a user. Product links must live under Website.
type Seller struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	StoreName   string    `gorm:"size:100;uniqueIndex;not null" json:"store_name"`
	Website     string    `gorm:"size:255;uniqueIndex;not null" json:"website"`
	Description string    `gorm:"type:text" json:"description"`
	IsVerified  bool      `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

// OwnsLink reports whether link is the seller website or a path beneath it.
func (s *Seller) OwnsLink(link string) bool {
	site := strings.TrimSuffix(strings.TrimSpace(s.Website), "/")
	if site == "" {
		return false
	}
	if link == site {
		return true
	}
	return strings.HasPrefix(link, site+"/") || strings.HasPrefix(link, site+"?")
}
