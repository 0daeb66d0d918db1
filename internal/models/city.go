// Package models contains the catalog, identity and like domain models.
package models

// City is a place products ship from (origin) or deliver to.
type City struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

// CityOption is a city annotated with whether it is the caller's current pick.
type CityOption struct {
	City
	Selected bool `json:"selected"`
}
