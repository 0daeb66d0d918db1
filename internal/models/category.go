package models

// Category groups products. Products restrict its deletion.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug string `gorm:"size:120;uniqueIndex;not null" json:"slug"`
}

// CategoryWithCount is a category and the number of products visible in a city.
type CategoryWithCount struct {
	Category
	ProductCount int64 `json:"product_count"`
}
