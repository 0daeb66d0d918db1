package database

import "shopagg/internal/models"

// PersistentModels returns the schema-managed catalog models in dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.City{},
		&models.Category{},
		&models.User{},
		&models.Seller{},
		&models.Product{},
		&models.Like{},
	}
}
