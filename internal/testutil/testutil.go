// Package testutil provides shared database fixtures for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"shopagg/internal/database"
	"shopagg/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// NewSQLiteDB opens a private in-memory SQLite database with the catalog schema.
// Foreign keys are enforced.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:shopagg_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Catalog is a small seeded catalog: two cities, one category and a verified seller.
type Catalog struct {
	DB       *gorm.DB
	Capital  models.City
	Other    models.City
	Category models.Category
	User     models.User
	Seller   models.Seller

	seq int
}

// NewCatalog seeds the base catalog rows. The capital city is created first so
// it receives ID 1.
func NewCatalog(t testing.TB, db *gorm.DB) *Catalog {
	t.Helper()

	c := &Catalog{DB: db}
	c.Capital = models.City{Name: "Tegucigalpa"}
	c.Other = models.City{Name: "San Pedro Sula"}
	require.NoError(t, db.Create(&c.Capital).Error)
	require.NoError(t, db.Create(&c.Other).Error)

	c.Category = models.Category{Name: "Coffee", Slug: "coffee"}
	require.NoError(t, db.Create(&c.Category).Error)

	c.User = c.NewUser(t, "seller")
	c.Seller = c.NewSeller(t, c.User.ID, "Main Store", "https://main.example.com")
	return c
}

// NewUser creates a user with a placeholder password hash.
func (c *Catalog) NewUser(t testing.TB, username string) models.User {
	t.Helper()
	u := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "$2a$10$placeholderplaceholderplaceholderplaceholderpla",
	}
	require.NoError(t, c.DB.Create(&u).Error)
	return u
}

// NewSeller creates a verified seller for userID.
func (c *Catalog) NewSeller(t testing.TB, userID uint, store, website string) models.Seller {
	t.Helper()
	s := models.Seller{UserID: userID, StoreName: store, Website: website, IsVerified: true}
	require.NoError(t, c.DB.Create(&s).Error)
	return s
}

// NewCategory creates a category.
func (c *Catalog) NewCategory(t testing.TB, name, slug string) models.Category {
	t.Helper()
	cat := models.Category{Name: name, Slug: slug}
	require.NoError(t, c.DB.Create(&cat).Error)
	return cat
}

// NewProduct creates an active, in-stock product originating in the capital.
// mutate may adjust any field, including DeliveryCities, before insert.
func (c *Catalog) NewProduct(t testing.TB, name string, mutate ...func(*models.Product)) models.Product {
	t.Helper()
	c.seq++
	p := models.Product{
		Name:          name,
		Price:         decimal.NewFromInt(100),
		StockQuantity: 10,
		IsActive:      true,
		Slug:          fmt.Sprintf("product-%d", c.seq),
		SellerID:      c.Seller.ID,
		CategoryID:    c.Category.ID,
		OriginCityID:  c.Capital.ID,
	}
	for _, m := range mutate {
		m(&p)
	}
	require.NoError(t, c.DB.Create(&p).Error)
	return p
}
