package seed

import (
	"context"
	"strings"
	"testing"

	"shopagg/internal/models"
	"shopagg/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const smallFixture = `
cities: [Tegucigalpa, La Ceiba]
categories:
  - name: Café
shoppers:
  - username: maria
    preferred_city: La Ceiba
sellers:
  - username: marcala
    store_name: Café Marcala
    website: https://cafemarcala.hn
    verified: true
    products:
      - name: Tostado medio
        link: https://cafemarcala.hn/p/medio
        price: "189.00"
        stock: 4
        category: cafe
        origin: Tegucigalpa
        delivery: [La Ceiba]
      - name: Tostado oscuro
        price: "199.00"
        stock: 0
        category: cafe
        origin: Tegucigalpa
`

func newTestSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	s := NewSeeder(db, 7)
	s.cost = bcrypt.MinCost
	return s, db
}

func TestParseFixture_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "cities: [A]\ntowns: [B]\n", "towns"},
		{"duplicate city", "cities: [A, A]\n", "duplicate city"},
		{"unknown preferred city", "cities: [A]\nshoppers:\n  - username: u\n    preferred_city: B\n", "undeclared city"},
		{"unknown category", `
cities: [A]
categories: [{name: Tea}]
sellers:
  - username: s
    store_name: S
    website: https://s.example.com
    verified: true
    products: [{name: P, price: "1", category: coffee, origin: A}]
`, "undeclared category"},
		{"unknown delivery city", `
cities: [A]
categories: [{name: Tea}]
sellers:
  - username: s
    store_name: S
    website: https://s.example.com
    verified: true
    products: [{name: P, price: "1", category: tea, origin: A, delivery: [Z]}]
`, "undeclared city"},
		{"unverified seller with products", `
cities: [A]
categories: [{name: Tea}]
sellers:
  - username: s
    store_name: S
    website: https://s.example.com
    products: [{name: P, price: "1", category: tea, origin: A}]
`, "unverified seller"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApply_IsIdempotent(t *testing.T) {
	s, db := newTestSeeder(t)
	ctx := context.Background()

	fx, err := ParseFixture(strings.NewReader(smallFixture))
	require.NoError(t, err)
	assert.Equal(t, "cafe", fx.Categories[0].Slug)

	res, err := s.Apply(ctx, fx)
	require.NoError(t, err)
	assert.Equal(t, Result{Cities: 2, Categories: 1, Users: 2, Sellers: 1, Products: 2}, *res)

	var products []models.Product
	require.NoError(t, db.Preload("DeliveryCities").Order("id").Find(&products).Error)
	require.Len(t, products, 2)
	assert.Equal(t, "tostado-medio", products[0].Slug)
	require.Len(t, products[0].DeliveryCities, 1)
	assert.Equal(t, "La Ceiba", products[0].DeliveryCities[0].Name)
	assert.Nil(t, products[1].Link)

	var maria models.User
	require.NoError(t, db.Preload("PreferredCity").Where("username = ?", "maria").First(&maria).Error)
	require.NotNil(t, maria.PreferredCity)
	assert.Equal(t, "La Ceiba", maria.PreferredCity.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(maria.Password), []byte(DefaultPassword)))

	again, err := s.Apply(ctx, fx)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 2}, *again)
}

func TestApply_RejectsProductsTheServiceRejects(t *testing.T) {
	s, _ := newTestSeeder(t)
	fx, err := ParseFixture(strings.NewReader(strings.Replace(smallFixture,
		"https://cafemarcala.hn/p/medio", "https://elsewhere.hn/p/medio", 1)))
	require.NoError(t, err)

	_, err = s.Apply(context.Background(), fx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tostado medio")
}

func TestLoadFixture_DemoCatalog(t *testing.T) {
	s, db := newTestSeeder(t)
	ctx := context.Background()

	fx, err := LoadFixture("../../fixtures/catalog.yml")
	require.NoError(t, err)

	res, err := s.Apply(ctx, fx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Cities)
	assert.Equal(t, 4, res.Categories)
	assert.Equal(t, 6, res.Users)
	assert.Equal(t, 4, res.Sellers)
	assert.Equal(t, 8, res.Products)

	var home models.City
	require.NoError(t, db.First(&home, 1).Error)
	assert.Equal(t, "Tegucigalpa", home.Name)

	var pending models.Seller
	require.NoError(t, db.Where("store_name = ?", "Tienda Nueva").First(&pending).Error)
	assert.False(t, pending.IsVerified)

	require.NoError(t, s.ClearAll(ctx))
	var remaining int64
	require.NoError(t, db.Model(&models.City{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestRandomProducts(t *testing.T) {
	generate := func() []string {
		s, db := newTestSeeder(t)
		ctx := context.Background()
		fx, err := ParseFixture(strings.NewReader(smallFixture))
		require.NoError(t, err)
		_, err = s.Apply(ctx, fx)
		require.NoError(t, err)

		res, err := s.RandomProducts(ctx, 15)
		require.NoError(t, err)
		assert.Equal(t, 15, res.Products+res.Skipped)
		assert.Positive(t, res.Products)

		var products []models.Product
		require.NoError(t, db.Where("id > ?", 2).Order("id").Find(&products).Error)
		names := make([]string, 0, len(products))
		for _, p := range products {
			require.NotNil(t, p.Link)
			assert.True(t, strings.HasPrefix(*p.Link, "https://cafemarcala.hn/p/"), *p.Link)
			assert.True(t, p.Price.IsPositive())
			names = append(names, p.Name)
		}
		return names
	}

	assert.Equal(t, generate(), generate(), "the same seed generates the same catalog")
}

func TestRandomProducts_NeedsCatalog(t *testing.T) {
	s, _ := newTestSeeder(t)
	_, err := s.RandomProducts(context.Background(), 3)
	assert.Error(t, err)
}
