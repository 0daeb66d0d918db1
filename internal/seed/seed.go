// Package seed populates the catalog for development and demos, either from a
// YAML fixture or with generated products.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shopagg/internal/middleware"
	"shopagg/internal/models"
	"shopagg/internal/repository"
	"shopagg/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "Shopagg-Demo-2024"

// Result counts what a seeding run created.
type Result struct {
	Cities     int
	Categories int
	Users      int
	Sellers    int
	Products   int
	Skipped    int
}

// Seeder writes catalog data. Products go through ProductService so seeded
// listings obey the same slug, link and validation rules as seller input.
type Seeder struct {
	db       *gorm.DB
	faker    *gofakeit.Faker
	users    repository.UserRepository
	products *service.ProductService
	cost     int
}

// NewSeeder builds a seeder. The same seed yields the same generated catalog.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	productRepo := repository.NewProductRepository(db)
	likes := service.NewLikeService(repository.NewLikeRepository(db), productRepo)
	return &Seeder{
		db:    db,
		faker: gofakeit.New(seed),
		users: repository.NewUserRepository(db),
		products: service.NewProductService(
			productRepo,
			repository.NewSellerRepository(db),
			repository.NewCityRepository(db),
			likes,
		),
		cost: bcrypt.DefaultCost,
	}
}

// ClearAll removes every catalog row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []string{"likes", "product_delivery_cities", "products", "sellers", "users", "categories", "cities"}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		middleware.Logger.InfoContext(ctx, "Catalog cleared")
		return nil
	})
}

// Apply loads fx. Rows are matched on their natural keys, so running it twice
// creates nothing new.
func (s *Seeder) Apply(ctx context.Context, fx *Fixture) (*Result, error) {
	var res Result
	db := s.db.WithContext(ctx)

	cities := make(map[string]models.City, len(fx.Cities))
	for _, name := range fx.Cities {
		city := models.City{Name: strings.TrimSpace(name)}
		created, err := firstOrCreate(db, &city, "name = ?", city.Name)
		if err != nil {
			return nil, fmt.Errorf("seed city %q: %w", name, err)
		}
		if created {
			res.Cities++
		}
		cities[city.Name] = city
	}

	categories := make(map[string]models.Category, len(fx.Categories))
	for _, c := range fx.Categories {
		cat := models.Category{Name: c.Name, Slug: c.Slug}
		created, err := firstOrCreate(db, &cat, "slug = ?", cat.Slug)
		if err != nil {
			return nil, fmt.Errorf("seed category %q: %w", c.Slug, err)
		}
		if created {
			res.Categories++
		}
		categories[cat.Slug] = cat
	}

	for _, u := range fx.Shoppers {
		if _, err := s.user(ctx, u, cities, &res); err != nil {
			return nil, err
		}
	}

	for _, sf := range fx.Sellers {
		user, err := s.user(ctx, sf.UserFixture, cities, &res)
		if err != nil {
			return nil, err
		}
		seller := models.Seller{
			UserID:      user.ID,
			StoreName:   sf.StoreName,
			Website:     sf.Website,
			Description: sf.Description,
			IsVerified:  sf.Verified,
		}
		created, err := firstOrCreate(db, &seller, "user_id = ?", user.ID)
		if err != nil {
			return nil, fmt.Errorf("seed seller %q: %w", sf.StoreName, err)
		}
		if created {
			res.Sellers++
		}

		for _, pf := range sf.Products {
			var existing int64
			if err := db.Model(&models.Product{}).
				Where("seller_id = ? AND name = ?", seller.ID, pf.Name).
				Count(&existing).Error; err != nil {
				return nil, err
			}
			if existing > 0 {
				res.Skipped++
				continue
			}

			in, err := productInput(pf, categories, cities)
			if err != nil {
				return nil, err
			}
			if _, err := s.products.Create(ctx, user.ID, in); err != nil {
				return nil, fmt.Errorf("seed product %q: %w", pf.Name, err)
			}
			res.Products++
		}
	}

	middleware.Logger.InfoContext(ctx, "Fixture applied",
		slog.Int("cities", res.Cities),
		slog.Int("categories", res.Categories),
		slog.Int("users", res.Users),
		slog.Int("sellers", res.Sellers),
		slog.Int("products", res.Products),
	)
	return &res, nil
}

func (s *Seeder) user(ctx context.Context, u UserFixture, cities map[string]models.City, res *Result) (*models.User, error) {
	existing, err := s.users.GetByUsername(ctx, u.Username)
	if err != nil {
		return nil, err
	}
	user := existing
	if user == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), s.cost)
		if err != nil {
			return nil, err
		}
		email := u.Email
		if email == "" {
			email = u.Username + "@shopagg.local"
		}
		user = &models.User{Username: u.Username, Email: strings.ToLower(email), Password: string(hash)}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		res.Users++
	}

	if u.PreferredCity != "" {
		city := cities[u.PreferredCity]
		if err := s.users.SetPreferredCity(ctx, user.ID, &city.ID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func productInput(pf ProductFixture, categories map[string]models.Category, cities map[string]models.City) (service.ProductInput, error) {
	price, err := decimal.NewFromString(pf.Price)
	if err != nil {
		return service.ProductInput{}, fmt.Errorf("product %q: invalid price %q", pf.Name, pf.Price)
	}
	delivery := make([]uint, 0, len(pf.Delivery))
	for _, name := range pf.Delivery {
		delivery = append(delivery, cities[name].ID)
	}
	return service.ProductInput{
		Name:            pf.Name,
		Description:     pf.Description,
		Link:            pf.Link,
		Price:           price,
		StockQuantity:   pf.Stock,
		IsActive:        !pf.Inactive,
		CategoryID:      categories[pf.Category].ID,
		OriginCityID:    cities[pf.Origin].ID,
		DeliveryCityIDs: delivery,
	}, nil
}

// RandomProducts adds n generated products spread over the existing verified
// sellers, categories and cities. Generated input that fails validation is
// skipped and counted.
func (s *Seeder) RandomProducts(ctx context.Context, n int) (*Result, error) {
	var res Result
	db := s.db.WithContext(ctx)

	var sellers []models.Seller
	if err := db.Where("is_verified = ?", true).Order("id").Find(&sellers).Error; err != nil {
		return nil, err
	}
	var categories []models.Category
	if err := db.Order("id").Find(&categories).Error; err != nil {
		return nil, err
	}
	var cities []models.City
	if err := db.Order("id").Find(&cities).Error; err != nil {
		return nil, err
	}
	if len(sellers) == 0 || len(categories) == 0 || len(cities) == 0 {
		return nil, errors.New("random products need at least one verified seller, category and city")
	}

	for range n {
		seller := sellers[s.faker.Number(0, len(sellers)-1)]
		in := service.ProductInput{
			Name:          s.faker.ProductName(),
			Description:   s.faker.Sentence(12),
			Link:          strings.TrimSuffix(seller.Website, "/") + "/p/" + s.faker.UUID(),
			Price:         decimal.NewFromFloat(s.faker.Price(5, 5000)).Round(2),
			StockQuantity: uint(s.faker.Number(0, 40)),
			IsActive:      s.faker.Number(1, 10) > 1,
			CategoryID:    categories[s.faker.Number(0, len(categories)-1)].ID,
			OriginCityID:  cities[s.faker.Number(0, len(cities)-1)].ID,
		}
		for _, c := range cities {
			if c.ID != in.OriginCityID && s.faker.Bool() {
				in.DeliveryCityIDs = append(in.DeliveryCityIDs, c.ID)
			}
		}

		if _, err := s.products.Create(ctx, seller.UserID, in); err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
				res.Skipped++
				continue
			}
			return nil, err
		}
		res.Products++
	}

	middleware.Logger.InfoContext(ctx, "Random products generated",
		slog.Int("created", res.Products), slog.Int("skipped", res.Skipped))
	return &res, nil
}

// firstOrCreate loads the row matching query into dest, inserting dest when
// none exists. It reports whether a row was inserted.
func firstOrCreate(db *gorm.DB, dest any, query string, args ...any) (bool, error) {
	err := db.Where(query, args...).Take(dest).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return true, db.Create(dest).Error
}
