package service

import (
	"context"
	"strconv"

	"shopagg/internal/discovery"
	"shopagg/internal/models"
	"shopagg/internal/observability"
	"shopagg/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ScopeProducts is the seed scope of the main product listing. Category
// listings use "category:<slug>".
const ScopeProducts = "products"

// CategoryScope returns the seed scope of a category listing.
func CategoryScope(slug string) string {
	return "category:" + slug
}

type DiscoveryService struct {
	productRepo      repository.ProductRepository
	categoryRepo     repository.CategoryRepository
	cities           *CityService
	likes            *LikeService
	pageSize         int
	categoryPageSize int
	newSeed          func() int64
}

// ListRequest describes one listing request. Params looks up raw query values;
// CategorySlug is set on category pages and locks the category filter.
type ListRequest struct {
	CategorySlug string
	Params       func(string) string
	Page         string
	Identity     Identity
}

// ProductPage is one page of a listing with the context needed to render it.
type ProductPage struct {
	Items    []models.ProductCard   `json:"items"`
	Number   int                    `json:"page"`
	Size     int                    `json:"page_size"`
	Total    int                    `json:"total"`
	HasNext  bool                   `json:"has_next"`
	NextPage *int                   `json:"next_page"`
	Filters  discovery.FilterValues `json:"filters"`
	City     *models.City           `json:"city"`
	Category *models.Category       `json:"category,omitempty"`
}

func NewDiscoveryService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	cities *CityService,
	likes *LikeService,
	pageSize, categoryPageSize int,
) *DiscoveryService {
	if pageSize <= 0 {
		pageSize = 24
	}
	if categoryPageSize <= 0 {
		categoryPageSize = 20
	}
	return &DiscoveryService{
		productRepo:      productRepo,
		categoryRepo:     categoryRepo,
		cities:           cities,
		likes:            likes,
		pageSize:         pageSize,
		categoryPageSize: categoryPageSize,
		newSeed:          discovery.NewSeed,
	}
}

// List runs the discovery pipeline: city resolution, store pushdown,
// availability, filters, search ranking, seeded paging and like annotation.
// Bad filter or page input yields an empty page; only an unknown category
// slug is an error.
func (s *DiscoveryService) List(ctx context.Context, req ListRequest) (*ProductPage, error) {
	ctx, span := observability.StartSpan(ctx, "discovery.List",
		attribute.String("discovery.category", req.CategorySlug))

	page, err := s.list(ctx, req)
	if err == nil {
		span.SetAttributes(
			attribute.Int("discovery.total", page.Total),
			attribute.Int("discovery.page", page.Number),
		)
	}
	observability.EndSpan(span, err)
	return page, err
}

func (s *DiscoveryService) list(ctx context.Context, req ListRequest) (*ProductPage, error) {
	scope, size, metricScope := ScopeProducts, s.pageSize, "products"
	var category *models.Category
	if req.CategorySlug != "" {
		var err error
		if category, err = s.categoryRepo.GetBySlug(ctx, req.CategorySlug); err != nil {
			return nil, err
		}
		scope, size, metricScope = CategoryScope(category.Slug), s.categoryPageSize, "category"
	}

	city, err := s.cities.Resolve(ctx, req.Identity)
	if err != nil {
		return nil, err
	}
	var cityID *uint
	if city != nil {
		cityID = &city.ID
	}

	get := req.Params
	if get == nil {
		get = func(string) string { return "" }
	}
	criteria := discovery.ParseCriteria(get, category != nil)
	searching := criteria.Query.Active()

	out := &ProductPage{
		Items:    []models.ProductCard{},
		Size:     size,
		Filters:  criteria.Values,
		City:     city,
		Category: category,
	}

	number, ok := discovery.ParsePageNumber(req.Page)
	out.Number = number
	if !ok || criteria.Unsatisfiable {
		observability.DiscoveryResults.WithLabelValues(metricScope, strconv.FormatBool(searching)).Observe(0)
		return out, nil
	}

	filter := repository.ProductFilter{CityID: cityID, CategoryID: criteria.CategoryID, SellerID: criteria.SellerID}
	if category != nil {
		filter.CategoryID = &category.ID
	}
	candidates, err := s.productRepo.ListAvailable(ctx, filter)
	if err != nil {
		return nil, err
	}

	ranked := discovery.Match(discovery.Compose(discovery.Visible(candidates, cityID), criteria), criteria.Query)
	observability.DiscoveryResults.WithLabelValues(metricScope, strconv.FormatBool(searching)).Observe(float64(len(ranked)))

	var seed *int64
	if !searching {
		seed = s.seed(req.Identity, scope, number)
	}
	p := discovery.Paginate(ranked, number, size, seed)

	cards, err := s.likes.Annotate(ctx, req.Identity, p.Items)
	if err != nil {
		return nil, err
	}
	out.Items = cards
	out.Total = p.Total
	out.HasNext = p.HasNext
	out.NextPage = p.NextPage
	return out, nil
}

// seed returns the shuffle seed for scope. The first page always starts a new
// ordering; later pages reuse it so paging never repeats or skips items.
func (s *DiscoveryService) seed(id Identity, scope string, number int) *int64 {
	sess := id.Session
	if sess == nil {
		v := s.newSeed()
		return &v
	}
	if number > 1 {
		if v, ok := sess.Seed(scope); ok {
			return &v
		}
	}
	v := s.newSeed()
	sess.SetSeed(scope, v)
	return &v
}
