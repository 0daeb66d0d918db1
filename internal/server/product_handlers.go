package server

import (
	"shopagg/internal/discovery"
	"shopagg/internal/models"
	"shopagg/internal/service"

	"github.com/gofiber/fiber/v2"
)

// partialPage is the "load more" fragment: only the next items and the cursor.
type partialPage struct {
	Items    []models.ProductCard `json:"items"`
	HasNext  bool                 `json:"has_next"`
	NextPage *int                 `json:"next_page"`
}

func (s *Server) respondPage(c *fiber.Ctx, req service.ListRequest) error {
	page, err := s.discoveryService.List(c.UserContext(), req)
	if err != nil {
		return models.Respond(c, err)
	}
	if wantsPartial(c) {
		return c.JSON(partialPage{Items: page.Items, HasNext: page.HasNext, NextPage: page.NextPage})
	}
	return c.JSON(page)
}

// ListProducts handles GET /api/products
// @Summary Browse products
// @Description Products available in the caller's city, filtered, searched and shuffled per session.
// @Description Send X-Requested-With: XMLHttpRequest to receive only the next items.
// @Tags products
// @Produce json
// @Param category query string false "Category ID"
// @Param seller query string false "Seller ID"
// @Param price_min query string false "Minimum price"
// @Param price_max query string false "Maximum price"
// @Param search query string false "Search text"
// @Param page query string false "Page number"
// @Success 200 {object} service.ProductPage
// @Router /products [get]
func (s *Server) ListProducts(c *fiber.Ctx) error {
	return s.respondPage(c, service.ListRequest{
		Params:   func(k string) string { return c.Query(k) },
		Page:     c.Query(discovery.ParamPage),
		Identity: identity(c),
	})
}

// ListCategoryProducts handles GET /api/categories/:slug/products
// @Summary Browse a category
// @Tags categories
// @Produce json
// @Param slug path string true "Category slug"
// @Param page query string false "Page number"
// @Success 200 {object} service.ProductPage
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{slug}/products [get]
func (s *Server) ListCategoryProducts(c *fiber.Ctx) error {
	return s.respondPage(c, service.ListRequest{
		CategorySlug: c.Params("slug"),
		Params:       func(k string) string { return c.Query(k) },
		Page:         c.Query(discovery.ParamPage),
		Identity:     identity(c),
	})
}

// GetProduct handles GET /api/products/:slug
// @Summary Product detail
// @Tags products
// @Produce json
// @Param slug path string true "Product slug"
// @Success 200 {object} models.ProductCard
// @Failure 404 {object} models.ErrorResponse
// @Router /products/{slug} [get]
func (s *Server) GetProduct(c *fiber.Ctx) error {
	card, err := s.productService.Card(c.UserContext(), identity(c), c.Params("slug"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(card)
}

// ToggleLike handles POST /api/products/:id/like
// @Summary Like or unlike a product
// @Description Anonymous callers keep likes in their session until they log in.
// @Tags likes
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} object{status=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /products/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("id")
	if err != nil || productID <= 0 {
		return models.Respond(c, models.NewNotFoundError("Product", c.Params("id")))
	}

	state, err := s.likeService.Toggle(c.UserContext(), identity(c), uint(productID))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"status": state})
}

// GetLikedProducts handles GET /api/likes
// @Summary Liked products
// @Tags likes
// @Produce json
// @Success 200 {array} models.ProductCard
// @Router /likes [get]
func (s *Server) GetLikedProducts(c *fiber.Ctx) error {
	cards, err := s.likeService.LikedProducts(c.UserContext(), identity(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(cards)
}
