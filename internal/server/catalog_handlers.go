package server

import (
	"shopagg/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListCategories handles GET /api/categories
// @Summary Categories with product counts
// @Description Counts only products available in the caller's city.
// @Tags categories
// @Produce json
// @Success 200 {array} models.CategoryWithCount
// @Router /categories [get]
func (s *Server) ListCategories(c *fiber.Ctx) error {
	ctx := c.UserContext()
	city, err := s.cityService.Resolve(ctx, identity(c))
	if err != nil {
		return models.Respond(c, err)
	}
	categories, err := s.catalogService.CategoriesWithCounts(ctx, city)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(categories)
}

// ListCities handles GET /api/cities
// @Summary Cities
// @Tags cities
// @Produce json
// @Success 200 {object} object{cities=[]models.CityOption,current=models.City}
// @Router /cities [get]
func (s *Server) ListCities(c *fiber.Ctx) error {
	ctx := c.UserContext()
	current, err := s.cityService.Resolve(ctx, identity(c))
	if err != nil {
		return models.Respond(c, err)
	}
	options, err := s.cityService.Options(ctx, current)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"cities":  options,
		"current": current,
	})
}

// SelectCity handles POST /api/cities/:id/select
// @Summary Select the browsing city
// @Tags cities
// @Produce json
// @Param id path int true "City ID"
// @Success 200 {object} models.City
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /cities/{id}/select [post]
func (s *Server) SelectCity(c *fiber.Ctx) error {
	cityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	city, err := s.cityService.Select(c.UserContext(), identity(c), cityID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(city)
}

// ListSellers handles GET /api/sellers
// @Summary Verified sellers
// @Tags sellers
// @Produce json
// @Success 200 {array} models.Seller
// @Router /sellers [get]
func (s *Server) ListSellers(c *fiber.Ctx) error {
	sellers, err := s.catalogService.VerifiedSellers(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(sellers)
}
