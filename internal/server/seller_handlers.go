package server

import (
	"strings"

	"shopagg/internal/models"
	"shopagg/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Link            string `json:"link"`
	Price           string `json:"price"`
	StockQuantity   uint   `json:"stock_quantity"`
	IsActive        *bool  `json:"is_active"`
	CategoryID      uint   `json:"category_id"`
	OriginCityID    uint   `json:"origin_city_id"`
	DeliveryCityIDs []uint `json:"delivery_city_ids"`
}

// parseProductRequest reads the body into a ProductInput. Prices are decimal
// strings; is_active defaults to true.
func parseProductRequest(c *fiber.Ctx) (service.ProductInput, error) {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return service.ProductInput{}, models.NewValidationError("Invalid request body")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		return service.ProductInput{}, models.NewValidationError("Price must be a decimal number")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return service.ProductInput{
		Name:            req.Name,
		Description:     req.Description,
		Link:            req.Link,
		Price:           price,
		StockQuantity:   req.StockQuantity,
		IsActive:        active,
		CategoryID:      req.CategoryID,
		OriginCityID:    req.OriginCityID,
		DeliveryCityIDs: req.DeliveryCityIDs,
	}, nil
}

// ListSellerProducts handles GET /api/seller/products
// @Summary Own products
// @Tags seller
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Product
// @Failure 403 {object} models.ErrorResponse
// @Router /seller/products [get]
func (s *Server) ListSellerProducts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	products, err := s.productService.SellerProducts(c.UserContext(), userID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(products)
}

// CreateSellerProduct handles POST /api/seller/products
// @Summary Create a product
// @Tags seller
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body productRequest true "Product"
// @Success 201 {object} models.Product
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /seller/products [post]
func (s *Server) CreateSellerProduct(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	in, err := parseProductRequest(c)
	if err != nil {
		return models.Respond(c, err)
	}
	product, err := s.productService.Create(c.UserContext(), userID, in)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// UpdateSellerProduct handles PUT /api/seller/products/:slug
// @Summary Update a product
// @Tags seller
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param slug path string true "Product slug"
// @Param request body productRequest true "Product"
// @Success 200 {object} models.Product
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /seller/products/{slug} [put]
func (s *Server) UpdateSellerProduct(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	in, err := parseProductRequest(c)
	if err != nil {
		return models.Respond(c, err)
	}
	product, err := s.productService.Update(c.UserContext(), userID, c.Params("slug"), in)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(product)
}

// DeleteSellerProduct handles DELETE /api/seller/products/:slug
// @Summary Delete a product
// @Tags seller
// @Security BearerAuth
// @Param slug path string true "Product slug"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /seller/products/{slug} [delete]
func (s *Server) DeleteSellerProduct(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	if err := s.productService.Delete(c.UserContext(), userID, c.Params("slug")); err != nil {
		return models.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
