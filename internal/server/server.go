// Package server contains the HTTP handlers and wiring for the shop aggregator API.
package server

import (
	"context"
	"log/slog"
	"time"

	_ "shopagg/docs" // swagger docs
	"shopagg/internal/config"
	"shopagg/internal/featureflags"
	"shopagg/internal/middleware"
	"shopagg/internal/models"
	"shopagg/internal/repository"
	"shopagg/internal/service"
	"shopagg/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       session.Store
	featureFlags   *featureflags.Manager

	userRepo    repository.UserRepository
	productRepo repository.ProductRepository

	likeService      *service.LikeService
	cityService      *service.CityService
	catalogService   *service.CatalogService
	productService   *service.ProductService
	discoveryService *service.DiscoveryService
}

// NewServerWithDeps creates a Server on an open database and optional Redis
// client. Without Redis, sessions are kept in process memory.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	cityRepo := repository.NewCityRepository(db)
	sellerRepo := repository.NewSellerRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	ttl := cfg.SessionTTL()
	var store session.Store
	if redisClient != nil {
		store = session.NewRedisStore(redisClient, ttl)
	} else {
		middleware.Logger.Warn("Redis unavailable, sessions are kept in memory")
		store = session.NewMemoryStore(ttl)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("shopagg-api"),
		sessions:       store,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		userRepo:       userRepo,
		productRepo:    productRepo,
	}

	s.likeService = service.NewLikeService(likeRepo, productRepo)
	s.cityService = service.NewCityService(cityRepo, userRepo, cfg.HomeCityID)
	s.catalogService = service.NewCatalogService(categoryRepo, sellerRepo)
	s.productService = service.NewProductService(productRepo, sellerRepo, cityRepo, s.likeService)
	s.discoveryService = service.NewDiscoveryService(productRepo, categoryRepo, s.cityService, s.likeService,
		cfg.PageSize, cfg.CategoryPageSize)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Session and bearer identity must be in locals before the context is built.
	app.Use(session.Middleware(s.sessions, session.Options{
		TTL:    s.config.SessionTTL(),
		Secure: s.config.SessionCookieSecure,
	}))
	app.Use(s.Identify())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Shop Aggregator Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)

	products := api.Group("/products")
	products.Get("/", s.ListProducts)
	products.Post("/:id/like", middleware.RateLimit(s.redis, 60, time.Minute, "like"), s.ToggleLike)
	products.Get("/:slug", s.GetProduct)

	api.Get("/likes", s.GetLikedProducts)

	categories := api.Group("/categories")
	categories.Get("/", s.ListCategories)
	categories.Get("/:slug/products", s.ListCategoryProducts)

	cities := api.Group("/cities")
	cities.Get("/", s.ListCities)
	cities.Post("/:id/select", s.SelectCity)

	api.Get("/sellers", s.ListSellers)

	seller := api.Group("/seller", s.AuthRequired(), s.featureFlags.Require(featureflags.SellerFeatures))
	seller.Get("/products", s.ListSellerProducts)
	seller.Post("/products", s.CreateSellerProduct)
	seller.Put("/products/:slug", s.UpdateSellerProduct)
	seller.Delete("/products/:slug", s.DeleteSellerProduct)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: without
// it sessions fall back to memory, so it only degrades the report.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus != "healthy":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Shop Aggregator API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "Unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("Error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("Error closing database", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("Error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
