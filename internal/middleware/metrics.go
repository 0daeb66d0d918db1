package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts failed Redis commands by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shopagg_redis_errors_total",
	Help: "Total number of failed Redis commands",
}, []string{"operation"})

var promInstance *fiberprometheus.FiberPrometheus

// InitMetrics builds the Fiber Prometheus middleware once per process.
// fiberprometheus registers its collectors on the default registry, so a second
// construction would panic with a duplicate registration.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	if promInstance == nil {
		promInstance = fiberprometheus.New(serviceName)
	}
	return promInstance
}

// MetricsMiddleware records request metrics, skipping the scrape endpoint itself.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	handler := prom.Middleware
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return handler(c)
	}
}
