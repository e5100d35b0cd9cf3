package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/OrgPilot/app/controllers"
)

// SystemRouter serves health and metrics endpoints outside /api.
type SystemRouter struct {
	deps Dependencies
}

func (h SystemRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", controllers.NewHealthController(h.deps.DB, h.deps.Cache).HandleHealth)

	if h.deps.MetricsPassword == "" {
		return
	}
	auth := basicauth.New(basicauth.Config{
		Users: map[string]string{h.deps.MetricsUser: h.deps.MetricsPassword},
	})

	gatherer := h.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics/prometheus", auth, adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	app.Get("/metrics", auth, monitor.New())
}

func NewSystemRouter(deps Dependencies) *SystemRouter {
	return &SystemRouter{deps: deps}
}
