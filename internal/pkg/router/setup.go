package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/OrgPilot/app/controllers"
)

// Router registers a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies carries everything the routes need.
type Dependencies struct {
	Webhooks    *controllers.WebhookController
	Invitations *controllers.InvitationController

	DB    *gorm.DB
	Cache *redis.Client

	AdminTokenHash string
	// LimiterStorage backs the admin rate limiter; nil keeps counters in memory.
	LimiterStorage fiber.Storage

	MetricsUser     string
	MetricsPassword string
	Gatherer        prometheus.Gatherer
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewSystemRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
