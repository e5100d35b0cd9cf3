package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/OrgPilot/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// upstream deliveries arrive in bursts and are authenticated by signature
	api.Post("/webhooks", h.deps.Webhooks.HandleIngest)

	rateLimit := limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Storage:    h.deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "Too many requests"})
		},
	})
	requireAdmin := middleware.RequireAdminToken(h.deps.AdminTokenHash)

	// authentication runs first so rejected callers never spend the admin quota

	api.Get("/webhooks", requireAdmin, rateLimit, h.deps.Webhooks.HandleList)
	api.Post("/webhooks/process", requireAdmin, rateLimit, h.deps.Webhooks.HandleProcess)

	api.Get("/invitations", requireAdmin, rateLimit, h.deps.Invitations.HandleList)
	api.Post("/invitations", requireAdmin, rateLimit, h.deps.Invitations.HandleInvite)
	api.Post("/invitations/sync", requireAdmin, rateLimit, h.deps.Invitations.HandleSync)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
