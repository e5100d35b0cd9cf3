package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/OrgPilot/internal/pkg/cache"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/database"
)

type HealthController struct {
	db    *gorm.DB
	cache *redis.Client
}

func NewHealthController(db *gorm.DB, cacheClient *redis.Client) *HealthController {
	return &HealthController{db: db, cache: cacheClient}
}

// HandleHealth reports database and cache reachability.
func (hc *HealthController) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{"database": "ok", "cache": "ok"}
	healthy := true
	if err := database.Ping(hc.db); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}
	if err := cache.Healthy(ctx, hc.cache); err != nil {
		checks["cache"] = err.Error()
		healthy = false
	}

	status := fiber.StatusOK
	state := "ok"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{"status": state, "checks": checks})
}
