package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"
)

// LocalAdminAuthenticated marks a request that passed RequireAdminToken.
const LocalAdminAuthenticated = "ADMIN_AUTHENTICATED"

// RequireAdminToken authenticates operator requests against a bcrypt hash of
// the admin token. With no hash configured every request is refused.
func RequireAdminToken(tokenHash string) fiber.Handler {
	hash := []byte(strings.TrimSpace(tokenHash))
	return func(c *fiber.Ctx) error {
		if len(hash) == 0 {
			log.Error("[Auth] ADMIN_TOKEN_HASH is not configured")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Admin authentication not configured"})
		}

		token := extractAdminToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing admin token"})
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid admin token"})
		}

		c.Locals(LocalAdminAuthenticated, true)
		return c.Next()
	}
}

func extractAdminToken(c *fiber.Ctx) string {
	token := strings.TrimSpace(c.Get("X-Admin-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
