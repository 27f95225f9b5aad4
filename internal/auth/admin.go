package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// AdminTokenHeader carries the shared secret used by schedulers that call
// maintenance endpoints without a portal session.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken gates a route on the configured admin token. An empty
// configured token disables the route entirely.
func RequireAdminToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return apperrors.NewForbidden("admin endpoint disabled")
		}
		presented := c.Get(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return apperrors.NewUnauthenticated("invalid admin token")
		}
		return c.Next()
	}
}
