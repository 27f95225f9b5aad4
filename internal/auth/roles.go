package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-portal/internal/domain"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// RequireRoles ensures the acting role alias-matches one of the allowed
// roles. Managers always pass.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("session required")
		}
		if !actor.HasRole(allowed...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireRealManager gates privilege-sensitive operations on the real
// identity, so view-as state can never unlock them for the impersonated role
// nor hide them from the manager.
func RequireRealManager() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("session required")
		}
		if !actor.IsManager() {
			return apperrors.NewForbidden("manager required")
		}
		return c.Next()
	}
}
