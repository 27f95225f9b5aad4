package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-portal/internal/domain"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

const actorKey = "portal_actor"

// View-as directives travel out-of-band next to the credential.
const (
	ViewAsRoleHeader = "X-Portal-View-As"
	ViewAsUserHeader = "X-Portal-View-As-User"
)

// Middleware validates bearer tokens and resolves the acting identity.
type Middleware struct {
	resolver *SessionResolver
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(resolver *SessionResolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// Handle enforces authentication for protected routes and stores the
// resolved ActorContext on the request.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	directive := ViewAsDirective{
		Role:   domain.Role(strings.TrimSpace(c.Get(ViewAsRoleHeader))),
		UserID: strings.TrimSpace(c.Get(ViewAsUserHeader)),
	}

	actor, err := m.resolver.Resolve(c.UserContext(), parts[1], directive)
	if err != nil {
		return err
	}

	// View-as is a preview mode: managers browsing another workspace must
	// not take actions in it.
	if actor.Impersonating && !isReadMethod(c.Method()) {
		return apperrors.NewForbidden("view-as sessions are read-only")
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

// ActorFromContext retrieves the resolved acting identity.
func ActorFromContext(c *fiber.Ctx) (domain.ActorContext, bool) {
	actor, ok := c.Locals(actorKey).(domain.ActorContext)
	return actor, ok
}

func isReadMethod(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return true
	default:
		return false
	}
}
