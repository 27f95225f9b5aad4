package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-portal/internal/api/dto"
	"github.com/spec-kit/ops-portal/internal/auth"
	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/service"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// SessionHandler manages signup, login, and the session introspection
// endpoint the portal shell polls.
type SessionHandler struct {
	service *service.AuthService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(authService *service.AuthService) *SessionHandler {
	return &SessionHandler{service: authService}
}

// Register POST /auth/register.
func (h *SessionHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.service.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": sessionResponse(session)})
}

// Login POST /auth/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// Me GET /me. Reports the real identity plus any active view-as state, so
// the shell can render the impersonation banner.
func (h *SessionHandler) Me(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	resp := dto.MeResponse{
		UserID:        actor.RealUserID,
		Role:          actor.RealRole,
		Impersonating: actor.Impersonating,
	}
	if actor.Impersonating {
		resp.ViewAs = &dto.ViewAsResponse{
			Role:   actor.ActingRole,
			UserID: actor.ActingUserID,
		}
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Users GET /users. Manager-only directory, for view-as pickers and role
// grants.
func (h *SessionHandler) Users(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	list, err := h.service.ListUsers(c.UserContext(), actor, domain.Role(c.Query("role")), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.UserResponse{
			UserID:    list[i].UserID,
			FullName:  list[i].FullName,
			Role:      list[i].Role,
			CreatedAt: list[i].CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// SetUserRole PATCH /users/:userId/role.
func (h *SessionHandler) SetUserRole(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	var req dto.SetUserRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, err := h.service.SetUserRole(c.UserContext(), actor, c.Params("userId"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ProfileResponse{
		UserID:   profile.UserID,
		FullName: profile.FullName,
		Role:     profile.Role,
	}})
}

// ChangePassword POST /auth/password/change.
func (h *SessionHandler) ChangePassword(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	// Credential changes always act on the real identity.
	if err := h.service.ChangePassword(c.UserContext(), actor.RealUserID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}

func sessionResponse(session *service.Session) dto.SessionResponse {
	return dto.SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Profile: dto.ProfileResponse{
			UserID:   session.Profile.UserID,
			FullName: session.Profile.FullName,
			Role:     session.Profile.Role,
		},
	}
}
