package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-portal/internal/api/dto"
	"github.com/spec-kit/ops-portal/internal/auth"
	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/service"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// LeadsHandler manages lead pipeline endpoints.
type LeadsHandler struct {
	service *service.LeadService
}

// NewLeadsHandler constructs handler.
func NewLeadsHandler(leadService *service.LeadService) *LeadsHandler {
	return &LeadsHandler{service: leadService}
}

// CreateLead POST /leads.
func (h *LeadsHandler) CreateLead(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	var req dto.CreateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	lead, err := h.service.CreateLead(c.UserContext(), actor, service.LeadCreateInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Company:      req.Company,
		PropertyName: req.PropertyName,
		Phone:        req.Phone,
		Email:        req.Email,
		City:         req.City,
		State:        req.State,
		Source:       req.Source,
		Notes:        req.Notes,
		AssignedRole: req.AssignedRole,
		Priority:     req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": leadResponse(lead)})
}

// ListLeads GET /leads.
func (h *LeadsHandler) ListLeads(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	leads, err := h.service.ListLeads(c.UserContext(), actor, service.LeadListInput{
		Status:       domain.LeadStatus(c.Query("status")),
		AssignedRole: domain.Role(c.Query("role")),
		State:        c.Query("state"),
		Search:       c.Query("q"),
		Scope:        c.Query("scope"),
		Limit:        c.QueryInt("limit"),
	})
	if err != nil {
		return err
	}
	items := make([]dto.LeadResponse, 0, len(leads))
	for i := range leads {
		items = append(items, leadResponse(&leads[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetLead GET /leads/:id.
func (h *LeadsHandler) GetLead(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	lead, err := h.service.GetLead(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": leadResponse(lead)})
}

// PatchLead PATCH /leads/:id.
func (h *LeadsHandler) PatchLead(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.PatchLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	lead, err := h.service.PatchLead(c.UserContext(), actor, id, service.LeadPatch{
		Status:         req.Status,
		Priority:       req.Priority,
		AssignedRole:   req.AssignedRole,
		AssignedUserID: req.AssignedUserID,
		Notes:          req.Notes,
		Phone:          req.Phone,
		Email:          req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": leadResponse(lead)})
}

// LogActivity POST /leads/:id/activities.
func (h *LeadsHandler) LogActivity(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	activity, err := h.service.LogActivity(c.UserContext(), actor, id, service.ActivityInput{
		ActivityType: req.ActivityType,
		Outcome:      req.Outcome,
		Notes:        req.Notes,
		Payload:      req.Payload,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": activityResponse(activity)})
}

// ListActivities GET /leads/:id/activities.
func (h *LeadsHandler) ListActivities(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	activities, err := h.service.ListActivities(c.UserContext(), actor, id, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	items := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		items = append(items, activityResponse(&activities[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func leadResponse(lead *domain.Lead) dto.LeadResponse {
	return dto.LeadResponse{
		ID:             lead.ID,
		CreatedBy:      lead.CreatedBy,
		AssignedRole:   lead.AssignedRole,
		AssignedUserID: lead.AssignedUserID,
		Status:         lead.Status,
		Priority:       lead.Priority,
		Source:         lead.Source,
		FirstName:      lead.FirstName,
		LastName:       lead.LastName,
		Company:        lead.Company,
		PropertyName:   lead.PropertyName,
		Phone:          lead.Phone,
		Email:          lead.Email,
		City:           lead.City,
		State:          lead.State,
		Notes:          lead.Notes,
		CreatedAt:      lead.CreatedAt,
		UpdatedAt:      lead.UpdatedAt,
	}
}

func activityResponse(activity *domain.LeadActivity) dto.ActivityResponse {
	return dto.ActivityResponse{
		ID:           activity.ID,
		LeadID:       activity.LeadID,
		CreatedBy:    activity.CreatedBy,
		ActivityType: activity.ActivityType,
		Outcome:      activity.Outcome,
		Notes:        activity.Notes,
		Payload:      activity.Payload,
		CreatedAt:    activity.CreatedAt,
	}
}
