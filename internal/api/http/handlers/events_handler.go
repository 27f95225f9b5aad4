package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-portal/internal/api/dto"
	"github.com/spec-kit/ops-portal/internal/auth"
	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/service"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// EventsHandler manages event and staffing roster endpoints.
type EventsHandler struct {
	service *service.AssignmentService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(assignmentService *service.AssignmentService) *EventsHandler {
	return &EventsHandler{service: assignmentService}
}

// CreateEvent POST /events.
func (h *EventsHandler) CreateEvent(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	var req dto.CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	event, err := h.service.CreateEvent(c.UserContext(), actor, service.EventCreateInput{
		Title:     req.Title,
		EventDate: req.EventDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		City:      req.City,
		State:     req.State,
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": eventResponse(event, nil)})
}

// ListEvents GET /events.
func (h *EventsHandler) ListEvents(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	list, err := h.service.ListEvents(c.UserContext(), actor, service.EventListInput{
		Status:       domain.EventStatus(c.Query("status")),
		AssignedRole: domain.Role(c.Query("role")),
		Scope:        c.Query("scope"),
		Limit:        c.QueryInt("limit"),
	})
	if err != nil {
		return err
	}
	items := make([]dto.EventResponse, 0, len(list))
	for i := range list {
		items = append(items, eventResponse(&list[i], nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetEvent GET /events/:id. Includes the roster with display names.
func (h *EventsHandler) GetEvent(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	event, err := h.service.GetEvent(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	roster, err := h.service.Roster(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponse(event, roster)})
}

// AddAssignment POST /events/:id/assignments.
func (h *EventsHandler) AddAssignment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AddAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	event, err := h.service.AddAssignment(c.UserContext(), actor, id, req.Role, req.UserID, req.Note)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": eventResponse(event, nil)})
}

// RespondAssignment POST /events/:id/assignments/respond.
func (h *EventsHandler) RespondAssignment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.RespondAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	event, err := h.service.RespondAssignment(c.UserContext(), actor, id, req.Decision, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponse(event, nil)})
}

// RemoveAssignment DELETE /events/:id/assignments/:userId.
func (h *EventsHandler) RemoveAssignment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	event, err := h.service.RemoveAssignment(c.UserContext(), actor, id, c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponse(event, nil)})
}

func eventResponse(event *domain.Event, roster []service.RosterEntry) dto.EventResponse {
	resp := dto.EventResponse{
		ID:             event.ID,
		CreatedBy:      event.CreatedBy,
		AssignedRole:   event.AssignedRole,
		AssignedUserID: event.AssignedUserID,
		Status:         event.Status,
		Title:          event.Title,
		EventDate:      event.EventDate,
		StartTime:      event.StartTime,
		EndTime:        event.EndTime,
		City:           event.City,
		State:          event.State,
		Notes:          event.Notes,
		Assignments:    make([]dto.AssignmentResponse, 0, len(event.Meta.Assignments)),
		CreatedAt:      event.CreatedAt,
		UpdatedAt:      event.UpdatedAt,
	}
	if roster != nil {
		for _, entry := range roster {
			resp.Assignments = append(resp.Assignments, assignmentResponse(entry.Assignment, entry.FullName))
		}
		return resp
	}
	for _, assignment := range event.Meta.Assignments {
		resp.Assignments = append(resp.Assignments, assignmentResponse(assignment, ""))
	}
	return resp
}

func assignmentResponse(assignment domain.Assignment, fullName string) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		Role:      assignment.Role,
		UserID:    assignment.UserID,
		FullName:  fullName,
		Status:    assignment.Status,
		Note:      assignment.Note,
		UpdatedAt: assignment.UpdatedAt,
		DecidedAt: assignment.DecidedAt,
	}
}
