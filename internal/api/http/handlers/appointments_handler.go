package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-portal/internal/api/dto"
	"github.com/spec-kit/ops-portal/internal/auth"
	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/service"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// AppointmentsHandler manages appointment endpoints.
type AppointmentsHandler struct {
	service *service.AppointmentService
}

// NewAppointmentsHandler constructs handler.
func NewAppointmentsHandler(appointmentService *service.AppointmentService) *AppointmentsHandler {
	return &AppointmentsHandler{service: appointmentService}
}

// CreateAppointment POST /appointments.
func (h *AppointmentsHandler) CreateAppointment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	var req dto.CreateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appointment, err := h.service.CreateAppointment(c.UserContext(), actor, service.AppointmentCreateInput{
		LeadID:         req.LeadID,
		Title:          req.Title,
		EventDate:      req.EventDate,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		City:           req.City,
		State:          req.State,
		Notes:          req.Notes,
		AssignedUserID: req.AssignedUserID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": appointmentResponse(appointment)})
}

// ListAppointments GET /appointments.
func (h *AppointmentsHandler) ListAppointments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	input := service.AppointmentListInput{
		Status: domain.AppointmentStatus(c.Query("status")),
		Scope:  c.Query("scope"),
		Limit:  c.QueryInt("limit"),
	}
	if raw := strings.TrimSpace(c.Query("lead_id")); raw != "" {
		leadID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apperrors.NewValidationError("invalid lead_id", nil)
		}
		input.LeadID = &leadID
	}

	list, err := h.service.ListAppointments(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	items := make([]dto.AppointmentResponse, 0, len(list))
	for i := range list {
		items = append(items, appointmentResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAppointment GET /appointments/:id.
func (h *AppointmentsHandler) GetAppointment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	appointment, err := h.service.GetAppointment(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appointmentResponse(appointment)})
}

// PatchAppointment PATCH /appointments/:id.
func (h *AppointmentsHandler) PatchAppointment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.PatchAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appointment, err := h.service.PatchAppointment(c.UserContext(), actor, id, service.AppointmentPatch{
		Status:    req.Status,
		EventDate: req.EventDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appointmentResponse(appointment)})
}

func appointmentResponse(appointment *domain.Appointment) dto.AppointmentResponse {
	return dto.AppointmentResponse{
		ID:             appointment.ID,
		CreatedBy:      appointment.CreatedBy,
		AssignedRole:   appointment.AssignedRole,
		AssignedUserID: appointment.AssignedUserID,
		Status:         appointment.Status,
		Title:          appointment.Title,
		EventDate:      appointment.EventDate,
		StartTime:      appointment.StartTime,
		EndTime:        appointment.EndTime,
		City:           appointment.City,
		State:          appointment.State,
		Notes:          appointment.Notes,
		LeadID:         appointment.LeadID,
		LeadLabel:      appointment.LeadLabel,
		CreatedAt:      appointment.CreatedAt,
		UpdatedAt:      appointment.UpdatedAt,
	}
}
