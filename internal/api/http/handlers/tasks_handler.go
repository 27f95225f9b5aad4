package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ops-portal/internal/api/dto"
	"github.com/spec-kit/ops-portal/internal/auth"
	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/observability"
	"github.com/spec-kit/ops-portal/internal/service"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// TasksHandler manages dispatch task endpoints.
type TasksHandler struct {
	service *service.TaskService
	metrics *observability.Metrics
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService, metrics *observability.Metrics) *TasksHandler {
	return &TasksHandler{service: taskService, metrics: metrics}
}

// CreateTask POST /dispatch/tasks.
func (h *TasksHandler) CreateTask(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.CreateTask(c.UserContext(), actor, service.TaskCreateInput{
		Title:          req.Title,
		Notes:          req.Notes,
		AssignedRole:   req.AssignedRole,
		AssignedUserID: req.AssignedUserID,
		DueDate:        req.DueDate,
		DueTime:        req.DueTime,
		Priority:       req.Priority,
		Reason:         req.Reason,
		LeadID:         req.LeadID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": taskResponse(task)})
}

// ListTasks GET /dispatch/tasks.
func (h *TasksHandler) ListTasks(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	input := service.TaskListInput{
		AssignedRole: domain.Role(c.Query("role")),
		OverdueOnly:  c.QueryBool("overdue"),
		Scope:        c.Query("scope"),
		Limit:        c.QueryInt("limit"),
	}
	// status accepts a comma-separated list, e.g. status=open,assigned.
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		statuses := make([]domain.TaskStatus, 0, 2)
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				statuses = append(statuses, domain.TaskStatus(part))
			}
		}
		if len(statuses) == 1 {
			input.Status = statuses[0]
		} else {
			input.Statuses = statuses
		}
	}
	if raw := strings.TrimSpace(c.Query("lead_id")); raw != "" {
		leadID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apperrors.NewValidationError("invalid lead_id", nil)
		}
		input.LeadID = &leadID
	}

	tasks, err := h.service.ListTasks(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskResponse(&tasks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTask GET /dispatch/tasks/:id.
func (h *TasksHandler) GetTask(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	task, err := h.service.GetTask(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

// PatchTask PATCH /dispatch/tasks/:id.
func (h *TasksHandler) PatchTask(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.PatchTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.PatchTask(c.UserContext(), actor, id, service.TaskPatch{
		Status:         req.Status,
		Title:          req.Title,
		Notes:          req.Notes,
		DueDate:        req.DueDate,
		DueTime:        req.DueTime,
		AssignedRole:   req.AssignedRole,
		AssignedUserID: req.AssignedUserID,
		Priority:       req.Priority,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

// EscalateTask POST /dispatch/tasks/:id/escalate.
func (h *TasksHandler) EscalateTask(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("session required")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	task, err := h.service.EscalateTask(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

// Sweep POST /dispatch/sweep. Reached either by a manager session or by the
// scheduler carrying the admin token; the router wires both paths.
func (h *TasksHandler) Sweep(c *fiber.Ctx) error {
	actorUserID := ""
	if actor, ok := auth.ActorFromContext(c); ok {
		actorUserID = actor.ActingUserID
	}
	result, err := h.service.SweepEscalations(c.UserContext(), actorUserID)
	if err != nil {
		return err
	}
	h.metrics.RecordSweep(result.Escalated)
	return c.JSON(fiber.Map{"data": dto.SweepResponse{
		Scanned:   result.Scanned,
		Escalated: result.Escalated,
	}})
}

func taskResponse(task *domain.DispatchTask) dto.TaskResponse {
	return dto.TaskResponse{
		ID:             task.ID,
		CreatedBy:      task.CreatedBy,
		AssignedRole:   task.AssignedRole,
		AssignedUserID: task.AssignedUserID,
		Status:         task.Status,
		Title:          task.Title,
		Notes:          task.Notes,
		DueDate:        task.DueDate,
		DueTime:        task.DueTime,
		LeadID:         task.Meta.LeadID,
		LeadLabel:      task.Meta.LeadLabel,
		Priority:       task.Meta.Priority,
		Reason:         task.Meta.Reason,
		EscalatedAt:    task.Meta.EscalatedAt,
		EscalatedBy:    task.Meta.EscalatedBy,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
}

func parseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", nil)
	}
	return id, nil
}
