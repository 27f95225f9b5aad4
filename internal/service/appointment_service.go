package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/events"
	"github.com/spec-kit/ops-portal/internal/repository"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// AppointmentService books closers against leads. Setters schedule on
// behalf of the closer group; closers always schedule for themselves.
type AppointmentService struct {
	appointments repository.AppointmentRepository
	leads        repository.LeadRepository
	dispatcher   events.Dispatcher
}

// AppointmentDependencies bundles collaborators for the appointment service.
type AppointmentDependencies struct {
	AppointmentRepo repository.AppointmentRepository
	LeadRepo        repository.LeadRepository
	Dispatcher      events.Dispatcher
}

// NewAppointmentService constructs the service.
func NewAppointmentService(deps AppointmentDependencies) *AppointmentService {
	return &AppointmentService{
		appointments: deps.AppointmentRepo,
		leads:        deps.LeadRepo,
		dispatcher:   deps.Dispatcher,
	}
}

// AppointmentCreateInput describes scheduling payload.
type AppointmentCreateInput struct {
	LeadID         int64
	Title          string
	EventDate      string
	StartTime      string
	EndTime        string
	City           string
	State          string
	Notes          string
	AssignedUserID string
}

// AppointmentListInput describes listing filters.
type AppointmentListInput struct {
	Status domain.AppointmentStatus
	LeadID *int64
	Scope  string
	Limit  int
}

// AppointmentPatch is a partial update. Nil fields are untouched.
type AppointmentPatch struct {
	Status    *domain.AppointmentStatus
	EventDate *string
	StartTime *string
	EndTime   *string
	Notes     *string
}

// CreateAppointment schedules an appointment on a lead the actor works.
func (s *AppointmentService) CreateAppointment(ctx context.Context, actor domain.ActorContext, input AppointmentCreateInput) (*domain.Appointment, error) {
	if input.LeadID <= 0 {
		return nil, apperrors.NewValidationError("lead id required", nil)
	}
	eventDate := strings.TrimSpace(input.EventDate)
	if eventDate == "" {
		return nil, apperrors.NewValidationError("event date required", nil)
	}
	startTime := strings.TrimSpace(input.StartTime)
	if startTime == "" {
		return nil, apperrors.NewValidationError("start time required", nil)
	}

	lead, err := s.leads.GetByID(ctx, input.LeadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": input.LeadID})
		}
		return nil, apperrors.MapError(err)
	}
	if !CanSee(actor, lead.Access()) {
		return nil, apperrors.NewForbidden("no access to the lead")
	}

	// Closers book themselves; setters may name a closer or leave the slot
	// open for the closer inbox.
	assigned := strings.TrimSpace(input.AssignedUserID)
	if !actor.IsManager() && domain.RoleMatchesAny(actor.ActingRole, domain.RoleCloser) {
		assigned = actor.ActingUserID
	}

	label := lead.Label()
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "Appointment"
		if label != "" {
			title = "Appointment • " + label
		}
	}
	city := strings.TrimSpace(input.City)
	if city == "" {
		city = lead.City
	}
	state := strings.ToUpper(strings.TrimSpace(input.State))
	if state == "" {
		state = lead.State
	}

	appointment := &domain.Appointment{
		CreatedBy:    actor.ActingUserID,
		AssignedRole: domain.RoleCloser,
		Status:       domain.AppointmentScheduled,
		Title:        title,
		EventDate:    eventDate,
		StartTime:    startTime,
		EndTime:      strings.TrimSpace(input.EndTime),
		City:         city,
		State:        state,
		Notes:        strings.TrimSpace(input.Notes),
		LeadID:       lead.ID,
		LeadLabel:    label,
	}
	if assigned != "" {
		appointment.AssignedUserID = &assigned
	}
	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, actor, events.Event{
		Type:     events.EventAppointmentScheduled,
		RecordID: appointment.ID,
		Payload: events.AppointmentScheduledPayload{
			LeadID:    lead.ID,
			EventDate: eventDate,
			StartTime: startTime,
		},
	})

	// Best-effort: scheduling never fails on the lead status bump.
	if lead.Status != domain.LeadStatusClosed && lead.Status != domain.LeadStatusScheduled {
		lead.Status = domain.LeadStatusScheduled
		_ = s.leads.Update(ctx, lead)
	}
	return appointment, nil
}

// GetAppointment fetches an appointment the actor may see.
func (s *AppointmentService) GetAppointment(ctx context.Context, actor domain.ActorContext, id int64) (*domain.Appointment, error) {
	appointment, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanSee(actor, appointment.Access()) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return appointment, nil
}

// ListAppointments returns appointments visible to the actor.
func (s *AppointmentService) ListAppointments(ctx context.Context, actor domain.ActorContext, input AppointmentListInput) ([]domain.Appointment, error) {
	filter := repository.AppointmentFilter{
		LeadID: input.LeadID,
		Scope:  ScopeFor(actor, input.Scope),
		Limit:  input.Limit,
	}
	if input.Status != "" {
		status := input.Status
		filter.Status = &status
	}

	list, err := s.appointments.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	visible := make([]domain.Appointment, 0, len(list))
	for i := range list {
		if CanSee(actor, list[i].Access()) {
			visible = append(visible, list[i])
		}
	}
	return visible, nil
}

// PatchAppointment applies a partial update for the booked closer, the
// scheduler, or a manager.
func (s *AppointmentService) PatchAppointment(ctx context.Context, actor domain.ActorContext, id int64, patch AppointmentPatch) (*domain.Appointment, error) {
	appointment, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanEdit(actor, appointment.Access()) {
		return nil, apperrors.NewForbidden("access denied")
	}

	oldStatus := appointment.Status
	if patch.Status != nil && *patch.Status != "" {
		if !domain.IsValidAppointmentStatus(*patch.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *patch.Status})
		}
		if appointment.Status.Terminal() && *patch.Status != appointment.Status {
			return nil, apperrors.NewInvalidTransition("appointment already closed out", map[string]any{
				"status": appointment.Status,
			})
		}
		appointment.Status = *patch.Status
	}
	if patch.EventDate != nil {
		if date := strings.TrimSpace(*patch.EventDate); date != "" {
			appointment.EventDate = date
		}
	}
	if patch.StartTime != nil {
		appointment.StartTime = strings.TrimSpace(*patch.StartTime)
	}
	if patch.EndTime != nil {
		appointment.EndTime = strings.TrimSpace(*patch.EndTime)
	}
	if patch.Notes != nil {
		appointment.Notes = strings.TrimSpace(*patch.Notes)
	}

	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if appointment.Status != oldStatus {
		s.publish(ctx, actor, events.Event{
			Type:     events.EventAppointmentStatusChanged,
			RecordID: appointment.ID,
			Payload: events.AppointmentStatusChangedPayload{
				LeadID:    appointment.LeadID,
				OldStatus: oldStatus,
				NewStatus: appointment.Status,
			},
		})
	}
	return appointment, nil
}

func (s *AppointmentService) fetch(ctx context.Context, id int64) (*domain.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("appointment", map[string]any{"appointment_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return appointment, nil
}

func (s *AppointmentService) publish(ctx context.Context, actor domain.ActorContext, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	event.Actor = events.Actor{UserID: actor.ActingUserID, Role: actor.ActingRole}
	s.dispatcher.Publish(ctx, event)
}
