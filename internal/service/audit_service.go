package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/events"
	"github.com/spec-kit/ops-portal/internal/repository"
)

// AuditService mirrors dispatch events into the lead activity trail. Writes
// are best-effort: a failed activity insert is logged and never propagates
// back to the operation that raised the event.
type AuditService struct {
	activities repository.ActivityRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(activities repository.ActivityRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		activities: activities,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to the task and appointment lifecycle events
// that reference a lead.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTaskCreated, a.handleTaskCreated)
	a.dispatcher.Subscribe(events.EventTaskClaimed, a.handleTaskClaimed)
	a.dispatcher.Subscribe(events.EventTaskStatusChanged, a.handleTaskStatusChanged)
	a.dispatcher.Subscribe(events.EventTaskEscalated, a.handleTaskEscalated)
	a.dispatcher.Subscribe(events.EventAppointmentScheduled, a.handleAppointmentScheduled)
	a.dispatcher.Subscribe(events.EventAppointmentStatusChanged, a.handleAppointmentStatusChanged)
}

func (a *AuditService) handleTaskCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskCreatedPayload)
	if !ok || payload.LeadID == nil {
		return nil
	}
	a.record(ctx, event, *payload.LeadID, "dispatched",
		fmt.Sprintf("Dispatch task created: %s (role %s)", payload.Title, payload.AssignedRole))
	return nil
}

func (a *AuditService) handleTaskClaimed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskClaimedPayload)
	if !ok || payload.LeadID == nil {
		return nil
	}
	a.record(ctx, event, *payload.LeadID, "claimed", "Dispatch task claimed")
	return nil
}

func (a *AuditService) handleTaskStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskStatusChangedPayload)
	if !ok || payload.LeadID == nil {
		return nil
	}
	a.record(ctx, event, *payload.LeadID, string(payload.NewStatus),
		fmt.Sprintf("Dispatch task %s: %s", payload.NewStatus, payload.Title))
	return nil
}

func (a *AuditService) handleTaskEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskEscalatedPayload)
	if !ok || payload.LeadID == nil {
		return nil
	}
	outcome := "escalated"
	if payload.Swept {
		outcome = "auto_escalated"
	}
	a.record(ctx, event, *payload.LeadID, outcome,
		fmt.Sprintf("Dispatch task escalated to priority %d: %s", payload.Priority, payload.Title))
	return nil
}

func (a *AuditService) handleAppointmentScheduled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentScheduledPayload)
	if !ok {
		return nil
	}
	when := payload.EventDate
	if payload.StartTime != "" {
		when += " " + payload.StartTime
	}
	a.recordAppointment(ctx, event, payload.LeadID, "scheduled", "Appointment scheduled: "+when)
	return nil
}

func (a *AuditService) handleAppointmentStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentStatusChangedPayload)
	if !ok {
		return nil
	}
	a.recordAppointment(ctx, event, payload.LeadID, string(payload.NewStatus),
		fmt.Sprintf("Appointment marked %s", payload.NewStatus))
	return nil
}

func (a *AuditService) record(ctx context.Context, event events.Event, leadID int64, outcome, notes string) {
	a.write(ctx, event, leadID, domain.ActivityTypeDispatch, "taskId", outcome, notes)
}

func (a *AuditService) recordAppointment(ctx context.Context, event events.Event, leadID int64, outcome, notes string) {
	a.write(ctx, event, leadID, domain.ActivityTypeAppointment, "appointmentId", outcome, notes)
}

func (a *AuditService) write(ctx context.Context, event events.Event, leadID int64, activityType domain.ActivityType, refKey, outcome, notes string) {
	activity := &domain.LeadActivity{
		LeadID:       leadID,
		ActivityType: activityType,
		Outcome:      outcome,
		Notes:        notes,
		Payload: map[string]any{
			refKey:      event.RecordID,
			"eventType": string(event.Type),
		},
	}
	if event.Actor.UserID != "" {
		uid := event.Actor.UserID
		activity.CreatedBy = &uid
	}
	if err := a.activities.Create(ctx, activity); err != nil {
		a.logger.Warn("lead activity write failed",
			zap.Int64("lead_id", leadID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
