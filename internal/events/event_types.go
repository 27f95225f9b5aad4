package events

import (
	"time"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskCreated         EventType = "task_created"
	EventTaskClaimed         EventType = "task_claimed"
	EventTaskStatusChanged   EventType = "task_status_changed"
	EventTaskEscalated       EventType = "task_escalated"
	EventAssignmentAdded     EventType = "assignment_added"
	EventAssignmentResponded EventType = "assignment_responded"
	EventAssignmentRemoved   EventType = "assignment_removed"

	EventAppointmentScheduled     EventType = "appointment_scheduled"
	EventAppointmentStatusChanged EventType = "appointment_status_changed"
)

// Actor identifies who triggered an event. UserID is empty for scheduler
// originated events.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RecordID  int64       `json:"record_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	Title        string      `json:"title"`
	AssignedRole domain.Role `json:"assigned_role"`
	LeadID       *int64      `json:"lead_id,omitempty"`
	Priority     int         `json:"priority"`
	DueDate      *string     `json:"due_date,omitempty"`
	DueTime      string      `json:"due_time,omitempty"`
}

// TaskClaimedPayload payload.
type TaskClaimedPayload struct {
	AssignedUserID string `json:"assigned_user_id"`
	LeadID         *int64 `json:"lead_id,omitempty"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	Title     string            `json:"title"`
	OldStatus domain.TaskStatus `json:"old_status"`
	NewStatus domain.TaskStatus `json:"new_status"`
	LeadID    *int64            `json:"lead_id,omitempty"`
}

// TaskEscalatedPayload payload.
type TaskEscalatedPayload struct {
	Title    string `json:"title"`
	Priority int    `json:"priority"`
	LeadID   *int64 `json:"lead_id,omitempty"`
	// Swept marks escalations produced by the scheduled sweep rather than a
	// manual call.
	Swept bool `json:"swept,omitempty"`
}

// AssignmentAddedPayload payload.
type AssignmentAddedPayload struct {
	Role   domain.Role `json:"role"`
	UserID string      `json:"user_id"`
}

// AssignmentRespondedPayload payload.
type AssignmentRespondedPayload struct {
	Role     domain.Role             `json:"role"`
	UserID   string                  `json:"user_id"`
	Decision domain.AssignmentStatus `json:"decision"`
}

// AssignmentRemovedPayload payload.
type AssignmentRemovedPayload struct {
	Role   domain.Role `json:"role"`
	UserID string      `json:"user_id"`
}

// AppointmentScheduledPayload payload.
type AppointmentScheduledPayload struct {
	LeadID    int64  `json:"lead_id"`
	EventDate string `json:"event_date"`
	StartTime string `json:"start_time,omitempty"`
}

// AppointmentStatusChangedPayload payload.
type AppointmentStatusChangedPayload struct {
	LeadID    int64                    `json:"lead_id"`
	OldStatus domain.AppointmentStatus `json:"old_status"`
	NewStatus domain.AppointmentStatus `json:"new_status"`
}
