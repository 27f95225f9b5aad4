package dto

import (
	"time"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// CreateEventRequest payload.
type CreateEventRequest struct {
	Title     string `json:"title"`
	EventDate string `json:"event_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	City      string `json:"city"`
	State     string `json:"state"`
	Notes     string `json:"notes"`
}

// AddAssignmentRequest payload.
type AddAssignmentRequest struct {
	Role   domain.Role `json:"role"`
	UserID string      `json:"user_id"`
	Note   string      `json:"note"`
}

// RespondAssignmentRequest payload.
type RespondAssignmentRequest struct {
	Decision domain.AssignmentStatus `json:"decision"`
	Note     string                  `json:"note"`
}

// EventResponse is the external shape of an event.
type EventResponse struct {
	ID             int64                `json:"id"`
	CreatedBy      string               `json:"created_by"`
	AssignedRole   domain.Role          `json:"assigned_role"`
	AssignedUserID *string              `json:"assigned_user_id"`
	Status         domain.EventStatus   `json:"status"`
	Title          string               `json:"title"`
	EventDate      *string              `json:"event_date"`
	StartTime      string               `json:"start_time,omitempty"`
	EndTime        string               `json:"end_time,omitempty"`
	City           string               `json:"city,omitempty"`
	State          string               `json:"state,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	Assignments    []AssignmentResponse `json:"assignments"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// AssignmentResponse is one roster entry.
type AssignmentResponse struct {
	Role      domain.Role             `json:"role"`
	UserID    string                  `json:"user_id"`
	FullName  string                  `json:"full_name,omitempty"`
	Status    domain.AssignmentStatus `json:"status"`
	Note      string                  `json:"note,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
	DecidedAt *time.Time              `json:"decided_at,omitempty"`
}
