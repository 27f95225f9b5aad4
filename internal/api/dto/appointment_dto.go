package dto

import (
	"time"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// CreateAppointmentRequest payload.
type CreateAppointmentRequest struct {
	LeadID         int64  `json:"lead_id"`
	Title          string `json:"title"`
	EventDate      string `json:"event_date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	City           string `json:"city"`
	State          string `json:"state"`
	Notes          string `json:"notes"`
	AssignedUserID string `json:"assigned_user_id"`
}

// PatchAppointmentRequest payload. Absent fields are left untouched.
type PatchAppointmentRequest struct {
	Status    *domain.AppointmentStatus `json:"status"`
	EventDate *string                   `json:"event_date"`
	StartTime *string                   `json:"start_time"`
	EndTime   *string                   `json:"end_time"`
	Notes     *string                   `json:"notes"`
}

// AppointmentResponse is the external shape of an appointment.
type AppointmentResponse struct {
	ID             int64                    `json:"id"`
	CreatedBy      string                   `json:"created_by"`
	AssignedRole   domain.Role              `json:"assigned_role"`
	AssignedUserID *string                  `json:"assigned_user_id"`
	Status         domain.AppointmentStatus `json:"status"`
	Title          string                   `json:"title"`
	EventDate      string                   `json:"event_date"`
	StartTime      string                   `json:"start_time,omitempty"`
	EndTime        string                   `json:"end_time,omitempty"`
	City           string                   `json:"city,omitempty"`
	State          string                   `json:"state,omitempty"`
	Notes          string                   `json:"notes,omitempty"`
	LeadID         int64                    `json:"lead_id"`
	LeadLabel      string                   `json:"lead_label,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}
