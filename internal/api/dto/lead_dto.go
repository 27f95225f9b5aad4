package dto

import (
	"time"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// CreateLeadRequest payload.
type CreateLeadRequest struct {
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	Company      string      `json:"company"`
	PropertyName string      `json:"property_name"`
	Phone        string      `json:"phone"`
	Email        string      `json:"email"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	Source       string      `json:"source"`
	Notes        string      `json:"notes"`
	AssignedRole domain.Role `json:"assigned_role"`
	Priority     int         `json:"priority"`
}

// PatchLeadRequest payload. Absent fields are left untouched.
type PatchLeadRequest struct {
	Status         *domain.LeadStatus `json:"status"`
	Priority       *int               `json:"priority"`
	AssignedRole   *domain.Role       `json:"assigned_role"`
	AssignedUserID *string            `json:"assigned_user_id"`
	Notes          *string            `json:"notes"`
	Phone          *string            `json:"phone"`
	Email          *string            `json:"email"`
}

// CreateActivityRequest payload.
type CreateActivityRequest struct {
	ActivityType domain.ActivityType `json:"activity_type"`
	Outcome      string              `json:"outcome"`
	Notes        string              `json:"notes"`
	Payload      map[string]any      `json:"payload"`
}

// LeadResponse is the external shape of a lead.
type LeadResponse struct {
	ID             int64             `json:"id"`
	CreatedBy      string            `json:"created_by"`
	AssignedRole   domain.Role       `json:"assigned_role"`
	AssignedUserID *string           `json:"assigned_user_id"`
	Status         domain.LeadStatus `json:"status"`
	Priority       int               `json:"priority"`
	Source         string            `json:"source,omitempty"`
	FirstName      string            `json:"first_name,omitempty"`
	LastName       string            `json:"last_name,omitempty"`
	Company        string            `json:"company,omitempty"`
	PropertyName   string            `json:"property_name,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Email          string            `json:"email,omitempty"`
	City           string            `json:"city,omitempty"`
	State          string            `json:"state,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ActivityResponse is one lead audit entry.
type ActivityResponse struct {
	ID           int64               `json:"id"`
	LeadID       int64               `json:"lead_id"`
	CreatedBy    *string             `json:"created_by"`
	ActivityType domain.ActivityType `json:"activity_type"`
	Outcome      string              `json:"outcome,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	Payload      map[string]any      `json:"payload,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}
