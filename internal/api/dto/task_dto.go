package dto

import (
	"time"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Title          string      `json:"title"`
	Notes          string      `json:"notes"`
	AssignedRole   domain.Role `json:"assigned_role"`
	AssignedUserID string      `json:"assigned_user_id"`
	DueDate        string      `json:"due_date"`
	DueTime        string      `json:"due_time"`
	Priority       int         `json:"priority"`
	Reason         string      `json:"reason"`
	LeadID         *int64      `json:"lead_id"`
}

// PatchTaskRequest payload. Absent fields are left untouched.
type PatchTaskRequest struct {
	Status         *domain.TaskStatus `json:"status"`
	Title          *string            `json:"title"`
	Notes          *string            `json:"notes"`
	DueDate        *string            `json:"due_date"`
	DueTime        *string            `json:"due_time"`
	AssignedRole   *domain.Role       `json:"assigned_role"`
	AssignedUserID *string            `json:"assigned_user_id"`
	Priority       *int               `json:"priority"`
}

// TaskResponse is the external shape of a dispatch task.
type TaskResponse struct {
	ID             int64             `json:"id"`
	CreatedBy      string            `json:"created_by"`
	AssignedRole   domain.Role       `json:"assigned_role"`
	AssignedUserID *string           `json:"assigned_user_id"`
	Status         domain.TaskStatus `json:"status"`
	Title          string            `json:"title"`
	Notes          string            `json:"notes,omitempty"`
	DueDate        *string           `json:"due_date"`
	DueTime        string            `json:"due_time,omitempty"`
	LeadID         *int64            `json:"lead_id,omitempty"`
	LeadLabel      string            `json:"lead_label,omitempty"`
	Priority       int               `json:"priority"`
	Reason         string            `json:"reason,omitempty"`
	EscalatedAt    *time.Time        `json:"escalated_at,omitempty"`
	EscalatedBy    string            `json:"escalated_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// SweepResponse summarizes one escalation sweep run.
type SweepResponse struct {
	Scanned   int `json:"scanned"`
	Escalated int `json:"escalated"`
}
