package domain

import "time"

// TaskStatus enumerates lifecycle states for dispatch tasks.
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusAssigned  TaskStatus = "assigned"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// EscalationPriorityFloor is the minimum priority an escalated task holds.
const EscalationPriorityFloor = 5

// DispatchMeta is the typed payload for dispatch-kind records. Escalation is
// a flag, not a state: EscalatedAt is set at most once.
type DispatchMeta struct {
	LeadID      *int64     `json:"leadId,omitempty"`
	LeadLabel   string     `json:"leadLabel,omitempty"`
	Priority    int        `json:"priority"`
	Reason      string     `json:"reason,omitempty"`
	EscalatedAt *time.Time `json:"escalatedAt,omitempty"`
	EscalatedBy string     `json:"escalatedBy,omitempty"`
}

// Escalated reports whether the one-time escalation stamp is set.
func (m DispatchMeta) Escalated() bool {
	return m.EscalatedAt != nil
}

// DispatchTask is an operational task routed to a role inbox and optionally
// claimed by a specific person.
type DispatchTask struct {
	ID             int64
	CreatedBy      string
	AssignedRole   Role
	AssignedUserID *string
	Status         TaskStatus
	Title          string
	Notes          string
	DueDate        *string // ISO date, compared lexically against today
	DueTime        string
	Meta           DispatchMeta
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Access projects the ownership fields for visibility checks.
func (t *DispatchTask) Access() RecordAccess {
	access := RecordAccess{
		Kind:         KindDispatch,
		CreatedBy:    t.CreatedBy,
		AssignedRole: t.AssignedRole,
	}
	if t.AssignedUserID != nil {
		access.AssignedUserID = *t.AssignedUserID
	}
	return access
}

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

var allowedTaskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusOpen:      {TaskStatusAssigned, TaskStatusCancelled},
	TaskStatusAssigned:  {TaskStatusCompleted, TaskStatusCancelled},
	TaskStatusCompleted: {},
	TaskStatusCancelled: {},
}

// IsValidTaskTransition reports whether a dispatch task may move between the
// two statuses. Same-status writes are allowed (idempotent patches).
func IsValidTaskTransition(current, next TaskStatus) bool {
	if current == next {
		return true
	}
	for _, candidate := range allowedTaskTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
