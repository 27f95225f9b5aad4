package domain

import "time"

// EventStatus enumerates lifecycle states for staffed events.
type EventStatus string

const (
	EventStatusOpen      EventStatus = "open"
	EventStatusAssigned  EventStatus = "assigned"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Terminal reports whether the event accepts no further staffing changes.
func (s EventStatus) Terminal() bool {
	return s == EventStatusCompleted || s == EventStatusCancelled
}

// AssignmentStatus tracks an individual roster entry's response.
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentAccepted AssignmentStatus = "accepted"
	AssignmentDeclined AssignmentStatus = "declined"
)

// rosterRoles is the fixed set of roles an event roster entry may hold.
var rosterRoles = map[Role]struct{}{
	RoleEventHost:        {},
	RoleMediaTeam:        {},
	RoleEventCoordinator: {},
}

// IsRosterRole reports whether the role may appear on an event roster.
func IsRosterRole(role Role) bool {
	_, ok := rosterRoles[role]
	return ok
}

// Assignment is one role+person pairing on an event roster.
type Assignment struct {
	Role      Role             `json:"role"`
	UserID    string           `json:"userId"`
	Status    AssignmentStatus `json:"status"`
	Note      string           `json:"note,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
	DecidedAt *time.Time       `json:"decidedAt,omitempty"`
}

// EventMeta is the typed payload for event-kind records. Version counts
// meta writes; roster mutations use it as a compare-and-swap guard so two
// concurrent responses cannot overwrite each other.
type EventMeta struct {
	Version     int64        `json:"version,omitempty"`
	Assignments []Assignment `json:"assignments,omitempty"`
	Checklist   []string     `json:"checklist,omitempty"`
	BudgetCents int64        `json:"budgetCents,omitempty"`
}

// HasUser reports whether userID already appears anywhere on the roster,
// under any role.
func (m EventMeta) HasUser(userID string) bool {
	for _, a := range m.Assignments {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// Event is a scheduled portal event with a staffing roster.
type Event struct {
	ID             int64
	CreatedBy      string
	AssignedRole   Role
	AssignedUserID *string
	Status         EventStatus
	Title          string
	EventDate      *string
	StartTime      string
	EndTime        string
	City           string
	State          string
	Notes          string
	Meta           EventMeta
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Access projects the ownership fields for visibility checks.
func (e *Event) Access() RecordAccess {
	access := RecordAccess{
		Kind:         KindEvent,
		CreatedBy:    e.CreatedBy,
		AssignedRole: e.AssignedRole,
	}
	if e.AssignedUserID != nil {
		access.AssignedUserID = *e.AssignedUserID
	}
	return access
}
