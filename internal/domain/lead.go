package domain

import "time"

// LeadStatus is free-form by design; these are the common values.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusWorking   LeadStatus = "working"
	LeadStatusScheduled LeadStatus = "scheduled"
	LeadStatusClosed    LeadStatus = "closed"
)

// Lead is a sales pipeline record.
type Lead struct {
	ID             int64
	CreatedBy      string
	AssignedRole   Role
	AssignedUserID *string
	Status         LeadStatus
	Priority       int
	Source         string
	FirstName      string
	LastName       string
	Company        string
	PropertyName   string
	Phone          string
	Email          string
	City           string
	State          string
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Access projects the ownership fields for visibility checks.
func (l *Lead) Access() RecordAccess {
	access := RecordAccess{
		Kind:         KindLead,
		CreatedBy:    l.CreatedBy,
		AssignedRole: l.AssignedRole,
	}
	if l.AssignedUserID != nil {
		access.AssignedUserID = *l.AssignedUserID
	}
	return access
}

// Label builds the short display label used by dispatch audit notes.
func (l *Lead) Label() string {
	name := l.FirstName
	if l.LastName != "" {
		if name != "" {
			name += " "
		}
		name += l.LastName
	}
	prop := l.PropertyName
	if prop == "" {
		prop = l.Company
	}
	switch {
	case name != "" && prop != "":
		return name + " • " + prop
	case name != "":
		return name
	default:
		return prop
	}
}
