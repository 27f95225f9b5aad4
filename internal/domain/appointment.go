package domain

import "time"

// AppointmentStatus enumerates lifecycle states for lead appointments.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentNoShow    AppointmentStatus = "no_show"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

var appointmentStatuses = map[AppointmentStatus]struct{}{
	AppointmentScheduled: {},
	AppointmentCompleted: {},
	AppointmentNoShow:    {},
	AppointmentCancelled: {},
}

// IsValidAppointmentStatus reports whether the status is a known state.
func IsValidAppointmentStatus(status AppointmentStatus) bool {
	_, ok := appointmentStatuses[status]
	return ok
}

// Terminal reports whether the appointment accepts no further status
// changes. A no-show may still be rescheduled or closed out later.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

// Appointment books a closer against a lead at a concrete time slot. The
// assigned role is always the closer group; setters schedule on behalf of
// closers, closers schedule for themselves.
type Appointment struct {
	ID             int64
	CreatedBy      string
	AssignedRole   Role
	AssignedUserID *string
	Status         AppointmentStatus
	Title          string
	EventDate      string
	StartTime      string
	EndTime        string
	City           string
	State          string
	Notes          string
	LeadID         int64
	LeadLabel      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Access projects the ownership fields for visibility checks.
func (a *Appointment) Access() RecordAccess {
	access := RecordAccess{
		Kind:         KindAppointment,
		CreatedBy:    a.CreatedBy,
		AssignedRole: a.AssignedRole,
	}
	if a.AssignedUserID != nil {
		access.AssignedUserID = *a.AssignedUserID
	}
	return access
}
