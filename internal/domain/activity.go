package domain

import "time"

// ActivityType groups lead activity log entries.
type ActivityType string

const (
	ActivityTypeDispatch    ActivityType = "dispatch"
	ActivityTypeAppointment ActivityType = "appointment"
	ActivityTypeCall        ActivityType = "call"
	ActivityTypeNote        ActivityType = "note"
)

// LeadActivity is one append-only audit entry on a lead. Writes are
// best-effort; failures never fail the operation that produced them.
type LeadActivity struct {
	ID           int64
	LeadID       int64
	CreatedBy    *string
	ActivityType ActivityType
	Outcome      string
	Notes        string
	Payload      map[string]any
	CreatedAt    time.Time
}
