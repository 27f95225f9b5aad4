package domain

// RecordKind discriminates the record families sharing the ownership shape.
type RecordKind string

const (
	KindLead        RecordKind = "lead"
	KindEvent       RecordKind = "event"
	KindAppointment RecordKind = "appointment"
	KindDispatch    RecordKind = "dispatch"
)

// RecordAccess carries the ownership and assignment fields every visibility
// decision is made from.
type RecordAccess struct {
	Kind           RecordKind
	CreatedBy      string
	AssignedRole   Role
	AssignedUserID string
}
