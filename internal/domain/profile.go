package domain

import "time"

// Profile is a portal identity with its operational role. Accounts without a
// profile are authenticated but cannot use the portal.
type Profile struct {
	UserID    string
	FullName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
