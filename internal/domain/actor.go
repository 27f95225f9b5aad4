package domain

// ActorContext is the effective identity performing an operation. The real
// identity from the credential is always retained alongside the acting one so
// privilege-sensitive checks can ignore view-as state.
type ActorContext struct {
	RealUserID string
	RealRole   Role

	// ActingUserID may be empty when a manager browses a role with no
	// concrete member (role-level browsing only).
	ActingUserID  string
	ActingRole    Role
	Impersonating bool
}

// IsManager reports whether the real identity holds the top privilege tier.
// View-as never changes the answer.
func (a ActorContext) IsManager() bool {
	return a.RealRole == RoleManager
}

// HasRole reports whether the acting role alias-matches any of the given
// roles. Managers pass every role gate.
func (a ActorContext) HasRole(roles ...Role) bool {
	if a.IsManager() {
		return true
	}
	for _, role := range roles {
		if RoleMatchesAny(a.ActingRole, role) {
			return true
		}
	}
	return false
}

// SelfActor builds a non-impersonating context for a profile.
func SelfActor(userID string, role Role) ActorContext {
	return ActorContext{
		RealUserID:   userID,
		RealRole:     role,
		ActingUserID: userID,
		ActingRole:   role,
	}
}
