package domain

// Role enumerates portal job roles.
type Role string

const (
	RoleManager          Role = "manager"
	RoleDialer           Role = "dialer"
	RoleInPersonSetter   Role = "in_person_setter"
	RoleRemoteSetter     Role = "remote_setter"
	RoleCloser           Role = "closer"
	RoleAccountManager   Role = "account_manager"
	RoleEventHost        Role = "event_host"
	RoleEventCoordinator Role = "event_coordinator"
	RoleMediaTeam        Role = "media_team"
)

// aliasGroups partitions operationally interchangeable roles. Any role not
// listed here is its own singleton group.
var aliasGroups = [][]Role{
	{RoleDialer, RoleRemoteSetter},
	{RoleCloser, RoleAccountManager},
}

var allRoles = map[Role]struct{}{
	RoleManager:          {},
	RoleDialer:           {},
	RoleInPersonSetter:   {},
	RoleRemoteSetter:     {},
	RoleCloser:           {},
	RoleAccountManager:   {},
	RoleEventHost:        {},
	RoleEventCoordinator: {},
	RoleMediaTeam:        {},
}

// AllRoles returns every known role in a stable order, for directory
// listings that carry no role filter.
func AllRoles() []Role {
	return []Role{
		RoleManager,
		RoleDialer,
		RoleInPersonSetter,
		RoleRemoteSetter,
		RoleCloser,
		RoleAccountManager,
		RoleEventHost,
		RoleEventCoordinator,
		RoleMediaTeam,
	}
}

// IsValidRole reports whether the role is a known portal role.
func IsValidRole(role Role) bool {
	_, ok := allRoles[role]
	return ok
}

// Impersonable reports whether a manager may view-as the role. The top tier
// itself is never impersonable.
func Impersonable(role Role) bool {
	return role != RoleManager && IsValidRole(role)
}

// ExpandAliases returns the equivalence group containing role. The result
// always includes the input role, even for unknown roles.
func ExpandAliases(role Role) []Role {
	if role == "" {
		return nil
	}
	for _, group := range aliasGroups {
		for _, member := range group {
			if member == role {
				out := make([]Role, len(group))
				copy(out, group)
				return out
			}
		}
	}
	return []Role{role}
}

// RoleMatchesAny reports whether actual is a member of the alias group of
// requested. Role filters and visibility checks go through this rather than
// string equality.
func RoleMatchesAny(actual, requested Role) bool {
	if actual == "" {
		return false
	}
	for _, r := range ExpandAliases(requested) {
		if r == actual {
			return true
		}
	}
	return false
}
