package service

import (
	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/repository"
)

// Listing scopes requested by callers. Anything else falls back to the
// default (mine, created by me, or my role group).
const (
	ScopeMine = "mine"
	ScopeRole = "role"
)

// CanSee decides read eligibility for a record. Managers see everything on
// the strength of their real role, so the answer does not change while they
// impersonate.
func CanSee(actor domain.ActorContext, access domain.RecordAccess) bool {
	if actor.IsManager() {
		return true
	}
	if actor.ActingUserID != "" {
		if access.AssignedUserID != "" && access.AssignedUserID == actor.ActingUserID {
			return true
		}
		if access.CreatedBy != "" && access.CreatedBy == actor.ActingUserID {
			return true
		}
	}
	if access.AssignedRole != "" && domain.RoleMatchesAny(access.AssignedRole, actor.ActingRole) {
		return true
	}
	return staffingException(actor.ActingRole, access)
}

// CanEdit decides write eligibility: a strict subset of CanSee plus
// ownership. Role-group visibility alone does not grant edit; the event
// coordinator is the operational owner role and may edit regardless of
// assignment.
func CanEdit(actor domain.ActorContext, access domain.RecordAccess) bool {
	if actor.IsManager() {
		return true
	}
	if domain.RoleMatchesAny(actor.ActingRole, domain.RoleEventCoordinator) {
		return true
	}
	if actor.ActingUserID == "" {
		return false
	}
	if access.AssignedUserID != "" && access.AssignedUserID == actor.ActingUserID {
		return true
	}
	return access.CreatedBy != "" && access.CreatedBy == actor.ActingUserID
}

// staffingException lets the two collaborating staffing roles see each
// other's event records.
func staffingException(actingRole domain.Role, access domain.RecordAccess) bool {
	if access.Kind != domain.KindEvent {
		return false
	}
	switch {
	case actingRole == domain.RoleEventHost && access.AssignedRole == domain.RoleMediaTeam:
		return true
	case actingRole == domain.RoleMediaTeam && access.AssignedRole == domain.RoleEventHost:
		return true
	default:
		return false
	}
}

// ScopeFor translates the acting identity into a store-level listing scope.
// Post-filtering with CanSee still applies to every fetched record, so the
// scope only needs to be an over-approximation.
func ScopeFor(actor domain.ActorContext, requested string) repository.VisibilityScope {
	// View-as lists what the impersonated identity would list, so the
	// impersonation check comes before the manager-sees-all shortcut.
	if !actor.Impersonating && actor.IsManager() {
		return repository.VisibilityScope{Mode: repository.VisibilityAll}
	}

	roles := domain.ExpandAliases(actor.ActingRole)

	// View-as with no concrete member simulates the role inbox.
	if actor.Impersonating && actor.ActingUserID == "" {
		return repository.VisibilityScope{Mode: repository.VisibilityRoleInbox, Roles: roles}
	}

	switch requested {
	case ScopeMine:
		return repository.VisibilityScope{Mode: repository.VisibilityMine, UserID: actor.ActingUserID}
	case ScopeRole:
		return repository.VisibilityScope{Mode: repository.VisibilityRole, UserID: actor.ActingUserID, Roles: roles}
	default:
		return repository.VisibilityScope{Mode: repository.VisibilityDefault, UserID: actor.ActingUserID, Roles: roles}
	}
}
