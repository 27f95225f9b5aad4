package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/repository"
)

func dispatchAccess(createdBy string, role domain.Role, assignee string) domain.RecordAccess {
	return domain.RecordAccess{
		Kind:           domain.KindDispatch,
		CreatedBy:      createdBy,
		AssignedRole:   role,
		AssignedUserID: assignee,
	}
}

func TestCanSeeManagerSeesEverything(t *testing.T) {
	manager := domain.SelfActor("m1", domain.RoleManager)
	assert.True(t, CanSee(manager, dispatchAccess("someone", domain.RoleCloser, "else")))
	assert.True(t, CanSee(manager, domain.RecordAccess{Kind: domain.KindLead}))

	// Impersonation never shrinks what a manager can see.
	viewing := manager
	viewing.Impersonating = true
	viewing.ActingRole = domain.RoleDialer
	viewing.ActingUserID = ""
	assert.True(t, CanSee(viewing, dispatchAccess("someone", domain.RoleCloser, "else")))
}

func TestCanSeeOwnership(t *testing.T) {
	dialer := domain.SelfActor("d1", domain.RoleDialer)

	assert.True(t, CanSee(dialer, dispatchAccess("x", domain.RoleCloser, "d1")), "assignee sees")
	assert.True(t, CanSee(dialer, dispatchAccess("d1", domain.RoleCloser, "x")), "creator sees")
	assert.False(t, CanSee(dialer, dispatchAccess("x", domain.RoleCloser, "y")))
}

func TestCanSeeRoleAlias(t *testing.T) {
	setter := domain.SelfActor("s1", domain.RoleRemoteSetter)
	assert.True(t, CanSee(setter, dispatchAccess("x", domain.RoleDialer, "")))

	closer := domain.SelfActor("c1", domain.RoleCloser)
	assert.True(t, CanSee(closer, dispatchAccess("x", domain.RoleAccountManager, "")))
	assert.False(t, CanSee(closer, dispatchAccess("x", domain.RoleDialer, "")))
}

func TestStaffingExceptionEventsOnly(t *testing.T) {
	host := domain.SelfActor("h1", domain.RoleEventHost)
	media := domain.SelfActor("mt1", domain.RoleMediaTeam)

	eventForMedia := domain.RecordAccess{Kind: domain.KindEvent, AssignedRole: domain.RoleMediaTeam}
	eventForHost := domain.RecordAccess{Kind: domain.KindEvent, AssignedRole: domain.RoleEventHost}

	assert.True(t, CanSee(host, eventForMedia))
	assert.True(t, CanSee(media, eventForHost))

	// The exception does not extend beyond event records.
	taskForMedia := dispatchAccess("x", domain.RoleMediaTeam, "")
	assert.False(t, CanSee(host, taskForMedia))

	// Nor to other role pairs.
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)
	assert.False(t, CanSee(coordinator, eventForMedia))
}

func TestCanEdit(t *testing.T) {
	manager := domain.SelfActor("m1", domain.RoleManager)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)
	dialer := domain.SelfActor("d1", domain.RoleDialer)

	foreign := dispatchAccess("x", domain.RoleDialer, "y")
	assert.True(t, CanEdit(manager, foreign))
	assert.True(t, CanEdit(coordinator, foreign))

	// Role-group visibility alone does not grant edit.
	assert.False(t, CanEdit(dialer, foreign))
	assert.True(t, CanEdit(dialer, dispatchAccess("x", domain.RoleDialer, "d1")))
	assert.True(t, CanEdit(dialer, dispatchAccess("d1", domain.RoleDialer, "y")))
}

func TestScopeFor(t *testing.T) {
	manager := domain.SelfActor("m1", domain.RoleManager)
	assert.Equal(t, repository.VisibilityAll, ScopeFor(manager, "").Mode)

	dialer := domain.SelfActor("d1", domain.RoleDialer)

	scope := ScopeFor(dialer, ScopeMine)
	assert.Equal(t, repository.VisibilityMine, scope.Mode)
	assert.Equal(t, "d1", scope.UserID)

	scope = ScopeFor(dialer, ScopeRole)
	assert.Equal(t, repository.VisibilityRole, scope.Mode)
	assert.ElementsMatch(t, []domain.Role{domain.RoleDialer, domain.RoleRemoteSetter}, scope.Roles)

	scope = ScopeFor(dialer, "")
	assert.Equal(t, repository.VisibilityDefault, scope.Mode)
}

func TestScopeForViewAs(t *testing.T) {
	// Role-only browsing: no concrete member, so lists show the role inbox.
	viewing := domain.ActorContext{
		RealUserID:    "m1",
		RealRole:      domain.RoleManager,
		ActingRole:    domain.RoleCloser,
		Impersonating: true,
	}
	scope := ScopeFor(viewing, "")
	assert.Equal(t, repository.VisibilityRoleInbox, scope.Mode)
	assert.ElementsMatch(t, []domain.Role{domain.RoleCloser, domain.RoleAccountManager}, scope.Roles)

	// With a concrete member the list mirrors that member's default view.
	viewing.ActingUserID = "c1"
	scope = ScopeFor(viewing, "")
	assert.Equal(t, repository.VisibilityDefault, scope.Mode)
	assert.Equal(t, "c1", scope.UserID)
}
