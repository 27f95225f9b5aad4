package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandAliasesIncludesSelf(t *testing.T) {
	for role := range allRoles {
		assert.Contains(t, ExpandAliases(role), role)
	}
	// Unknown roles still expand to themselves.
	assert.Equal(t, []Role{"intern"}, ExpandAliases("intern"))
	assert.Nil(t, ExpandAliases(""))
}

func TestExpandAliasesGroups(t *testing.T) {
	assert.ElementsMatch(t, []Role{RoleDialer, RoleRemoteSetter}, ExpandAliases(RoleDialer))
	assert.ElementsMatch(t, []Role{RoleDialer, RoleRemoteSetter}, ExpandAliases(RoleRemoteSetter))
	assert.ElementsMatch(t, []Role{RoleCloser, RoleAccountManager}, ExpandAliases(RoleCloser))
	assert.ElementsMatch(t, []Role{RoleCloser, RoleAccountManager}, ExpandAliases(RoleAccountManager))

	assert.Equal(t, []Role{RoleEventHost}, ExpandAliases(RoleEventHost))
	assert.Equal(t, []Role{RoleManager}, ExpandAliases(RoleManager))
}

func TestRoleMatchesAnySymmetric(t *testing.T) {
	for role := range allRoles {
		for other := range allRoles {
			assert.Equal(t, RoleMatchesAny(role, other), RoleMatchesAny(other, role),
				"match between %s and %s must be symmetric", role, other)
		}
	}
}

func TestRoleMatchesAny(t *testing.T) {
	assert.True(t, RoleMatchesAny(RoleDialer, RoleRemoteSetter))
	assert.True(t, RoleMatchesAny(RoleAccountManager, RoleCloser))
	assert.True(t, RoleMatchesAny(RoleEventHost, RoleEventHost))

	assert.False(t, RoleMatchesAny(RoleDialer, RoleCloser))
	assert.False(t, RoleMatchesAny(RoleEventHost, RoleMediaTeam))
	assert.False(t, RoleMatchesAny("", RoleDialer))
}

func TestImpersonable(t *testing.T) {
	assert.False(t, Impersonable(RoleManager))
	assert.False(t, Impersonable("intern"))
	assert.False(t, Impersonable(""))
	assert.True(t, Impersonable(RoleDialer))
	assert.True(t, Impersonable(RoleEventCoordinator))
}

func TestActorHasRole(t *testing.T) {
	manager := SelfActor("m1", RoleManager)
	assert.True(t, manager.HasRole(RoleEventCoordinator))
	assert.True(t, manager.HasRole(RoleDialer))

	dialer := SelfActor("d1", RoleDialer)
	assert.True(t, dialer.HasRole(RoleRemoteSetter))
	assert.False(t, dialer.HasRole(RoleCloser))

	// View-as: privilege checks follow the acting role, manager checks the
	// real role.
	viewing := ActorContext{
		RealUserID:    "m1",
		RealRole:      RoleManager,
		ActingRole:    RoleCloser,
		Impersonating: true,
	}
	assert.True(t, viewing.IsManager())
	assert.True(t, viewing.HasRole(RoleDialer))
}
