package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimaryRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
		want  Role
	}{
		{name: "empty", roles: nil, want: ""},
		{name: "single", roles: []Role{RoleTeamAdmin}, want: RoleTeamAdmin},
		{name: "order of input does not matter", roles: []Role{RoleUser, RoleLeagueAdmin, RoleTenantAdmin}, want: RoleTenantAdmin},
		{name: "system admin wins", roles: []Role{RoleTeamAdmin, RoleSystemAdmin}, want: RoleSystemAdmin},
		{name: "unknown roles rank last", roles: []Role{"COACH", RoleUser}, want: RoleUser},
		{name: "only unknown roles", roles: []Role{"COACH"}, want: "COACH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimaryRole(tt.roles))
		})
	}
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleLeagueAdmin, ParseRole(" league_admin "))
	assert.True(t, ParseRole("system_admin").Known())
	assert.False(t, ParseRole("coach").Known())
}

func TestUserCloneIsIndependent(t *testing.T) {
	user := &User{ID: "u-1", Roles: []Role{RoleUser}}
	clone := user.Clone()
	clone.Roles[0] = RoleSystemAdmin

	assert.Equal(t, RoleUser, user.Roles[0])
	assert.Nil(t, (*User)(nil).Clone())
	assert.False(t, (*User)(nil).HasAnyRole(RoleUser))
}
