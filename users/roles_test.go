package users_test

import (
	"testing"

	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/stretchr/testify/require"
)

func TestHasRole(t *testing.T) {
	tests := []struct {
		name     string
		user     users.Role
		required users.Role
		want     bool
	}{
		{"user needs user", users.RoleUser, users.RoleUser, true},
		{"moderator needs user", users.RoleModerator, users.RoleUser, true},
		{"admin needs moderator", users.RoleAdmin, users.RoleModerator, true},
		{"admin needs admin", users.RoleAdmin, users.RoleAdmin, true},
		{"user needs moderator", users.RoleUser, users.RoleModerator, false},
		{"user needs admin", users.RoleUser, users.RoleAdmin, false},
		{"moderator needs admin", users.RoleModerator, users.RoleAdmin, false},
		{"unknown needs user", "guest", users.RoleUser, false},
		{"unknown needs unknown", "guest", "guest", false},
		{"empty needs empty", "", "", false},
		{"admin needs unknown", users.RoleAdmin, "superuser", false},
		{"case insensitive", "ADMIN", " moderator ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, users.HasRole(tt.user, tt.required))
		})
	}
}

func TestRole_Rank(t *testing.T) {
	require.Less(t, users.Role("nobody").Rank(), users.RoleUser.Rank())
	require.Less(t, users.RoleUser.Rank(), users.RoleModerator.Rank())
	require.Less(t, users.RoleModerator.Rank(), users.RoleAdmin.Rank())
	require.False(t, users.Role("").Valid())
	require.True(t, users.ParseRole(" Moderator").Valid())
}

func TestUser_HasRole(t *testing.T) {
	var nilUser *users.User
	require.False(t, nilUser.HasRole(users.RoleUser))

	u := &users.User{Role: users.RoleModerator}
	require.True(t, u.HasRole(users.RoleUser))
	require.False(t, u.HasRole(users.RoleAdmin))
}
