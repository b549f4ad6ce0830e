// Package repotest holds behaviour tests shared by every users.UserRepo implementation.
package repotest

import (
	"context"
	"testing"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/stretchr/testify/require"
)

// RunUserRepoContract exercises repo against the UserRepo contract. newRepo must return an empty repo.
func RunUserRepoContract(t *testing.T, newRepo func(t *testing.T) users.UserRepo) {
	t.Helper()
	ctx := context.Background()

	t.Run("upsert assigns id and is retrievable", func(t *testing.T) {
		repo := newRepo(t)
		u := &users.User{Name: "alice", Role: users.RoleAdmin, PasswordHash: "hash"}
		require.NoError(t, repo.Upsert(ctx, u))
		require.NotEmpty(t, u.ID)

		byID, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", byID.Name)
		require.Equal(t, users.RoleAdmin, byID.Role)

		byName, err := repo.GetByName(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, u.ID, byName.ID)
	})

	t.Run("upsert by name updates in place", func(t *testing.T) {
		repo := newRepo(t)
		first := &users.User{Name: "bob", Role: users.RoleUser, PasswordHash: "hash"}
		require.NoError(t, repo.Upsert(ctx, first))

		second := &users.User{Name: "bob", Role: users.RoleModerator, PasswordHash: "hash", OTPEnabled: true}
		require.NoError(t, repo.Upsert(ctx, second))
		require.Equal(t, first.ID, second.ID)

		got, err := repo.GetByName(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, users.RoleModerator, got.Role)
		require.True(t, got.OTPEnabled)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByID(ctx, "nope")
		require.ErrorIs(t, err, errors.ErrUserNotFound)
		_, err = repo.GetByName(ctx, "nope")
		require.ErrorIs(t, err, errors.ErrUserNotFound)
		require.ErrorIs(t, repo.Delete(ctx, "nope"), errors.ErrUserNotFound)
		require.ErrorIs(t, repo.SetLastLogin(ctx, "nope"), errors.ErrUserNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		u := &users.User{Name: "carol", Role: users.RoleUser, PasswordHash: "hash"}
		require.NoError(t, repo.Upsert(ctx, u))
		require.NoError(t, repo.Delete(ctx, u.ID))
		_, err := repo.GetByName(ctx, "carol")
		require.ErrorIs(t, err, errors.ErrUserNotFound)
	})

	t.Run("list is ordered and paged", func(t *testing.T) {
		repo := newRepo(t)
		for _, name := range []string{"dave", "erin", "ann"} {
			require.NoError(t, repo.Upsert(ctx, &users.User{Name: name, Role: users.RoleUser, PasswordHash: "hash"}))
		}

		all, err := repo.List(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, "ann", all[0].Name)

		page, err := repo.List(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, "dave", page[0].Name)

		empty, err := repo.List(ctx, 10, 5)
		require.NoError(t, err)
		require.Empty(t, empty)
	})

	t.Run("set last login", func(t *testing.T) {
		repo := newRepo(t)
		u := &users.User{Name: "frank", Role: users.RoleUser, PasswordHash: "hash"}
		require.NoError(t, repo.Upsert(ctx, u))
		require.NoError(t, repo.SetLastLogin(ctx, u.ID))

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.LastLogin.IsZero())
	})
}
