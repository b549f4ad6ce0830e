package repogorm_test

import (
	"fmt"
	"testing"

	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/craftyxhub/craftyx-portal/users/repogorm"
	"github.com/craftyxhub/craftyx-portal/users/repotest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGormRepo(t *testing.T) {
	repotest.RunUserRepoContract(t, func(t *testing.T) users.UserRepo {
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		repo, err := repogorm.Open(dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}
