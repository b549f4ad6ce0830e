package fakeuserrepo_test

import (
	"testing"

	"github.com/craftyxhub/craftyx-portal/users"
	fakeuserrepo "github.com/craftyxhub/craftyx-portal/users/repofake"
	"github.com/craftyxhub/craftyx-portal/users/repotest"
)

func TestFakeUserRepo(t *testing.T) {
	repotest.RunUserRepoContract(t, func(t *testing.T) users.UserRepo {
		return fakeuserrepo.NewFakeUserRepo()
	})
}
