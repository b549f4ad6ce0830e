package fakeuserrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/google/uuid"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users   map[string]users.User
	nameIDs map[string]string // name to user id
	lock    sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:   make(map[string]users.User),
		nameIDs: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if id, ok := ur.nameIDs[user.Name]; ok && id != user.ID && user.ID != "" {
		return errors.ErrUserExists
	}
	if user.ID == "" {
		if id, ok := ur.nameIDs[user.Name]; ok {
			user.ID = id
		} else {
			user.ID = uuid.New().String()
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if existing, ok := ur.users[user.ID]; ok && existing.Name != user.Name {
		delete(ur.nameIDs, existing.Name)
	}
	ur.users[user.ID] = *user
	ur.nameIDs[user.Name] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return errors.ErrUserNotFound
	}
	delete(ur.nameIDs, user.Name)
	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) GetByName(_ context.Context, name string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.nameIDs[name]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	user := ur.users[id]
	return &user, nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return &user, nil
}

func (ur *FakeUserRepo) List(_ context.Context, offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		u := v
		userList = append(userList, &u)
	}

	sort.Slice(userList, func(i, j int) bool {
		return userList[i].Name < userList[j].Name
	})

	if offset >= len(userList) {
		return []*users.User{}, nil
	}
	end := len(userList)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return userList[offset:end], nil
}

func (ur *FakeUserRepo) SetLastLogin(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return errors.ErrUserNotFound
	}
	user.LastLogin = time.Now()
	ur.users[id] = user
	return nil
}
