package users

import "context"

// UserRepo stores users. Lookups that miss return errors.ErrUserNotFound.
type UserRepo interface {
	Upsert(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByName(ctx context.Context, name string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	SetLastLogin(ctx context.Context, id string) error
}
