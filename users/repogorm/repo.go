// Package repogorm is a users.UserRepo backed by SQLite through GORM.
package repogorm

import (
	"context"
	"fmt"
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ users.UserRepo = (*Repo)(nil)

// userRecord is the persisted shape of users.User.
type userRecord struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Name         string `gorm:"uniqueIndex;not null"`
	Email        string
	Role         string `gorm:"not null;default:user"`
	PasswordHash string `gorm:"not null"`
	OTPEnabled   bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	LastLogin    *time.Time
}

func (userRecord) TableName() string {
	return "users"
}

func (r *userRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

type Repo struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at dsn and migrates the users table.
func Open(dsn string) (*Repo, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// SQLite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	return New(db)
}

// New wraps an existing connection and migrates the users table.
func New(db *gorm.DB) (*Repo, error) {
	if err := db.AutoMigrate(&userRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate users: %w", err)
	}
	return &Repo{db: db}, nil
}

// Close releases the underlying connection pool.
func (r *Repo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repo) Upsert(ctx context.Context, user *users.User) error {
	db := r.db.WithContext(ctx)

	var existing userRecord
	err := db.Where("name = ?", user.Name).First(&existing).Error
	switch {
	case err == nil:
		if user.ID != "" && user.ID != existing.ID {
			return errors.ErrUserExists
		}
		user.ID = existing.ID
		if user.CreatedAt.IsZero() {
			user.CreatedAt = existing.CreatedAt
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if user.ID == "" {
			user.ID = uuid.New().String()
		}
	default:
		return errors.Wrapf(err, "Repo.Upsert lookup %s", user.Name)
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	record := toRecord(user)
	if err := db.Save(&record).Error; err != nil {
		return errors.Wrapf(err, "Repo.Upsert save %s", user.Name)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&userRecord{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "Repo.Delete %s", id)
	}
	if result.RowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repo) GetByName(ctx context.Context, name string) (*users.User, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *Repo) List(ctx context.Context, offset, limit int) ([]*users.User, error) {
	var records []userRecord
	q := r.db.WithContext(ctx).Order("name").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, errors.Wrapf(err, "Repo.List")
	}

	list := make([]*users.User, 0, len(records))
	for i := range records {
		list = append(list, records[i].toUser())
	}
	return list, nil
}

func (r *Repo) SetLastLogin(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Update("last_login", time.Now())
	if result.Error != nil {
		return errors.Wrapf(result.Error, "Repo.SetLastLogin %s", id)
	}
	if result.RowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (r *Repo) first(ctx context.Context, query string, arg any) (*users.User, error) {
	var record userRecord
	err := r.db.WithContext(ctx).Where(query, arg).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Repo.first")
	}
	return record.toUser(), nil
}

func toRecord(u *users.User) userRecord {
	record := userRecord{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		OTPEnabled:   u.OTPEnabled,
		CreatedAt:    u.CreatedAt,
	}
	if !u.LastLogin.IsZero() {
		lastLogin := u.LastLogin
		record.LastLogin = &lastLogin
	}
	return record
}

func (r userRecord) toUser() *users.User {
	u := &users.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         users.Role(r.Role),
		PasswordHash: r.PasswordHash,
		OTPEnabled:   r.OTPEnabled,
		CreatedAt:    r.CreatedAt,
	}
	if r.LastLogin != nil {
		u.LastLogin = *r.LastLogin
	}
	return u
}
