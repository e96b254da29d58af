// Package users persists account credentials.
package users

import (
	"context"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Repo is the postgres-backed store. Email uniqueness is enforced by the
// users.email unique index, never by a lookup before insert.
type Repo struct {
	DB *gorm.DB
}

func (r *Repo) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	u := User{Email: email, PasswordHash: passwordHash}
	if err := r.DB.WithContext(ctx).Create(&u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, "create user")
	}
	return &u, nil
}

// FindByEmail returns nil, nil when no row matches.
func (r *Repo) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find user by email")
	}
	return &u, nil
}

// FindByID returns nil, nil when no row matches.
func (r *Repo) FindByID(ctx context.Context, id uint64) (*User, error) {
	var u User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find user by id")
	}
	return &u, nil
}

func (r *Repo) UpdatePassword(ctx context.Context, email, passwordHash string) (int64, error) {
	res := r.DB.WithContext(ctx).
		Model(&User{}).
		Where("email = ?", email).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "update password")
	}
	return res.RowsAffected, nil
}

func (r *Repo) ListAll(ctx context.Context) ([]User, error) {
	var out []User
	if err := r.DB.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return out, nil
}

// DeleteAll truncates the table and restarts the id sequence.
func (r *Repo) DeleteAll(ctx context.Context) error {
	stmt := "TRUNCATE TABLE " + pq.QuoteIdentifier(tableName) + " RESTART IDENTITY CASCADE"
	if err := r.DB.WithContext(ctx).Exec(stmt).Error; err != nil {
		return errors.Wrap(err, "truncate users")
	}
	return nil
}
