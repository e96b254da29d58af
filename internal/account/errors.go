package account

import "github.com/pkg/errors"

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrResetDisabled      = errors.New("database reset is disabled in production")
)
