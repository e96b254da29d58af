// Package account implements the register, login and password reset use cases.
package account

import (
	"context"
	"log/slog"
	"sync"

	"accounts/internal/auth"
	"accounts/internal/users"

	"github.com/pkg/errors"
)

// Store is the persistence contract. Find methods return nil, nil when
// nothing matches; Create returns users.ErrDuplicateEmail on a unique
// constraint violation.
type Store interface {
	Create(ctx context.Context, email, passwordHash string) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindByID(ctx context.Context, id uint64) (*users.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) (int64, error)
	ListAll(ctx context.Context) ([]users.User, error)
	DeleteAll(ctx context.Context) error
}

type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// Service must not be copied after first use.
type Service struct {
	Store  Store
	Hasher Hasher
	// AllowReset enables ResetDatabase. Leave false in production.
	AllowReset bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	dummyMu     sync.Mutex
	dummyDigest string
}

func (s *Service) Register(ctx context.Context, email, password string) (users.Public, error) {
	if err := auth.Validate(email, password); err != nil {
		return users.Public{}, err
	}

	digest, err := s.Hasher.Hash(password)
	if err != nil {
		return users.Public{}, errors.Wrap(err, "register")
	}

	// Writes finish even if the caller goes away.
	u, err := s.Store.Create(context.WithoutCancel(ctx), email, digest)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return users.Public{}, ErrEmailTaken
		}
		return users.Public{}, errors.Wrap(err, "register")
	}
	return u.Public(), nil
}

// Login answers ErrInvalidCredentials for both an unknown email and a wrong
// password.
func (s *Service) Login(ctx context.Context, email, password string) (users.Public, error) {
	if err := auth.RequirePresent(email, password); err != nil {
		return users.Public{}, err
	}

	u, err := s.Store.FindByEmail(ctx, email)
	if err != nil {
		return users.Public{}, errors.Wrap(err, "login")
	}
	if u == nil {
		// Spend the same hashing time as a real comparison.
		s.Hasher.Verify(password, s.dummy())
		return users.Public{}, ErrInvalidCredentials
	}
	if !s.Hasher.Verify(password, u.PasswordHash) {
		return users.Public{}, ErrInvalidCredentials
	}
	return u.Public(), nil
}

// ForgotPassword only confirms that the email is registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Store.FindByEmail(ctx, email)
	if err != nil {
		return errors.Wrap(err, "forgot password")
	}
	if u == nil {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	if err := auth.Validate(email, newPassword); err != nil {
		return err
	}

	digest, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return errors.Wrap(err, "reset password")
	}

	n, err := s.Store.UpdatePassword(context.WithoutCancel(ctx), email, digest)
	if err != nil {
		return errors.Wrap(err, "reset password")
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) GetUser(ctx context.Context, id uint64) (users.Public, error) {
	u, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return users.Public{}, errors.Wrap(err, "get user")
	}
	if u == nil {
		return users.Public{}, ErrUserNotFound
	}
	return u.Public(), nil
}

func (s *Service) ListUsers(ctx context.Context) ([]users.Public, error) {
	list, err := s.Store.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	out := make([]users.Public, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	return out, nil
}

func (s *Service) ResetDatabase(ctx context.Context) error {
	if !s.AllowReset {
		return ErrResetDisabled
	}
	if err := s.Store.DeleteAll(context.WithoutCancel(ctx)); err != nil {
		return errors.Wrap(err, "reset database")
	}
	return nil
}

// dummy returns a digest for comparisons against unknown emails. A failed
// hash is logged and retried on the next call.
func (s *Service) dummy() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyDigest == "" {
		digest, err := s.Hasher.Hash("timing-equalizer")
		if err != nil {
			s.logger().Error("compute dummy digest", "error", err)
			return ""
		}
		s.dummyDigest = digest
	}
	return s.dummyDigest
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
