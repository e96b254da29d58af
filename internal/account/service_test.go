package account

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"accounts/internal/auth"
	"accounts/internal/users"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T, store Store) *Service {
	t.Helper()
	h, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return &Service{Store: store, Hasher: h, AllowReset: true}
}

// brokenStore fails every call with err.
type brokenStore struct{ err error }

func (b brokenStore) Create(context.Context, string, string) (*users.User, error) { return nil, b.err }
func (b brokenStore) FindByEmail(context.Context, string) (*users.User, error) { return nil, b.err }
func (b brokenStore) FindByID(context.Context, uint64) (*users.User, error) { return nil, b.err }
func (b brokenStore) UpdatePassword(context.Context, string, string) (int64, error) {
	return 0, b.err
}
func (b brokenStore) ListAll(context.Context) ([]users.User, error) { return nil, b.err }
func (b brokenStore) DeleteAll(context.Context) error { return b.err }

type brokenHasher struct{}

func (brokenHasher) Hash(string) (string, error) { return "", errors.New("entropy exhausted") }
func (brokenHasher) Verify(string, string) bool { return false }

// flakyHasher fails its first Hash call and records the digests Verify sees.
type flakyHasher struct {
	calls    int
	verified []string
}

func (f *flakyHasher) Hash(string) (string, error) {
	f.calls++
	if f.calls == 1 {
		return "", errors.New("entropy exhausted")
	}
	return fmt.Sprintf("digest-%d", f.calls), nil
}

func (f *flakyHasher) Verify(_ string, digest string) bool {
	f.verified = append(f.verified, digest)
	return false
}

func TestService_Scenario(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, users.NewMemoryRepo())

	u, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
	assert.Equal(t, uint64(1), u.ID)

	_, err = svc.Login(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ResetPassword(ctx, "a@b.com", "Newpass1!"))

	_, err = svc.Login(ctx, "a@b.com", "Abcd123!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	got, err := svc.Login(ctx, "a@b.com", "Newpass1!")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestService_RegisterStoresDigestOnly(t *testing.T) {
	ctx := context.Background()
	store := users.NewMemoryRepo()
	svc := newService(t, store)

	_, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)

	row, err := store.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.NotEmpty(t, row.PasswordHash)
	assert.NotEqual(t, "Abcd123!", row.PasswordHash)
}

func TestService_RegisterValidation(t *testing.T) {
	svc := newService(t, users.NewMemoryRepo())

	_, err := svc.Register(context.Background(), "not-an-email", "Abcd123!")
	var verr *auth.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, auth.FieldEmail, verr.Field)

	_, err = svc.Register(context.Background(), "a@b.com", "abcdefgh")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{auth.RuleUppercase, auth.RuleDigit, auth.RuleSpecial}, verr.Details)
}

func TestService_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	store := users.NewMemoryRepo()
	svc := newService(t, store)

	_, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "a@b.com", "Other123!")
	assert.ErrorIs(t, err, ErrEmailTaken)

	list, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_RegisterConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	store := users.NewMemoryRepo()
	svc := newService(t, store)

	const workers = 16
	var ok, taken atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, "race@b.com", fmt.Sprintf("Abcd123!%d", i))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrEmailTaken):
				taken.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(workers-1), taken.Load())

	list, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_RegisterCompletesAfterCancel(t *testing.T) {
	store := users.NewMemoryRepo()
	svc := newService(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)

	row, err := store.FindByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.NotNil(t, row)
}

func TestService_LoginDoesNotRevealExistence(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, users.NewMemoryRepo())
	_, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)

	_, errUnknown := svc.Login(ctx, "ghost@b.com", "Abcd123!")
	_, errWrong := svc.Login(ctx, "a@b.com", "Wrong123!")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestService_LoginRequiresFields(t *testing.T) {
	svc := newService(t, users.NewMemoryRepo())

	var verr *auth.ValidationError
	_, err := svc.Login(context.Background(), "", "x")
	require.True(t, errors.As(err, &verr))
	_, err = svc.Login(context.Background(), "a@b.com", "")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, auth.FieldPassword, verr.Field)
}

func TestService_ForgotPassword(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, users.NewMemoryRepo())
	_, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)

	assert.NoError(t, svc.ForgotPassword(ctx, "a@b.com"))
	assert.ErrorIs(t, svc.ForgotPassword(ctx, "ghost@b.com"), ErrUserNotFound)
}

func TestService_ResetPasswordUnknownEmail(t *testing.T) {
	ctx := context.Background()
	store := users.NewMemoryRepo()
	svc := newService(t, store)
	_, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)
	before, err := store.ListAll(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ResetPassword(ctx, "ghost@b.com", "Newpass1!"), ErrUserNotFound)

	after, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestService_ResetPasswordValidation(t *testing.T) {
	svc := newService(t, users.NewMemoryRepo())

	var verr *auth.ValidationError
	err := svc.ResetPassword(context.Background(), "a@b.com", "short")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, auth.FieldPassword, verr.Field)
}

func TestService_ListAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, users.NewMemoryRepo())
	for _, e := range []string{"a@b.com", "c@d.com"} {
		_, err := svc.Register(ctx, e, "Abcd123!")
		require.NoError(t, err)
	}

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a@b.com", list[0].Email)
	assert.Equal(t, "c@d.com", list[1].Email)

	u, err := svc.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "c@d.com", u.Email)

	_, err = svc.GetUser(ctx, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_ResetDatabase(t *testing.T) {
	ctx := context.Background()
	store := users.NewMemoryRepo()
	svc := newService(t, store)
	_, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)

	require.NoError(t, svc.ResetDatabase(ctx))
	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	u, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
}

func TestService_ResetDatabaseDisabled(t *testing.T) {
	ctx := context.Background()
	store := users.NewMemoryRepo()
	svc := newService(t, store)
	svc.AllowReset = false
	_, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ResetDatabase(ctx), ErrResetDisabled)

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_InfrastructureFaults(t *testing.T) {
	ctx := context.Background()
	fault := errors.New("connection refused")
	svc := newService(t, brokenStore{err: fault})

	_, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	assert.ErrorIs(t, err, fault)
	assert.NotErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Login(ctx, "a@b.com", "Abcd123!")
	assert.ErrorIs(t, err, fault)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	assert.ErrorIs(t, svc.ForgotPassword(ctx, "a@b.com"), fault)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "a@b.com", "Newpass1!"), fault)
	assert.ErrorIs(t, svc.ResetDatabase(ctx), fault)

	_, err = svc.ListUsers(ctx)
	assert.ErrorIs(t, err, fault)
	_, err = svc.GetUser(ctx, 1)
	assert.ErrorIs(t, err, fault)
}

func TestService_HashFailureIsNotStored(t *testing.T) {
	ctx := context.Background()
	store := users.NewMemoryRepo()
	svc := &Service{Store: store, Hasher: brokenHasher{}}

	_, err := svc.Register(ctx, "a@b.com", "Abcd123!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")

	list, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_DummyDigestRetriedAfterFailure(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	h := &flakyHasher{}
	svc := &Service{
		Store:  users.NewMemoryRepo(),
		Hasher: h,
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	}

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, "ghost@b.com", "Abcd123!")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	assert.Equal(t, []string{"", "digest-2", "digest-2"}, h.verified)
	assert.Equal(t, 2, h.calls, "digest is cached once computed")
	assert.Contains(t, logs.String(), "compute dummy digest")
	assert.Contains(t, logs.String(), "entropy exhausted")
}
