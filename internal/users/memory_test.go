package users

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	a, err := repo.Create(ctx, "a@b.com", "d1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	_, err = repo.Create(ctx, "a@b.com", "d2")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	// Emails are case-sensitive as stored.
	b, err := repo.Create(ctx, "A@b.com", "d3")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), b.ID)

	got, err := repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.PasswordHash)

	got, err = repo.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "A@b.com", got.Email)

	got, err = repo.FindByEmail(ctx, "ghost@b.com")
	assert.NoError(t, err)
	assert.Nil(t, got)

	n, err := repo.UpdatePassword(ctx, "a@b.com", "d9")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.UpdatePassword(ctx, "ghost@b.com", "d9")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	list, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d9", list[0].PasswordHash)

	require.NoError(t, repo.DeleteAll(ctx))
	list, err = repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	c, err := repo.Create(ctx, "a@b.com", "d1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.ID, "numbering restarts after DeleteAll")
}

func TestMemoryRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	u, err := repo.Create(ctx, "a@b.com", "d1")
	require.NoError(t, err)
	u.PasswordHash = "tampered"

	got, err := repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.PasswordHash)
}

func TestMemoryRepo_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	const workers = 32
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, "race@b.com", fmt.Sprintf("d%d", i))
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, ErrDuplicateEmail):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(workers-1), dup.Load())
}

func TestMemoryRepo_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryRepo().Create(ctx, "a@b.com", "d1")
	assert.ErrorIs(t, err, context.Canceled)
}
