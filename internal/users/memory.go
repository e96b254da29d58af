package users

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo keeps users in process memory. The mutex plays the role of the
// unique index, so it is only correct for a single process.
type MemoryRepo struct {
	mu      sync.Mutex
	nextID  uint64
	byEmail map[string]*User
	order   []*User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{nextID: 1, byEmail: map[string]*User{}}
}

func (r *MemoryRepo) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, ErrDuplicateEmail
	}
	u := &User{ID: r.nextID, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	r.nextID++
	r.byEmail[email] = u
	r.order = append(r.order, u)

	cp := *u
	return &cp, nil
}

func (r *MemoryRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, id uint64) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.order {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepo) UpdatePassword(ctx context.Context, email, passwordHash string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byEmail[email]
	if !ok {
		return 0, nil
	}
	u.PasswordHash = passwordHash
	return 1, nil
}

func (r *MemoryRepo) ListAll(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]User, 0, len(r.order))
	for _, u := range r.order {
		out = append(out, *u)
	}
	return out, nil
}

// DeleteAll also restarts id numbering, like RESTART IDENTITY.
func (r *MemoryRepo) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byEmail = map[string]*User{}
	r.order = nil
	r.nextID = 1
	return nil
}
