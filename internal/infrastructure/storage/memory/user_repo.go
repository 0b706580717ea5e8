package memory

import (
	"context"
	"strings"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain/auth"
)

// UserRepo implements auth.UserRepository on the store.
type UserRepo struct {
	store *Store
}

// NewUserRepo creates the repo.
func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{store: store}
}

func cloneUser(u *auth.User) *auth.User {
	cp := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		cp.LockedUntil = &t
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		cp.LastLoginAt = &t
	}
	return &cp
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create stores the user.
func (r *UserRepo) Create(ctx context.Context, u *auth.User) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	email := normalizeEmail(u.Email)
	if _, taken := r.store.usersByEmail[email]; taken {
		return apperror.NewConflict("email already registered").WithDetail("email", u.Email)
	}

	r.store.users[u.ID] = cloneUser(u)
	r.store.usersByEmail[email] = u.ID

	if j != nil {
		uid := u.ID
		j.record(func() {
			delete(r.store.users, uid)
			delete(r.store.usersByEmail, email)
		})
	}
	return nil
}

// GetByID returns a copy of the user.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	defer r.store.enter(ctx)()

	u, exists := r.store.users[userID]
	if !exists {
		return nil, apperror.NewNotFound("user", userID)
	}
	return cloneUser(u), nil
}

// GetByEmail returns a copy of the user with that email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	defer r.store.enter(ctx)()

	uid, exists := r.store.usersByEmail[normalizeEmail(email)]
	if !exists {
		return nil, apperror.NewNotFound("user", email)
	}
	return cloneUser(r.store.users[uid]), nil
}

// Update replaces the stored user.
func (r *UserRepo) Update(ctx context.Context, u *auth.User) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev, exists := r.store.users[u.ID]
	if !exists {
		return apperror.NewNotFound("user", u.ID)
	}

	r.store.users[u.ID] = cloneUser(u)

	if j != nil {
		j.record(func() { r.store.users[prev.ID] = prev })
	}
	return nil
}

// Exists reports whether the email is registered.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	defer r.store.enter(ctx)()

	_, exists := r.store.usersByEmail[normalizeEmail(email)]
	return exists, nil
}
