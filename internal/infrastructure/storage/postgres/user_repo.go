package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain/auth"
)

const usersTable = "users"

var _ auth.UserRepository = (*UserRepo)(nil)

// UserRepo persists user accounts. Emails are stored lowercased and
// carry a unique index.
type UserRepo struct {
	txManager *TxManager
	cols      []string
}

// NewUserRepo creates the user repository.
func NewUserRepo(txManager *TxManager) *UserRepo {
	return &UserRepo{
		txManager: txManager,
		cols:      ExtractDBColumns[auth.User](),
	}
}

// Create implements auth.UserRepository.
func (r *UserRepo) Create(ctx context.Context, u *auth.User) error {
	u.Email = strings.ToLower(u.Email)

	sql, args, err := builder().Insert(usersTable).SetMap(StructToMap(u)).ToSql()
	if err != nil {
		return fmt.Errorf("build user insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return apperror.NewDuplicate("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update implements auth.UserRepository. Login bookkeeping writes race
// with themselves harmlessly, so there is no version column here.
func (r *UserRepo) Update(ctx context.Context, u *auth.User) error {
	data := StructToMap(u)
	delete(data, "id")

	q := builder().
		Update(usersTable).
		SetMap(data).
		Where(squirrel.Eq{"id": u.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build user update: %w", err)
	}
	res, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("user", u.ID.String())
	}
	return nil
}

// GetByID implements auth.UserRepository.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": userID}, userID.String())
}

// GetByEmail implements auth.UserRepository.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	email = strings.ToLower(email)
	return r.getBy(ctx, squirrel.Eq{"email": email}, email)
}

func (r *UserRepo) getBy(ctx context.Context, where squirrel.Eq, key string) (*auth.User, error) {
	sql, args, err := builder().
		Select(r.cols...).
		From(usersTable).
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}

	var u auth.User
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", key)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Exists implements auth.UserRepository.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	sql, args, err := builder().
		Select("COUNT(*)").
		From(usersTable).
		Where(squirrel.Eq{"email": strings.ToLower(email)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build user exists query: %w", err)
	}

	var count int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return count > 0, nil
}
