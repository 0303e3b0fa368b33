package repo

import (
	"context"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

var userColumns = []string{
	"id", "email", "first_name", "last_name", "phone_number", "profession",
	"business_name", "business_address", "skills", "business_image", "business_image_key",
	"has_onboarded", "to_be_deleted", "deletion_requested_at", "ctime", "mtime",
}

type UserRepo struct {
	db dbutil.DBTX
}

func NewUserRepo(db dbutil.DBTX) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) WithTx(tx dbutil.DBTX) *UserRepo {
	return &UserRepo{db: tx}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	data := map[string]interface{}{
		"id":    user.ID,
		"email": user.Email,
		"ctime": user.Ctime,
		"mtime": user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	if _, err := execAffected(ctx, r.db, sqlStr, args); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

// FindOrCreate inserts a user for the email unless one exists and returns the
// stored row. Concurrent callers with the same email observe the same user.
func (r *UserRepo) FindOrCreate(ctx context.Context, user *model.User) (*model.User, error) {
	sqlStr := "INSERT INTO users (id, email, ctime, mtime) VALUES (?, ?, ?, ?) ON CONFLICT (email) DO NOTHING"
	if _, err := execAffected(ctx, r.db, sqlStr, []interface{}{user.ID, user.Email, user.Ctime, user.Mtime}); err != nil {
		return nil, err
	}
	return r.GetByEmail(ctx, user.Email)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.getBy(ctx, map[string]interface{}{"id": userID})
}

func (r *UserRepo) getBy(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	sqlStr, args, err := builder.BuildSelect("users", where, userColumns)
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := getOne(ctx, r.db, &user, sqlStr, args); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update writes the given columns. Callers pass column names from a fixed set.
func (r *UserRepo) Update(ctx context.Context, userID string, update map[string]interface{}, mtime int64) error {
	if len(update) == 0 {
		return nil
	}
	data := make(map[string]interface{}, len(update)+1)
	for k, v := range update {
		data[k] = v
	}
	data["mtime"] = mtime
	sqlStr, args, err := builder.BuildUpdate("users", map[string]interface{}{"id": userID}, data)
	if err != nil {
		return err
	}
	affected, err := execAffected(ctx, r.db, sqlStr, args)
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// MarkForDeletion flags the user. An earlier request timestamp is kept.
func (r *UserRepo) MarkForDeletion(ctx context.Context, userID string, requestedAt int64) error {
	sqlStr := "UPDATE users SET to_be_deleted = ?, deletion_requested_at = COALESCE(deletion_requested_at, ?), mtime = ? WHERE id = ?"
	affected, err := execAffected(ctx, r.db, sqlStr, []interface{}{true, requestedAt, requestedAt, userID})
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *UserRepo) ClearDeletion(ctx context.Context, userID string, mtime int64) error {
	sqlStr := "UPDATE users SET to_be_deleted = ?, deletion_requested_at = NULL, mtime = ? WHERE id = ?"
	affected, err := execAffected(ctx, r.db, sqlStr, []interface{}{false, mtime, userID})
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// ListDeletionDue returns users flagged for deletion at or before cutoff.
func (r *UserRepo) ListDeletionDue(ctx context.Context, cutoff int64) ([]*model.User, error) {
	where := map[string]interface{}{
		"to_be_deleted":            true,
		"deletion_requested_at <=": cutoff,
		"_orderby":                 "deletion_requested_at asc",
	}
	sqlStr, args, err := builder.BuildSelect("users", where, userColumns)
	if err != nil {
		return nil, err
	}
	var users []*model.User
	if err := selectAll(ctx, r.db, &users, sqlStr, args); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteDue removes the given users that are still flagged with a request at
// or before cutoff and returns the ids actually removed. A user whose flag was
// cleared after being listed is left alone.
func (r *UserRepo) DeleteDue(ctx context.Context, ids []string, cutoff int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	where := map[string]interface{}{
		"id in":                    stringArgs(ids),
		"to_be_deleted":            true,
		"deletion_requested_at <=": cutoff,
	}
	sqlStr, args, err := builder.BuildDelete("users", where)
	if err != nil {
		return nil, err
	}
	var deleted []string
	if err := selectAll(ctx, r.db, &deleted, sqlStr+" RETURNING id", args); err != nil {
		return nil, err
	}
	return deleted, nil
}
