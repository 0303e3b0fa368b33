package repo

import (
	"context"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

// Lookup columns accepted by Redeem and Latest.
const (
	CredentialByCode  = "code"
	CredentialByToken = "token"
)

var credentialColumns = []string{"id", "user_id", "code", "token", "expires_at", "used_at", "ctime"}

type CredentialRepo struct {
	db dbutil.DBTX
}

func NewCredentialRepo(db dbutil.DBTX) *CredentialRepo {
	return &CredentialRepo{db: db}
}

func (r *CredentialRepo) WithTx(tx dbutil.DBTX) *CredentialRepo {
	return &CredentialRepo{db: tx}
}

func (r *CredentialRepo) Create(ctx context.Context, cred *model.OneTimeCredential) error {
	data := map[string]interface{}{
		"id":         cred.ID,
		"user_id":    cred.UserID,
		"code":       cred.Code,
		"token":      cred.Token,
		"expires_at": cred.ExpiresAt,
		"ctime":      cred.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("one_time_credentials", []map[string]interface{}{data})
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

// RetireStale closes expired, never-used credentials holding code so the
// pending-code unique index only covers live credentials.
func (r *CredentialRepo) RetireStale(ctx context.Context, code string, now int64) (int64, error) {
	sqlStr := "UPDATE one_time_credentials SET used_at = expires_at WHERE code = ? AND used_at IS NULL AND expires_at <= ?"
	return execAffected(ctx, r.db, sqlStr, []interface{}{code, now})
}

// Redeem marks the credential addressed by column=value as used when it is
// still valid. The check and the mark are one statement; a credential that is
// missing, used or expired yields ErrNotFound.
func (r *CredentialRepo) Redeem(ctx context.Context, column, value string, now int64) (*model.OneTimeCredential, error) {
	if err := checkCredentialColumn(column); err != nil {
		return nil, err
	}
	sqlStr := fmt.Sprintf(
		"UPDATE one_time_credentials SET used_at = ? WHERE %s = ? AND used_at IS NULL AND expires_at > ? RETURNING id, user_id, code, token, expires_at, used_at, ctime",
		column,
	)
	var cred model.OneTimeCredential
	if err := getOne(ctx, r.db, &cred, sqlStr, []interface{}{now, value, now}); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Latest returns the most recently issued credential for column=value.
func (r *CredentialRepo) Latest(ctx context.Context, column, value string) (*model.OneTimeCredential, error) {
	if err := checkCredentialColumn(column); err != nil {
		return nil, err
	}
	where := map[string]interface{}{column: value, "_orderby": "ctime desc", "_limit": []uint{0, 1}}
	sqlStr, args, err := builder.BuildSelect("one_time_credentials", where, credentialColumns)
	if err != nil {
		return nil, err
	}
	var cred model.OneTimeCredential
	if err := getOne(ctx, r.db, &cred, sqlStr, args); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *CredentialRepo) ListByUser(ctx context.Context, userID string) ([]*model.OneTimeCredential, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "ctime desc"}
	sqlStr, args, err := builder.BuildSelect("one_time_credentials", where, credentialColumns)
	if err != nil {
		return nil, err
	}
	var creds []*model.OneTimeCredential
	if err := selectAll(ctx, r.db, &creds, sqlStr, args); err != nil {
		return nil, err
	}
	return creds, nil
}

func (r *CredentialRepo) DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args, err := builder.BuildDelete("one_time_credentials", map[string]interface{}{"expires_at <": cutoff})
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, r.db, sqlStr, args)
}

// DeleteForDueUsers removes the rows of users that are still due for deletion
// at cutoff.
func (r *CredentialRepo) DeleteForDueUsers(ctx context.Context, userIDs []string, cutoff int64) (int64, error) {
	return deleteOwnedByDueUsers(ctx, r.db, "one_time_credentials", userIDs, cutoff)
}

func checkCredentialColumn(column string) error {
	if column != CredentialByCode && column != CredentialByToken {
		return fmt.Errorf("unsupported credential lookup column: %s", column)
	}
	return nil
}
