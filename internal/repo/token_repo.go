package repo

import (
	"context"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

var tokenColumns = []string{"id", "user_id", "token", "token_type", "expires_at", "ctime"}

// TokenRepo is the record of issued session tokens that are still honored.
type TokenRepo struct {
	db dbutil.DBTX
}

func NewTokenRepo(db dbutil.DBTX) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) WithTx(tx dbutil.DBTX) *TokenRepo {
	return &TokenRepo{db: tx}
}

func (r *TokenRepo) Record(ctx context.Context, token *model.Token) error {
	data := map[string]interface{}{
		"id":         token.ID,
		"user_id":    token.UserID,
		"token":      token.Token,
		"token_type": token.TokenType,
		"expires_at": token.ExpiresAt,
		"ctime":      token.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("tokens", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	if _, err := execAffected(ctx, r.db, sqlStr, args); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrDuplicateToken
		}
		return err
	}
	return nil
}

// FindActive returns the unexpired row for token and tokenType.
func (r *TokenRepo) FindActive(ctx context.Context, token, tokenType string, now int64) (*model.Token, error) {
	where := map[string]interface{}{
		"token":        token,
		"token_type":   tokenType,
		"expires_at >": now,
	}
	sqlStr, args, err := builder.BuildSelect("tokens", where, tokenColumns)
	if err != nil {
		return nil, err
	}
	var row model.Token
	if err := getOne(ctx, r.db, &row, sqlStr, args); err != nil {
		return nil, err
	}
	return &row, nil
}

// RevokeAll deletes the user's tokens of tokenType, or of every type when
// tokenType is empty.
func (r *TokenRepo) RevokeAll(ctx context.Context, userID, tokenType string) (int64, error) {
	where := map[string]interface{}{"user_id": userID}
	if tokenType != "" {
		where["token_type"] = tokenType
	}
	sqlStr, args, err := builder.BuildDelete("tokens", where)
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, r.db, sqlStr, args)
}

func (r *TokenRepo) PurgeExpired(ctx context.Context, userID string, now int64) (int64, error) {
	sqlStr, args, err := builder.BuildDelete("tokens", map[string]interface{}{"user_id": userID, "expires_at <=": now})
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, r.db, sqlStr, args)
}

func (r *TokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args, err := builder.BuildDelete("tokens", map[string]interface{}{"expires_at <=": cutoff})
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, r.db, sqlStr, args)
}

// DeleteForDueUsers removes the rows of users that are still due for deletion
// at cutoff.
func (r *TokenRepo) DeleteForDueUsers(ctx context.Context, userIDs []string, cutoff int64) (int64, error) {
	return deleteOwnedByDueUsers(ctx, r.db, "tokens", userIDs, cutoff)
}

func (r *TokenRepo) ListActive(ctx context.Context, userID string, now int64) ([]*model.Token, error) {
	where := map[string]interface{}{"user_id": userID, "expires_at >": now, "_orderby": "ctime asc"}
	sqlStr, args, err := builder.BuildSelect("tokens", where, tokenColumns)
	if err != nil {
		return nil, err
	}
	var rows []*model.Token
	if err := selectAll(ctx, r.db, &rows, sqlStr, args); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TokenRepo) CountActive(ctx context.Context, userID, tokenType string, now int64) (int, error) {
	sqlStr := "SELECT COUNT(*) FROM tokens WHERE user_id = ? AND token_type = ? AND expires_at > ?"
	var count int
	if err := getOne(ctx, r.db, &count, sqlStr, []interface{}{userID, tokenType, now}); err != nil {
		return 0, err
	}
	return count, nil
}
