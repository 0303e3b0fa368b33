package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

func getOne(ctx context.Context, db dbutil.DBTX, dest interface{}, sqlStr string, args []interface{}) error {
	sqlStr, args = dbutil.Finalize(db, sqlStr, args)
	if err := db.GetContext(ctx, dest, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErr.ErrNotFound
		}
		return err
	}
	return nil
}

func selectAll(ctx context.Context, db dbutil.DBTX, dest interface{}, sqlStr string, args []interface{}) error {
	sqlStr, args = dbutil.Finalize(db, sqlStr, args)
	return db.SelectContext(ctx, dest, sqlStr, args...)
}

func execAffected(ctx context.Context, db dbutil.DBTX, sqlStr string, args []interface{}) (int64, error) {
	sqlStr, args = dbutil.Finalize(db, sqlStr, args)
	result, err := db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func stringArgs(values []string) []interface{} {
	return dbutil.Args(values)
}

// deleteOwnedByDueUsers removes rows of table owned by the given users, but
// only for users still flagged for deletion at or before cutoff.
func deleteOwnedByDueUsers(ctx context.Context, db dbutil.DBTX, table string, userIDs []string, cutoff int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	sqlStr := "DELETE FROM " + table + " WHERE user_id IN (SELECT id FROM users WHERE id IN (" +
		dbutil.Placeholders(len(userIDs)) + ") AND to_be_deleted = ? AND deletion_requested_at <= ?)"
	args := append(stringArgs(userIDs), true, cutoff)
	return execAffected(ctx, db, sqlStr, args)
}
