package repo

import (
	"context"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

type WaitlistRepo struct {
	db dbutil.DBTX
}

func NewWaitlistRepo(db dbutil.DBTX) *WaitlistRepo {
	return &WaitlistRepo{db: db}
}

func (r *WaitlistRepo) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	data := map[string]interface{}{
		"id":    entry.ID,
		"email": entry.Email,
		"ctime": entry.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("waitlists", []map[string]interface{}{data})
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

func (r *WaitlistRepo) GetByEmail(ctx context.Context, email string) (*model.WaitlistEntry, error) {
	sqlStr, args, err := builder.BuildSelect("waitlists", map[string]interface{}{"email": email}, []string{"id", "email", "ctime"})
	if err != nil {
		return nil, err
	}
	var entry model.WaitlistEntry
	if err := getOne(ctx, r.db, &entry, sqlStr, args); err != nil {
		return nil, err
	}
	return &entry, nil
}
