package repo

import (
	"context"
	"strings"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

const (
	ClientSortAZ          = "a-z"
	ClientSortZA          = "z-a"
	ClientSortLastUpdated = "last_updated"
)

var clientColumns = []string{
	"id", "user_id", "first_name", "last_name", "gender", "measurement_unit",
	"email", "phone_number", "measurements", "in_trash", "ctime", "mtime",
}

var clientOrderBy = map[string]string{
	ClientSortAZ:          "LOWER(first_name) ASC, LOWER(last_name) ASC, id ASC",
	ClientSortZA:          "LOWER(first_name) DESC, LOWER(last_name) DESC, id DESC",
	ClientSortLastUpdated: "mtime DESC, id DESC",
}

// ClientFilter narrows a client listing. A nil InTrash returns both states.
type ClientFilter struct {
	Search  string
	InTrash *bool
}

type ClientRepo struct {
	db dbutil.DBTX
}

func NewClientRepo(db dbutil.DBTX) *ClientRepo {
	return &ClientRepo{db: db}
}

func (r *ClientRepo) WithTx(tx dbutil.DBTX) *ClientRepo {
	return &ClientRepo{db: tx}
}

func (r *ClientRepo) Create(ctx context.Context, client *model.Client) error {
	data := map[string]interface{}{
		"id":               client.ID,
		"user_id":          client.UserID,
		"first_name":       client.FirstName,
		"last_name":        client.LastName,
		"gender":           client.Gender,
		"measurement_unit": client.MeasurementUnit,
		"email":            client.Email,
		"phone_number":     client.PhoneNumber,
		"measurements":     client.Measurements,
		"in_trash":         client.InTrash,
		"ctime":            client.Ctime,
		"mtime":            client.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("clients", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = execAffected(ctx, r.db, sqlStr, args)
	return err
}

func (r *ClientRepo) GetByID(ctx context.Context, userID, clientID string) (*model.Client, error) {
	sqlStr, args, err := builder.BuildSelect("clients", map[string]interface{}{"id": clientID, "user_id": userID}, clientColumns)
	if err != nil {
		return nil, err
	}
	var client model.Client
	if err := getOne(ctx, r.db, &client, sqlStr, args); err != nil {
		return nil, err
	}
	return &client, nil
}

func clientWhere(userID string, filter ClientFilter) map[string]interface{} {
	where := map[string]interface{}{"user_id": userID}
	if filter.InTrash != nil {
		where["in_trash"] = *filter.InTrash
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + term + "%"
		where["_custom_search"] = builder.Custom(
			"(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone_number) LIKE ?)",
			like, like, like, like,
		)
	}
	return where
}

func (r *ClientRepo) List(ctx context.Context, userID string, filter ClientFilter, sortBy string, limit, offset uint) ([]*model.Client, error) {
	where := clientWhere(userID, filter)
	orderBy, ok := clientOrderBy[sortBy]
	if !ok {
		orderBy = clientOrderBy[ClientSortAZ]
	}
	where["_orderby"] = orderBy
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("clients", where, clientColumns)
	if err != nil {
		return nil, err
	}
	clients := make([]*model.Client, 0)
	if err := selectAll(ctx, r.db, &clients, sqlStr, args); err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *ClientRepo) Count(ctx context.Context, userID string, filter ClientFilter) (int, error) {
	sqlStr, args, err := builder.BuildSelect("clients", clientWhere(userID, filter), []string{"COUNT(*)"})
	if err != nil {
		return 0, err
	}
	var count int
	if err := getOne(ctx, r.db, &count, sqlStr, args); err != nil {
		return 0, err
	}
	return count, nil
}

// Update writes the given columns. Callers pass column names from a fixed set.
func (r *ClientRepo) Update(ctx context.Context, userID, clientID string, update map[string]interface{}, mtime int64) error {
	data := make(map[string]interface{}, len(update)+1)
	for k, v := range update {
		data[k] = v
	}
	data["mtime"] = mtime
	sqlStr, args, err := builder.BuildUpdate("clients", map[string]interface{}{"id": clientID, "user_id": userID}, data)
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

// MoveToTrash soft-deletes the user's clients among ids and returns how many
// rows matched.
func (r *ClientRepo) MoveToTrash(ctx context.Context, userID string, ids []string, mtime int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	where := map[string]interface{}{"user_id": userID, "id in": stringArgs(ids)}
	sqlStr, args, err := builder.BuildUpdate("clients", where, map[string]interface{}{"in_trash": true, "mtime": mtime})
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, r.db, sqlStr, args)
}
