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
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusOverdue   = "overdue"
	OrderStatusUpcoming  = "upcoming"

	OrderSortDueDate     = "due_date"
	OrderSortDueDateAsc  = "due_date_asc"
	OrderSortDueDateDesc = "due_date_desc"
	OrderSortLastUpdated = "last_updated"
	OrderSortAZ          = "a-z"
	OrderSortZA          = "z-a"
)

const orderTable = "orders o JOIN clients c ON c.id = o.client_id"

var orderColumns = []string{
	"o.id", "o.user_id", "o.client_id", "o.item", "o.quantity", "o.notes", "o.is_done",
	"o.due_date", "o.ctime", "o.mtime",
	"c.first_name AS client_first_name", "c.last_name AS client_last_name",
}

var orderOrderBy = map[string]string{
	OrderSortDueDate:     "CASE WHEN o.due_date IS NULL THEN 1 ELSE 0 END, o.due_date ASC, o.ctime ASC",
	OrderSortDueDateAsc:  "CASE WHEN o.due_date IS NULL THEN 1 ELSE 0 END, o.due_date ASC, o.ctime ASC",
	OrderSortDueDateDesc: "CASE WHEN o.due_date IS NULL THEN 1 ELSE 0 END, o.due_date DESC, o.ctime ASC",
	OrderSortLastUpdated: "o.mtime DESC",
	OrderSortAZ:          "LOWER(o.item) ASC",
	OrderSortZA:          "LOWER(o.item) DESC",
}

// OrderFilter narrows an order listing. Status is one of the OrderStatus
// values or empty; overdue and upcoming are judged against Now.
type OrderFilter struct {
	Status   string
	ClientID string
	Search   string
	Now      int64
}

type OrderRepo struct {
	db dbutil.DBTX
}

func NewOrderRepo(db dbutil.DBTX) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) WithTx(tx dbutil.DBTX) *OrderRepo {
	return &OrderRepo{db: tx}
}

func (r *OrderRepo) Create(ctx context.Context, order *model.Order) error {
	data := map[string]interface{}{
		"id":        order.ID,
		"user_id":   order.UserID,
		"client_id": order.ClientID,
		"item":      order.Item,
		"quantity":  order.Quantity,
		"notes":     order.Notes,
		"is_done":   order.IsDone,
		"due_date":  order.DueDate,
		"ctime":     order.Ctime,
		"mtime":     order.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("orders", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = execAffected(ctx, r.db, sqlStr, args)
	return err
}

func (r *OrderRepo) GetByID(ctx context.Context, userID, orderID string) (*model.Order, error) {
	sqlStr, args, err := builder.BuildSelect(orderTable, map[string]interface{}{"o.id": orderID, "o.user_id": userID}, orderColumns)
	if err != nil {
		return nil, err
	}
	var order model.Order
	if err := getOne(ctx, r.db, &order, sqlStr, args); err != nil {
		return nil, err
	}
	return &order, nil
}

func orderWhere(userID string, filter OrderFilter) map[string]interface{} {
	where := map[string]interface{}{"o.user_id": userID}
	switch filter.Status {
	case OrderStatusPending:
		where["o.is_done"] = false
	case OrderStatusCompleted:
		where["o.is_done"] = true
	case OrderStatusOverdue:
		where["o.is_done"] = false
		where["o.due_date <"] = filter.Now
	case OrderStatusUpcoming:
		where["o.is_done"] = false
		where["o.due_date >="] = filter.Now
	}
	if filter.ClientID != "" {
		where["o.client_id"] = filter.ClientID
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + term + "%"
		where["_custom_search"] = builder.Custom(
			"(LOWER(o.item) LIKE ? OR LOWER(o.notes) LIKE ? OR LOWER(c.first_name) LIKE ? OR LOWER(c.last_name) LIKE ? OR LOWER(c.email) LIKE ? OR LOWER(c.phone_number) LIKE ?)",
			like, like, like, like, like, like,
		)
	}
	return where
}

func (r *OrderRepo) List(ctx context.Context, userID string, filter OrderFilter, sortBy string, limit, offset uint) ([]*model.Order, error) {
	where := orderWhere(userID, filter)
	orderBy, ok := orderOrderBy[sortBy]
	if !ok {
		orderBy = orderOrderBy[OrderSortDueDate]
	}
	where["_orderby"] = orderBy + ", o.id ASC"
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect(orderTable, where, orderColumns)
	if err != nil {
		return nil, err
	}
	orders := make([]*model.Order, 0)
	if err := selectAll(ctx, r.db, &orders, sqlStr, args); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepo) Count(ctx context.Context, userID string, filter OrderFilter) (int, error) {
	sqlStr, args, err := builder.BuildSelect(orderTable, orderWhere(userID, filter), []string{"COUNT(*)"})
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
func (r *OrderRepo) Update(ctx context.Context, userID, orderID string, update map[string]interface{}, mtime int64) error {
	data := make(map[string]interface{}, len(update)+1)
	for k, v := range update {
		data[k] = v
	}
	data["mtime"] = mtime
	sqlStr, args, err := builder.BuildUpdate("orders", map[string]interface{}{"id": orderID, "user_id": userID}, data)
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

// DeleteByIDs removes the user's orders among ids and returns how many went.
func (r *OrderRepo) DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sqlStr, args, err := builder.BuildDelete("orders", map[string]interface{}{"user_id": userID, "id in": stringArgs(ids)})
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, r.db, sqlStr, args)
}
