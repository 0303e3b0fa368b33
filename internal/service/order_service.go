package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/repo"
)

const (
	defaultOrdersPerPage = 20
	maxOrderItemLength   = 255
	maxOrderNotesLength  = 2000
)

// OrderInput carries order fields. A nil field is left as is on update. A
// zero DueDate clears the due date.
type OrderInput struct {
	ClientID *string `json:"client_id"`
	Item     *string `json:"item"`
	Quantity *int    `json:"quantity"`
	Notes    *string `json:"notes"`
	IsDone   *bool   `json:"is_done"`
	DueDate  *int64  `json:"due_date"`
}

type OrderQuery struct {
	Status   string
	ClientID string
	Search   string
	SortBy   string
	Page     PageRequest
}

type OrderPage struct {
	Orders     []*model.Order `json:"orders"`
	Pagination Pagination     `json:"pagination"`
}

type OrderService struct {
	db      *sqlx.DB
	orders  *repo.OrderRepo
	clients *repo.ClientRepo
	now     func() time.Time
}

func NewOrderService(db *sqlx.DB, orders *repo.OrderRepo, clients *repo.ClientRepo, opts ...Option) *OrderService {
	o := applyOptions(opts)
	return &OrderService{db: db, orders: orders, clients: clients, now: o.now}
}

func (s *OrderService) decorate(orders ...*model.Order) {
	now := s.now().Unix()
	for _, o := range orders {
		o.ClientName = strings.TrimSpace(o.ClientFirstName + " " + o.ClientLastName)
		o.Overdue = o.IsOverdue(now)
	}
}

func validOrderStatus(status string) bool {
	switch status {
	case "", repo.OrderStatusPending, repo.OrderStatusCompleted, repo.OrderStatusOverdue, repo.OrderStatusUpcoming:
		return true
	}
	return false
}

func (s *OrderService) List(ctx context.Context, userID string, q OrderQuery) (*OrderPage, error) {
	if !validOrderStatus(q.Status) {
		return nil, appErr.Invalid("unknown status %q", q.Status)
	}
	page := q.Page.normalize(defaultOrdersPerPage)
	filter := repo.OrderFilter{Status: q.Status, ClientID: q.ClientID, Search: q.Search, Now: s.now().Unix()}
	total, err := s.orders.Count(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	limit, offset := page.limitOffset()
	orders, err := s.orders.List(ctx, userID, filter, q.SortBy, limit, offset)
	if err != nil {
		return nil, err
	}
	s.decorate(orders...)
	return &OrderPage{Orders: orders, Pagination: newPagination(page, total, len(orders))}, nil
}

func (s *OrderService) Get(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	s.decorate(order)
	return order, nil
}

// applyOrderInput validates in and writes it onto order. It returns the
// changed columns.
func applyOrderInput(order *model.Order, in OrderInput) (map[string]interface{}, error) {
	update := map[string]interface{}{}
	if in.Item != nil {
		item := strings.TrimSpace(*in.Item)
		if item == "" || utf8.RuneCountInString(item) > maxOrderItemLength {
			return nil, appErr.Invalid("item must be 1-%d characters", maxOrderItemLength)
		}
		order.Item = item
		update["item"] = item
	}
	if in.Quantity != nil {
		if *in.Quantity < 1 {
			return nil, appErr.Invalid("quantity must be at least 1")
		}
		order.Quantity = *in.Quantity
		update["quantity"] = *in.Quantity
	}
	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		if utf8.RuneCountInString(notes) > maxOrderNotesLength {
			return nil, appErr.Invalid("notes must be at most %d characters", maxOrderNotesLength)
		}
		order.Notes = notes
		update["notes"] = notes
	}
	if in.IsDone != nil {
		order.IsDone = *in.IsDone
		update["is_done"] = *in.IsDone
	}
	if in.DueDate != nil {
		if *in.DueDate < 0 {
			return nil, appErr.Invalid("due_date must be a unix timestamp")
		}
		if *in.DueDate == 0 {
			order.DueDate = nil
		} else {
			due := *in.DueDate
			order.DueDate = &due
		}
		update["due_date"] = order.DueDate
	}
	return update, nil
}

func newOrder(userID, clientID string, in OrderInput, now int64) (*model.Order, error) {
	if in.Item == nil {
		return nil, appErr.Invalid("item is required")
	}
	order := &model.Order{
		ID:       newID(),
		UserID:   userID,
		ClientID: clientID,
		Quantity: 1,
		Ctime:    now,
		Mtime:    now,
	}
	if _, err := applyOrderInput(order, in); err != nil {
		return nil, err
	}
	return order, nil
}

// insertOrders writes orders for clients owned by userID inside tx. A client
// id that is not the user's fails the whole batch.
func insertOrders(ctx context.Context, tx dbutil.DBTX, userID, defaultClientID string, inputs []OrderInput, now int64) ([]string, error) {
	clients := repo.NewClientRepo(tx)
	orders := repo.NewOrderRepo(tx)
	known := map[string]bool{}
	ids := make([]string, 0, len(inputs))
	for i, in := range inputs {
		clientID := defaultClientID
		if clientID == "" {
			if in.ClientID == nil || *in.ClientID == "" {
				return nil, appErr.Invalid("orders[%d]: client_id is required", i)
			}
			clientID = *in.ClientID
		}
		if !known[clientID] {
			if _, err := clients.GetByID(ctx, userID, clientID); err != nil {
				return nil, err
			}
			known[clientID] = true
		}
		order, err := newOrder(userID, clientID, in, now)
		if err != nil {
			return nil, err
		}
		if err := orders.Create(ctx, order); err != nil {
			return nil, err
		}
		ids = append(ids, order.ID)
	}
	return ids, nil
}

func (s *OrderService) reload(ctx context.Context, userID string, ids []string) ([]*model.Order, error) {
	out := make([]*model.Order, 0, len(ids))
	for _, id := range ids {
		order, err := s.Get(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, nil
}

// Create stores a batch of orders, each naming its client. Nothing is stored
// unless every order is valid.
func (s *OrderService) Create(ctx context.Context, userID string, inputs []OrderInput) ([]*model.Order, error) {
	return s.create(ctx, userID, "", inputs)
}

func (s *OrderService) CreateForClient(ctx context.Context, userID, clientID string, inputs []OrderInput) ([]*model.Order, error) {
	return s.create(ctx, userID, clientID, inputs)
}

func (s *OrderService) create(ctx context.Context, userID, clientID string, inputs []OrderInput) ([]*model.Order, error) {
	if len(inputs) == 0 {
		return nil, appErr.Invalid("orders must not be empty")
	}
	var ids []string
	err := dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		var err error
		ids, err = insertOrders(ctx, tx, userID, clientID, inputs, s.now().Unix())
		return err
	})
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("orders created", zap.String("user_id", userID), zap.Int("count", len(ids)))
	return s.reload(ctx, userID, ids)
}

func (s *OrderService) Update(ctx context.Context, userID, orderID string, in OrderInput) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	update, err := applyOrderInput(order, in)
	if err != nil {
		return nil, err
	}
	if in.ClientID != nil && *in.ClientID != order.ClientID {
		if _, err := s.clients.GetByID(ctx, userID, *in.ClientID); err != nil {
			return nil, err
		}
		update["client_id"] = *in.ClientID
	}
	if len(update) > 0 {
		if err := s.orders.Update(ctx, userID, orderID, update, s.now().Unix()); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID, orderID)
}

func (s *OrderService) MarkDone(ctx context.Context, userID, orderID string) (*model.Order, error) {
	return s.setDone(ctx, userID, orderID, true)
}

func (s *OrderService) MarkPending(ctx context.Context, userID, orderID string) (*model.Order, error) {
	return s.setDone(ctx, userID, orderID, false)
}

func (s *OrderService) setDone(ctx context.Context, userID, orderID string, done bool) (*model.Order, error) {
	if err := s.orders.Update(ctx, userID, orderID, map[string]interface{}{"is_done": done}, s.now().Unix()); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, orderID)
}

func (s *OrderService) Delete(ctx context.Context, userID, orderID string) error {
	n, err := s.orders.DeleteByIDs(ctx, userID, []string{orderID})
	if err != nil {
		return err
	}
	if n == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// BulkDelete removes the user's orders among ids and returns how many went.
// Ids of other users are skipped.
func (s *OrderService) BulkDelete(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := validateUUIDs(ids); err != nil {
		return 0, err
	}
	return s.orders.DeleteByIDs(ctx, userID, ids)
}

func validateUUIDs(ids []string) error {
	if len(ids) == 0 {
		return appErr.Invalid("ids must be a non-empty array")
	}
	var bad []string
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		return appErr.Invalid("invalid id format: %s", strings.Join(bad, ", "))
	}
	return nil
}
