package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/repo"
)

const (
	defaultClientsPerPage = 20
	maxClientPhoneLength  = 20
)

var genders = map[string]string{"male": "Male", "female": "Female"}

// ClientInput carries client fields. A nil field is left as is on update.
// Measurements are given in the client's unit; a null value removes one.
// Orders are only read on create.
type ClientInput struct {
	FirstName       *string             `json:"first_name"`
	LastName        *string             `json:"last_name"`
	Gender          *string             `json:"gender"`
	MeasurementUnit *string             `json:"measurement_unit"`
	Email           *string             `json:"email"`
	PhoneNumber     *string             `json:"phone_number"`
	Measurements    map[string]*float64 `json:"measurements"`
	InTrash         *bool               `json:"in_trash"`
	Orders          []OrderInput        `json:"orders"`
}

type ClientQuery struct {
	Search  string
	InTrash *bool
	SortBy  string
	Page    PageRequest
}

type ClientPage struct {
	Clients    []*model.Client `json:"clients"`
	Pagination Pagination      `json:"pagination"`
}

// ClientDetail is a client with its orders and order counts.
type ClientDetail struct {
	*model.Client
	Orders          []*model.Order `json:"orders"`
	TotalOrders     int            `json:"total_orders"`
	PendingOrders   int            `json:"pending_orders"`
	CompletedOrders int            `json:"completed_orders"`
}

type ClientService struct {
	db      *sqlx.DB
	clients *repo.ClientRepo
	orders  *OrderService
	now     func() time.Time
}

func NewClientService(db *sqlx.DB, clients *repo.ClientRepo, orders *OrderService, opts ...Option) *ClientService {
	o := applyOptions(opts)
	return &ClientService{db: db, clients: clients, orders: orders, now: o.now}
}

func validName(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if n := utf8.RuneCountInString(value); n < 2 || n > 100 {
		return "", appErr.Invalid("%s must be 2-100 characters", field)
	}
	return value, nil
}

// applyClientInput validates in and writes it onto client. It returns the
// changed columns.
func applyClientInput(client *model.Client, in ClientInput) (map[string]interface{}, error) {
	update := map[string]interface{}{}
	if in.FirstName != nil {
		name, err := validName("first_name", *in.FirstName)
		if err != nil {
			return nil, err
		}
		client.FirstName = name
		update["first_name"] = name
	}
	if in.LastName != nil {
		name, err := validName("last_name", *in.LastName)
		if err != nil {
			return nil, err
		}
		client.LastName = name
		update["last_name"] = name
	}
	if in.Gender != nil {
		gender, ok := genders[strings.ToLower(strings.TrimSpace(*in.Gender))]
		if !ok {
			return nil, appErr.Invalid("gender must be Male or Female")
		}
		client.Gender = gender
		update["gender"] = gender
	}
	if in.MeasurementUnit != nil {
		unit := strings.ToLower(strings.TrimSpace(*in.MeasurementUnit))
		if unit != model.UnitCentimeters && unit != model.UnitInches {
			return nil, appErr.Invalid("measurement_unit must be inches or centimeters")
		}
		client.MeasurementUnit = unit
		update["measurement_unit"] = unit
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email != "" {
			normalized, err := normalizeEmail(email)
			if err != nil {
				return nil, appErr.Invalid("email is not a valid address")
			}
			email = normalized
		}
		client.Email = email
		update["email"] = email
	}
	if in.PhoneNumber != nil {
		phone := strings.TrimSpace(*in.PhoneNumber)
		if utf8.RuneCountInString(phone) > maxClientPhoneLength {
			return nil, appErr.Invalid("phone_number must be at most %d characters", maxClientPhoneLength)
		}
		client.PhoneNumber = phone
		update["phone_number"] = phone
	}
	if in.Measurements != nil {
		merged, err := mergeMeasurements(client.Measurements, in.Measurements, client.MeasurementUnit)
		if err != nil {
			return nil, err
		}
		client.Measurements = merged
		update["measurements"] = merged
	}
	if in.InTrash != nil {
		client.InTrash = *in.InTrash
		update["in_trash"] = *in.InTrash
	}
	return update, nil
}

func present(client *model.Client) *model.Client {
	client.Measurements = displayMeasurements(client.Measurements, client.MeasurementUnit)
	return client
}

// Create stores the client together with any orders given in the same
// request. Either all of it is stored or none.
func (s *ClientService) Create(ctx context.Context, userID string, in ClientInput) (*ClientDetail, error) {
	if in.FirstName == nil || in.LastName == nil || in.Gender == nil {
		return nil, appErr.Invalid("first_name, last_name and gender are required")
	}
	now := s.now().Unix()
	client := &model.Client{
		ID:              newID(),
		UserID:          userID,
		MeasurementUnit: model.UnitCentimeters,
		Measurements:    model.Measurements{},
		Ctime:           now,
		Mtime:           now,
	}
	if _, err := applyClientInput(client, in); err != nil {
		return nil, err
	}
	err := dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		if err := s.clients.WithTx(tx).Create(ctx, client); err != nil {
			return err
		}
		if len(in.Orders) == 0 {
			return nil
		}
		_, err := insertOrders(ctx, tx, userID, client.ID, in.Orders, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("client created",
		zap.String("user_id", userID), zap.String("client_id", client.ID), zap.Int("orders", len(in.Orders)))
	return s.Get(ctx, userID, client.ID)
}

func (s *ClientService) Get(ctx context.Context, userID, clientID string) (*ClientDetail, error) {
	client, err := s.clients.GetByID(ctx, userID, clientID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.orders.List(ctx, userID, repo.OrderFilter{ClientID: clientID}, repo.OrderSortDueDate, 0, 0)
	if err != nil {
		return nil, err
	}
	s.orders.decorate(orders...)
	detail := &ClientDetail{Client: present(client), Orders: orders, TotalOrders: len(orders)}
	for _, o := range orders {
		if o.IsDone {
			detail.CompletedOrders++
		} else {
			detail.PendingOrders++
		}
	}
	return detail, nil
}

func (s *ClientService) List(ctx context.Context, userID string, q ClientQuery) (*ClientPage, error) {
	page := q.Page.normalize(defaultClientsPerPage)
	filter := repo.ClientFilter{Search: q.Search, InTrash: q.InTrash}
	total, err := s.clients.Count(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	limit, offset := page.limitOffset()
	clients, err := s.clients.List(ctx, userID, filter, q.SortBy, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		present(c)
	}
	return &ClientPage{Clients: clients, Pagination: newPagination(page, total, len(clients))}, nil
}

func (s *ClientService) Update(ctx context.Context, userID, clientID string, in ClientInput) (*ClientDetail, error) {
	client, err := s.clients.GetByID(ctx, userID, clientID)
	if err != nil {
		return nil, err
	}
	update, err := applyClientInput(client, in)
	if err != nil {
		return nil, err
	}
	if len(update) > 0 {
		if err := s.clients.Update(ctx, userID, clientID, update, s.now().Unix()); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID, clientID)
}

// BulkTrash moves the user's clients among ids to the trash and returns how
// many matched. Ids of other users are skipped.
func (s *ClientService) BulkTrash(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := validateUUIDs(ids); err != nil {
		return 0, err
	}
	n, err := s.clients.MoveToTrash(ctx, userID, ids, s.now().Unix())
	if err != nil {
		return 0, err
	}
	logutil.GetLogger(ctx).Info("clients moved to trash", zap.String("user_id", userID), zap.Int64("count", n))
	return n, nil
}
