package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

const (
	UnitCentimeters = "centimeters"
	UnitInches      = "inches"
)

type Client struct {
	ID              string       `json:"id" db:"id"`
	UserID          string       `json:"-" db:"user_id"`
	FirstName       string       `json:"first_name" db:"first_name"`
	LastName        string       `json:"last_name" db:"last_name"`
	Gender          string       `json:"gender" db:"gender"`
	MeasurementUnit string       `json:"measurement_unit" db:"measurement_unit"`
	Email           string       `json:"email" db:"email"`
	PhoneNumber     string       `json:"phone_number" db:"phone_number"`
	Measurements    Measurements `json:"measurements" db:"measurements"`
	InTrash         bool         `json:"in_trash" db:"in_trash"`
	Ctime           int64        `json:"ctime" db:"ctime"`
	Mtime           int64        `json:"mtime" db:"mtime"`
}

func (c *Client) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// Measurements maps a measurement name to its value. Stored values are in
// centimeters; the column holds a JSON object.
type Measurements map[string]float64

func (m Measurements) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]float64(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *Measurements) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Measurements{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan measurements: unsupported type %T", src)
	}
	out := Measurements{}
	if len(raw) == 0 {
		*m = out
		return nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan measurements: %w", err)
	}
	*m = out
	return nil
}

// Order is always read joined with its client so the client name is at hand.
type Order struct {
	ID              string `json:"id" db:"id"`
	UserID          string `json:"-" db:"user_id"`
	ClientID        string `json:"client_id" db:"client_id"`
	Item            string `json:"item" db:"item"`
	Quantity        int    `json:"quantity" db:"quantity"`
	Notes           string `json:"notes" db:"notes"`
	IsDone          bool   `json:"is_done" db:"is_done"`
	DueDate         *int64 `json:"due_date" db:"due_date"`
	Ctime           int64  `json:"ctime" db:"ctime"`
	Mtime           int64  `json:"mtime" db:"mtime"`
	ClientFirstName string `json:"-" db:"client_first_name"`
	ClientLastName  string `json:"-" db:"client_last_name"`
	ClientName      string `json:"client_name" db:"-"`
	Overdue         bool   `json:"overdue" db:"-"`
}

// IsOverdue reports an open order whose due date has passed.
func (o *Order) IsOverdue(now int64) bool {
	return !o.IsDone && o.DueDate != nil && *o.DueDate < now
}
