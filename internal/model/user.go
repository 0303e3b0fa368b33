package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type User struct {
	ID                  string     `json:"id" db:"id"`
	Email               string     `json:"email" db:"email"`
	FirstName           string     `json:"first_name" db:"first_name"`
	LastName            string     `json:"last_name" db:"last_name"`
	PhoneNumber         string     `json:"phone_number" db:"phone_number"`
	Profession          string     `json:"profession" db:"profession"`
	BusinessName        string     `json:"business_name" db:"business_name"`
	BusinessAddress     string     `json:"business_address" db:"business_address"`
	Skills              StringList `json:"skills" db:"skills"`
	BusinessImage       string     `json:"business_image" db:"business_image"`
	BusinessImageKey    string     `json:"-" db:"business_image_key"`
	HasOnboarded        bool       `json:"has_onboarded" db:"has_onboarded"`
	ToBeDeleted         bool       `json:"to_be_deleted" db:"to_be_deleted"`
	DeletionRequestedAt *int64     `json:"date_requested_for_deletion,omitempty" db:"deletion_requested_at"`
	Ctime               int64      `json:"ctime" db:"ctime"`
	Mtime               int64      `json:"mtime" db:"mtime"`
}

// DisplayName falls back to the email when no name was provided.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// StringList is stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan string list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan string list: %w", err)
	}
	*l = out
	return nil
}
