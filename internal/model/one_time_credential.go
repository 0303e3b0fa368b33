package model

// OneTimeCredential is a single login attempt. Code and Token address the
// same record; either one redeems it once.
type OneTimeCredential struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	Code      string `json:"-" db:"code"`
	Token     string `json:"-" db:"token"`
	ExpiresAt int64  `json:"expires_at" db:"expires_at"`
	UsedAt    *int64 `json:"used_at,omitempty" db:"used_at"`
	Ctime     int64  `json:"ctime" db:"ctime"`
}

func (c *OneTimeCredential) Valid(now int64) bool {
	return c.UsedAt == nil && c.ExpiresAt > now
}
