package model

type Token struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	Token     string `json:"-" db:"token"`
	TokenType string `json:"token_type" db:"token_type"`
	ExpiresAt int64  `json:"expires_at" db:"expires_at"`
	Ctime     int64  `json:"ctime" db:"ctime"`
}
