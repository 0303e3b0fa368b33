package model

type WaitlistEntry struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
	Ctime int64  `json:"ctime" db:"ctime"`
}
