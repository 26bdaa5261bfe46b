package entity

import "time"

// Entry is one recorded mutation outcome.
type Entry struct {
	ID        string    `json:"id" db:"id"`
	Action    string    `json:"action" db:"action"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Outcome   string    `json:"outcome" db:"outcome"`
	Message   string    `json:"message,omitempty" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
