package db

import (
	"time"

	"github.com/google/uuid"
)

// User is an account of the hosted tier.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never serialize to JSON
	PasswordSet  bool      `json:"password_set" db:"password_set"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Charge is the outcome of ChargeAction.
type Charge struct {
	// Allowed is false when the daily limit was already reached.
	Allowed bool
	// Charged is false for a repeated action id (or a refused call).
	Charged bool
	Used    int
	Limit   int
	// ResetsAt is the next UTC midnight.
	ResetsAt time.Time
}

// Remaining is the number of actions left today.
func (c Charge) Remaining() int {
	if c.Used >= c.Limit {
		return 0
	}
	return c.Limit - c.Used
}

// Feedback is a thumbs-up/down rating from a client.
type Feedback struct {
	UserHash string
	Rating   int
	Comment  string
	Metadata map[string]any
}

// ClientLog is an error report sent by a client.
type ClientLog struct {
	UserHash   string
	Level      string
	Event      string
	Message    string
	Metadata   map[string]any
	AppVersion string
}
