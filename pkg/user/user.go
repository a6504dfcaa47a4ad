package user

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no user exists for the given identifier.
var ErrNotFound = errors.New("user not found")

// User is a registered bot user. ID is the stable external identity
// (the Telegram user id rendered as a string); ChatID is the transport
// address notifications are routed to.
type User struct {
	ID          string    `json:"id"`
	ChatID      int64     `json:"chat_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DisplayName string    `json:"display_name,omitempty"` // user-settable, empty = unset
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Name resolves the name shown for the user: the self-chosen display
// name when set, otherwise the first name captured at registration.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.FirstName
}

// Store is the contract for user persistence.
type Store interface {
	// Upsert creates the user on first contact or refreshes the base
	// identity fields. It never overwrites an existing display name.
	Upsert(ctx context.Context, id string, chatID int64, firstName, lastName string) (*User, error)

	// Get returns a user by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*User, error)

	// SetDisplayName overwrites the user's display name, or ErrNotFound.
	SetDisplayName(ctx context.Context, id, name string) (*User, error)

	// List returns all users.
	List(ctx context.Context) ([]User, error)

	// EnsureTable creates the users table if it doesn't exist.
	EnsureTable(ctx context.Context) error
}
