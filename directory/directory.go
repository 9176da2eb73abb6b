package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no account matches the username.
var ErrNotFound = errors.New("user not found")

// Record is one user account as the login flow sees it.
type Record struct {
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
}

// Directory resolves usernames to account records.
type Directory interface {
	// GetByUsername returns the record for a username, or ErrNotFound.
	// Lookup is case-insensitive.
	GetByUsername(ctx context.Context, username string) (Record, error)
}
