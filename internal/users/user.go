// Package users stores Wanderlate accounts in Postgres.
package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Create when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Account types.
const (
	AccountTraveler = "traveler"
	AccountHost     = "host"
)

// ProviderEmail marks accounts that sign in with email and password.
const ProviderEmail = "email"

// User is one account row. PasswordHash is empty for accounts created
// through an external login provider.
type User struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	Phone         string
	BirthDate     time.Time
	Country       string
	Language      string
	Currency      string
	AccountType   string
	PasswordHash  string
	LoginProvider string
	IsActive      bool
	CreatedAt     time.Time
}

// Repository is the account lookup the auth flows depend on.
type Repository interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
