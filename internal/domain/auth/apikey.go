package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no API key matches a hash.
var ErrNotFound = errors.New("api key not found")

// Role gates what a key may do. Admin keys can mutate the catalog and manage
// orders; user keys can browse, hold a cart, check out, and read their own
// orders.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity holds the resolved identity for a validated API key.
type Identity struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Role    Role
}

// Admin reports whether the identity may perform admin-only mutations.
func (i *Identity) Admin() bool {
	return i.Role == RoleAdmin
}

// Repository provides API key persistence.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Identity, error)
	Create(ctx context.Context, id *Identity) error
}
