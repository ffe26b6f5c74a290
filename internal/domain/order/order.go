package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// InsufficientStockError reports the products whose live stock could not cover
// the requested quantities. The whole checkout is aborted when it occurs.
type InsufficientStockError struct {
	ProductIDs []string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for products: %s", strings.Join(e.ProductIDs, ", "))
}

// Order is the durable record of a completed purchase. Total and lines are
// frozen at creation; afterwards only the status and the soft-delete flag
// change.
type Order struct {
	ID              string
	UserID          string
	Total           decimal.Decimal
	Status          Status
	CreatedAt       time.Time
	ShippingAddress string
	// CustomerEmail is the notification address supplied at checkout. It is
	// intentionally independent of the account's login email.
	CustomerEmail string
	Deleted       bool
	Lines         []Line
}

// Line is one product-quantity-price entry within an order. ProductID is a
// weak reference: the product may be edited or deleted later without
// affecting the recorded line.
type Line struct {
	ID              string
	OrderID         string
	ProductID       string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	// CreateWithStockDecrement persists the order and its lines and decrements
	// each product's stock by the purchased quantity, all inside a single
	// transaction. When any product's stock cannot cover its line, nothing is
	// written and an *InsufficientStockError is returned.
	CreateWithStockDecrement(ctx context.Context, o *Order) error

	// GetByID returns the order with its lines. Soft-deleted orders are still
	// addressable here for audit.
	GetByID(ctx context.Context, id string) (*Order, error)

	ListByUser(ctx context.Context, userID string) ([]Order, error)

	// ListActive returns all orders that have not been soft-deleted.
	ListActive(ctx context.Context) ([]Order, error)

	UpdateStatus(ctx context.Context, id string, next Status) error
	SoftDelete(ctx context.Context, id string) error
}
