package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a laptop in the catalog.
type Product struct {
	ID          string
	Brand       string
	Model       string
	Specs       string
	Price       decimal.Decimal
	Discount    decimal.Decimal // percentage, 0-100
	Promotion   string          // optional promotion tag, empty when not promoted
	Stock       int
	Description string
	Image       string // optional image path, relative to the image base URL
}

var hundred = decimal.NewFromInt(100)

// EffectiveUnitPrice returns the price of a single unit after the product's
// percentage discount, rounded to 2 decimal places. Both the cart display
// subtotal and the order-line price snapshot go through this function so the
// two can never diverge.
func EffectiveUnitPrice(p Product) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(p.Discount.Div(hundred))
	return p.Price.Mul(factor).Round(2)
}

// Validate reports the first structural problem with the product fields,
// or nil when the product is storable.
func (p Product) Validate() error {
	if p.Brand == "" {
		return errors.New("brand is required")
	}
	if p.Model == "" {
		return errors.New("model is required")
	}
	if !p.Price.IsPositive() {
		return errors.New("price must be positive")
	}
	if p.Discount.IsNegative() || p.Discount.GreaterThan(hundred) {
		return errors.New("discount must be between 0 and 100")
	}
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	return nil
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListPromoted(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
