// Package checkout implements the cart-to-order transaction: validation of
// the ephemeral cart against live product records, price-at-purchase
// snapshotting, atomic order creation with stock decrement, and the
// post-commit confirmation notification.
package checkout

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/techkart/laptop-store/internal/domain/cart"
	"github.com/techkart/laptop-store/internal/domain/order"
	"github.com/techkart/laptop-store/internal/domain/product"
	"github.com/techkart/laptop-store/internal/notify"
)

// ValidationError reports malformed or missing checkout input. It is always
// raised before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ProductNotFoundError indicates a cart line references a product that no
// longer exists in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Request is the checkout input. Items come from the session cart; the cart
// snapshot itself is never consulted for price or stock.
type Request struct {
	UserID          string
	Items           []cart.Item
	ShippingAddress string
	CustomerEmail   string
}

// Result reports a committed checkout. EmailSent is independent of order
// placement: a failed confirmation send never undoes the order.
type Result struct {
	OrderID   string
	Total     decimal.Decimal
	EmailSent bool
}

// Service is the checkout engine.
type Service struct {
	products    product.Repository
	orders      order.Repository
	notifier    notify.Notifier
	sendTimeout time.Duration
	now         func() time.Time
}

// NewService creates a checkout Service with the required collaborators.
func NewService(
	products product.Repository,
	orders order.Repository,
	notifier notify.Notifier,
	sendTimeout time.Duration,
) *Service {
	return &Service{
		products:    products,
		orders:      orders,
		notifier:    notifier,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

// Checkout converts the cart items into a durable order.
//
// The live product record is re-fetched for every line: stock may have moved
// since add-to-cart, so authority is always the current row, never the cart
// snapshot. Stock validation failures abort the entire checkout with nothing
// written. On success the order, its lines, and the stock decrements commit
// as one transaction, and only then is the confirmation email attempted.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// Batch fetch the live products for all cart lines.
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Verify existence and stock for every line before touching anything.
	// All failing products are reported together.
	var outOfStock []string
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if p.Stock < item.Quantity {
			outOfStock = append(outOfStock, item.ProductID)
		}
	}
	if len(outOfStock) > 0 {
		return nil, &order.InsufficientStockError{ProductIDs: outOfStock}
	}

	// Freeze per-line prices from the freshly fetched products and sum the
	// authoritative total.
	o := &order.Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Status:          order.StatusPending,
		CreatedAt:       s.now().UTC(),
		ShippingAddress: req.ShippingAddress,
		CustomerEmail:   req.CustomerEmail,
		Lines:           make([]order.Line, len(req.Items)),
	}
	total := decimal.Zero
	for i, item := range req.Items {
		unit := product.EffectiveUnitPrice(productMap[item.ProductID])
		o.Lines[i] = order.Line{
			ID:              uuid.New().String(),
			OrderID:         o.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: unit,
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	o.Total = total.Round(2)

	// Atomic commit: order, lines, and stock decrements all-or-nothing. The
	// repository re-guards stock inside the transaction, so a concurrent
	// checkout that won the race surfaces here as InsufficientStockError.
	if err := s.orders.CreateWithStockDecrement(ctx, o); err != nil {
		var stockErr *order.InsufficientStockError
		if errors.As(err, &stockErr) {
			return nil, stockErr
		}
		return nil, errors.Wrap(err, "create order")
	}

	// The order is durable; the confirmation is best-effort from here on.
	sent := true
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	if err := s.notifier.Send(sendCtx, notify.OrderConfirmation(o.CustomerEmail, o.ID, o.Total)); err != nil {
		sent = false
		zctx.From(ctx).Warn("order confirmation failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}

	return &Result{OrderID: o.ID, Total: o.Total, EmailSent: sent}, nil
}

func validate(req Request) error {
	if len(req.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "cart is empty"}
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return &ValidationError{Field: "items", Reason: fmt.Sprintf("quantity must be at least 1 for product %s", item.ProductID)}
		}
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return &ValidationError{Field: "shipping_address", Reason: "shipping address is required"}
	}
	email := strings.TrimSpace(req.CustomerEmail)
	if email == "" {
		return &ValidationError{Field: "customer_email", Reason: "customer email is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &ValidationError{Field: "customer_email", Reason: "customer email is malformed"}
	}
	return nil
}
