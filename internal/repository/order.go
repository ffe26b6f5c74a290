package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techkart/laptop-store/internal/domain/order"
)

const (
	// Conditional decrement: the WHERE clause is the in-transaction stock
	// guard. Zero rows affected means the live stock cannot cover the line.
	decrementStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	createOrderSQL = `INSERT INTO orders (id, user_id, total, status, created_at, shipping_address, customer_email, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)`

	createOrderLineSQL = `INSERT INTO order_lines (id, order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4, $5)`

	orderColumns = `id, user_id, total, status, created_at, shipping_address, customer_email, is_deleted`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderLinesSQL = `SELECT id, order_id, product_id, quantity, price_at_purchase
		FROM order_lines WHERE order_id = $1 ORDER BY id`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 AND NOT is_deleted ORDER BY created_at DESC`

	listActiveOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE NOT is_deleted ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	softDeleteOrderSQL = `UPDATE orders SET is_deleted = TRUE WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithStockDecrement persists the order, its lines, and the stock
// decrements as one transaction. Stock is re-guarded row by row via a
// conditional UPDATE; any line whose guard fails aborts the whole transaction
// with an *order.InsufficientStockError naming every failing product, so a
// concurrent checkout that lost the race fails safely instead of driving
// stock negative.
func (r *OrderRepository) CreateWithStockDecrement(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var outOfStock []string
	for _, line := range o.Lines {
		tag, err := tx.Exec(ctx, decrementStockSQL, line.ProductID, line.Quantity)
		if err != nil {
			return errors.Wrapf(err, "decrement stock for product %q", line.ProductID)
		}
		if tag.RowsAffected() == 0 {
			outOfStock = append(outOfStock, line.ProductID)
		}
	}
	if len(outOfStock) > 0 {
		return &order.InsufficientStockError{ProductIDs: outOfStock}
	}

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.Total, string(o.Status), o.CreatedAt, o.ShippingAddress, o.CustomerEmail,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}

	for _, line := range o.Lines {
		_, err := tx.Exec(ctx, createOrderLineSQL,
			line.ID, line.OrderID, line.ProductID, line.Quantity, line.PriceAtPurchase,
		)
		if err != nil {
			return errors.Wrapf(err, "create order line %q", line.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// GetByID returns the order with its lines. Soft-deleted orders are included:
// direct lookups serve audit and history.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	lineRows, err := r.pool.Query(ctx, getOrderLinesSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get lines for order %q", id)
	}
	o.Lines, err = pgx.CollectRows(lineRows, scanOrderLine)
	if err != nil {
		return nil, errors.Wrapf(err, "get lines for order %q", id)
	}

	return &o, nil
}

// ListByUser returns the non-deleted order history for one user, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders for user %q", userID)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListActive returns all orders that have not been soft-deleted, newest first.
func (r *OrderRepository) ListActive(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listActiveOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus sets the order status. Transition legality is the service's
// responsibility; the repository only persists.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, next order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(next))
	if err != nil {
		return errors.Wrapf(err, "update status of order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// SoftDelete marks the order deleted without removing the row or its lines.
func (r *OrderRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, softDeleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "soft delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Total, &status, &o.CreatedAt,
		&o.ShippingAddress, &o.CustomerEmail, &o.Deleted,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.PriceAtPurchase)
	return l, err
}
