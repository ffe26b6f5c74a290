package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/techkart/laptop-store/internal/notify"
)

// Service implements the admin order workflows: listing, status transitions,
// and soft deletion. Status changes trigger a best-effort notification to the
// order's customer email.
type Service struct {
	orders      Repository
	notifier    notify.Notifier
	sendTimeout time.Duration
}

// NewService creates an order Service.
func NewService(orders Repository, notifier notify.Notifier, sendTimeout time.Duration) *Service {
	return &Service{
		orders:      orders,
		notifier:    notifier,
		sendTimeout: sendTimeout,
	}
}

// UpdateStatusResult reports a committed status change and whether the
// customer notification went out. EmailSent is independent of success: the
// transition stands even when the send fails.
type UpdateStatusResult struct {
	Order     *Order
	EmailSent bool
}

// UpdateStatus moves the order to next after validating the transition
// against the lifecycle, then notifies the customer email.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status) (*UpdateStatusResult, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	if !o.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}

	if err := s.orders.UpdateStatus(ctx, id, next); err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	o.Status = next

	// The transition is committed; the notification must not undo it.
	sent := true
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	if err := s.notifier.Send(sendCtx, notify.StatusChange(o.CustomerEmail, o.ID, string(next))); err != nil {
		sent = false
		zctx.From(ctx).Warn("status notification failed",
			zap.String("order_id", o.ID),
			zap.String("status", string(next)),
			zap.Error(err),
		)
	}

	return &UpdateStatusResult{Order: o, EmailSent: sent}, nil
}

// SoftDelete hides the order from admin listings without removing it or its
// lines; the order stays addressable by ID for audit.
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	if _, err := s.orders.GetByID(ctx, id); err != nil {
		return errors.Wrap(err, "get order")
	}
	if err := s.orders.SoftDelete(ctx, id); err != nil {
		return errors.Wrap(err, "soft delete order")
	}
	return nil
}

// Get returns a single order with its lines, including soft-deleted ones.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListActive returns all orders that have not been soft-deleted.
func (s *Service) ListActive(ctx context.Context) ([]Order, error) {
	return s.orders.ListActive(ctx)
}

// ListByUser returns the order history for one user.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}
