// Package notify defines the outbound notification contract. Implementations
// are best-effort collaborators: a failed send is reported to the caller as an
// error but must never panic and must honor context deadlines, because callers
// invoke them only after their own state has durably committed.
package notify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Message is a rendered notification ready to send.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier sends a rendered message to its recipient.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// OrderConfirmation renders the post-checkout confirmation message.
func OrderConfirmation(to, orderID string, total decimal.Decimal) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Order %s confirmed", orderID),
		Body: fmt.Sprintf(
			"Thank you for your purchase!\n\nYour order %s has been placed.\nOrder total: $%s\n\nWe will email you again when the order status changes.",
			orderID, total.StringFixed(2),
		),
	}
}

// StatusChange renders the message sent when an order moves to a new status.
func StatusChange(to, orderID, status string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Order %s is now %s", orderID, status),
		Body: fmt.Sprintf(
			"Your order %s has been updated.\nNew status: %s\n",
			orderID, status,
		),
	}
}
