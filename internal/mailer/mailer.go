// Package mailer provides SMTP-backed and no-op implementations of the
// notification contract.
package mailer

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/techkart/laptop-store/internal/notify"
)

// Config holds the SMTP connection settings. An empty Host selects the no-op
// mailer at wiring time.
type Config struct {
	Host     string `usage:"SMTP server host; empty disables outgoing mail"`
	Port     int    `default:"587" usage:"SMTP server port"`
	Username string `usage:"SMTP username"`
	Password string `usage:"SMTP password"`
	From     string `default:"noreply@laptop-store.local" usage:"From address for outgoing mail"`
}

var _ notify.Notifier = (*SMTP)(nil)

// SMTP sends notifications through an SMTP server via gomail. Sends are
// bounded by the caller's context: gomail itself has no context support, so
// the dial-and-send runs in a goroutine and the caller's deadline wins.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTP creates an SMTP notifier from the config.
func NewSMTP(cfg Config) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers msg to its recipient. It returns the send error, or the
// context error if the deadline expires first. A timed-out send may still
// complete in the background; that is acceptable for best-effort mail.
func (s *SMTP) Send(ctx context.Context, msg notify.Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "send mail")
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, "send mail")
		}
		return nil
	}
}

var _ notify.Notifier = (*Noop)(nil)

// Noop logs notifications instead of sending them. Used when no SMTP host is
// configured, so development setups still exercise the notification path.
type Noop struct{}

// Send logs the message and reports success.
func (Noop) Send(ctx context.Context, msg notify.Message) error {
	zctx.From(ctx).Info("mail suppressed (no SMTP host configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
