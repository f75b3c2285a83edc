package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrDelivery is returned when the email API does not accept a message.
var ErrDelivery = errors.New("notification delivery failed")

// Mailer submits one message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// Notifier sends purchase confirmations.
type Notifier struct {
	mailer Mailer
}

// NewNotifier returns a Notifier backed by mailer.
func NewNotifier(mailer Mailer) *Notifier {
	return &Notifier{mailer: mailer}
}

// SendReceipt renders r and sends it to r.BuyerEmail.
func (n *Notifier) SendReceipt(ctx context.Context, r Receipt) error {
	if r.BuyerEmail == "" {
		return fmt.Errorf("%w: no recipient for order %s", ErrDelivery, r.OrderID)
	}
	subject, html, text, err := Render(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if err := n.mailer.Send(ctx, r.BuyerEmail, subject, html, text); err != nil {
		if errors.Is(err, ErrDelivery) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}
