package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// sendClient is satisfied by *sendgrid.Client.
type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	client sendClient
	from   *mail.Email
}

// NewSendGridMailer returns a mailer sending as fromName <fromEmail>.
func NewSendGridMailer(apiKey, fromEmail, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

// Send implements Mailer.
func (m *SendGridMailer) Send(ctx context.Context, to, subject, html, text string) error {
	msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail(DisplayName(to), to), text, html)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %v", ErrDelivery, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sendgrid status %d: %s", ErrDelivery, resp.StatusCode, resp.Body)
	}
	return nil
}
