package payments

import (
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrNoWebhookSecret is returned by Verify when no webhook secret is configured.
var ErrNoWebhookSecret = fmt.Errorf("%w: webhook secret not configured", ErrSignatureInvalid)

// Verifier checks Stripe-Signature headers against the webhook secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier returns a Verifier. tolerance <= 0 uses the library default (5 minutes).
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify authenticates the raw payload and decodes it.
// Signature failures wrap ErrSignatureInvalid and keep the library's reason.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (PurchaseEvent, error) {
	if v.secret == "" {
		// an HMAC keyed with nothing is forgeable by anyone
		return PurchaseEvent{}, ErrNoWebhookSecret
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return PurchaseEvent{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return purchaseFromEvent(ev)
}
