package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/Rxkz/whispering-tomes-website/internal/catalog"
)

// CheckoutRequest identifies who is buying what.
type CheckoutRequest struct {
	ItemID     string
	BuyerID    string
	BuyerEmail string
}

// ItemReader looks up catalog items.
type ItemReader interface {
	Get(ctx context.Context, id string) (*catalog.Item, error)
}

// SessionAPI creates hosted checkout sessions. Satisfied by session.Client.
type SessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// CheckoutConfig holds the redirect URLs and currency used for new sessions.
type CheckoutConfig struct {
	Currency   string
	SuccessURL string // may contain {CHECKOUT_SESSION_ID}
	CancelURL  string
}

// CheckoutService creates Stripe Checkout sessions for catalog items.
type CheckoutService struct {
	items    ItemReader
	sessions SessionAPI
	cfg      CheckoutConfig
}

// NewStripeSessions returns a session client bound to the secret key.
func NewStripeSessions(secretKey string) SessionAPI {
	return session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
}

// NewCheckoutService wires a CheckoutService.
func NewCheckoutService(items ItemReader, sessions SessionAPI, cfg CheckoutConfig) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	return &CheckoutService{items: items, sessions: sessions, cfg: cfg}
}

// CreateSession returns the hosted checkout URL for one copy of the item.
// Returns an error wrapping catalog.ErrItemNotFound for unknown items.
func (s *CheckoutService) CreateSession(ctx context.Context, req CheckoutRequest) (string, error) {
	item, err := s.items.Get(ctx, req.ItemID)
	if err != nil {
		return "", err
	}

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(item.Title),
	}
	if item.Description != "" {
		product.Description = stripe.String(item.Description)
	}
	if item.CoverImageURL != "" {
		product.Images = stripe.StringSlice([]string{item.CoverImageURL})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(s.cfg.Currency),
					ProductData: product,
					UnitAmount:  stripe.Int64(item.PriceCents()),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(req.BuyerEmail),
		SuccessURL:    stripe.String(s.cfg.SuccessURL),
		CancelURL:     stripe.String(s.cfg.CancelURL),
		InvoiceCreation: &stripe.CheckoutSessionInvoiceCreationParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataItemID, req.ItemID)
	params.AddMetadata(MetadataBuyerID, req.BuyerID)

	sess, err := s.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}
