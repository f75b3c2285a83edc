package payments

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
)

// Metadata keys attached to every checkout session this service creates.
const (
	MetadataItemID  = "item_id"
	MetadataBuyerID = "buyer_id"
)

var (
	// ErrSignatureInvalid means the payload was not signed with the webhook secret.
	ErrSignatureInvalid = errors.New("signature verification failed")
	// ErrMalformedEvent means a completed-checkout event lacks what an order needs.
	ErrMalformedEvent = errors.New("malformed purchase event")
)

// PurchaseEvent is a verified inbound provider event. Holding one implies the
// signature already checked out.
type PurchaseEvent struct {
	ID          string
	Type        stripe.EventType
	SessionID   string
	BuyerEmail  string
	AmountTotal int64 // minor units
	Metadata    map[string]string
}

// IsPurchaseCompleted reports whether the event is the one the pipeline acts on.
func (e PurchaseEvent) IsPurchaseCompleted() bool {
	return e.Type == stripe.EventTypeCheckoutSessionCompleted
}

// ItemID returns the purchased item id from metadata.
func (e PurchaseEvent) ItemID() string { return e.Metadata[MetadataItemID] }

// BuyerID returns the buyer id from metadata.
func (e PurchaseEvent) BuyerID() string { return e.Metadata[MetadataBuyerID] }

// Validate checks a completed-checkout event carries session, item and buyer.
func (e PurchaseEvent) Validate() error {
	switch {
	case e.SessionID == "":
		return fmt.Errorf("%w: missing session id", ErrMalformedEvent)
	case e.ItemID() == "":
		return fmt.Errorf("%w: session %s has no %s metadata", ErrMalformedEvent, e.SessionID, MetadataItemID)
	case e.BuyerID() == "":
		return fmt.Errorf("%w: session %s has no %s metadata", ErrMalformedEvent, e.SessionID, MetadataBuyerID)
	}
	return nil
}

func purchaseFromEvent(ev stripe.Event) (PurchaseEvent, error) {
	pe := PurchaseEvent{ID: ev.ID, Type: ev.Type}
	if ev.Type != stripe.EventTypeCheckoutSessionCompleted {
		return pe, nil
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return pe, fmt.Errorf("%w: empty event data", ErrMalformedEvent)
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return pe, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	pe.SessionID = sess.ID
	pe.AmountTotal = sess.AmountTotal
	pe.Metadata = sess.Metadata
	pe.BuyerEmail = sess.CustomerEmail
	if pe.BuyerEmail == "" && sess.CustomerDetails != nil {
		pe.BuyerEmail = sess.CustomerDetails.Email
	}
	return pe, nil
}
