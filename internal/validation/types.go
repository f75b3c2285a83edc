package validation

// CheckoutRequest is the payload for POST /create-checkout-session
type CheckoutRequest struct {
	ItemID     string `json:"itemId" validate:"required,notblank,max=64"` // catalog id of the book
	BuyerID    string `json:"buyerId" validate:"required,notblank"`       // id from the auth collaborator
	BuyerEmail string `json:"buyerEmail" validate:"required,email"`       // receipt goes here
}
