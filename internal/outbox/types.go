package outbox

import "time"

// Fulfillment statuses
const (
	StatusPending   = "PENDING"
	StatusDelivered = "DELIVERED"
	StatusFailed    = "FAILED"
)

// Record tracks whether a paid order's download link was delivered.
// It is written together with the order so a crash between the webhook
// response and the receipt email still leaves a row to re-drive.
type Record struct {
	OrderID    string    `dynamodbav:"order_id" json:"order_id"` // PK
	SessionID  string    `dynamodbav:"session_id" json:"session_id"`
	ItemID     string    `dynamodbav:"item_id" json:"item_id"`
	BuyerEmail string    `dynamodbav:"buyer_email" json:"buyer_email"`
	Status     string    `dynamodbav:"status" json:"status"` // PENDING | DELIVERED | FAILED
	Attempts   int       `dynamodbav:"attempts" json:"attempts"`
	LastStage  string    `dynamodbav:"last_stage,omitempty" json:"last_stage,omitempty"`
	LastError  string    `dynamodbav:"last_error,omitempty" json:"last_error,omitempty"`
	CreatedAt  time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt  time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// NewRecord returns a PENDING record for a freshly recorded order.
func NewRecord(orderID, sessionID, itemID, buyerEmail string, now time.Time) Record {
	return Record{
		OrderID:    orderID,
		SessionID:  sessionID,
		ItemID:     itemID,
		BuyerEmail: buyerEmail,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
