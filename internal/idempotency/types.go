package idempotency

import "time"

// SessionRecord marks a provider checkout session as already turned into an order.
// It is written in the same transaction as the order (see orders.Store.CreatePaid).
type SessionRecord struct {
	SessionID string    `dynamodbav:"session_id"` // PK
	OrderID   string    `dynamodbav:"order_id"`
	CreatedAt time.Time `dynamodbav:"created_at"`
}

// KeyAttribute is the partition key of the sessions table.
const KeyAttribute = "session_id"

// ConditionNotExists guards the session row against a second insert.
const ConditionNotExists = "attribute_not_exists(session_id)"
