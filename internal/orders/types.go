package orders

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses. The webhook only ever creates StatusPaid; the rest belong
// to the admin dashboard.
const (
	StatusPaid       = "paid"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Order represents the item stored in the orders DynamoDB table.
type Order struct {
	OrderID     string    `dynamodbav:"order_id" json:"order_id"` // PK
	BuyerID     string    `dynamodbav:"buyer_id" json:"buyer_id"`
	ItemID      string    `dynamodbav:"item_id" json:"item_id"`
	Status      string    `dynamodbav:"status" json:"status"` // paid | processing | shipped | delivered | cancelled
	TotalAmount Amount    `dynamodbav:"total_amount" json:"total_amount"`
	SessionID   string    `dynamodbav:"session_id" json:"session_id"` // unique, guarded by the sessions table
	CreatedAt   time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// NewPaidOrder builds a paid order for a completed checkout session.
// amountCents is the provider's total in minor units.
func NewPaidOrder(buyerID, itemID, sessionID string, amountCents int64) Order {
	return Order{
		OrderID:     uuid.NewString(),
		BuyerID:     buyerID,
		ItemID:      itemID,
		Status:      StatusPaid,
		TotalAmount: AmountFromCents(amountCents),
		SessionID:   sessionID,
	}
}

// Amount is a decimal currency amount stored as a DynamoDB number.
type Amount struct {
	decimal.Decimal
}

// AmountFromCents converts minor units (cents) into currency units.
func AmountFromCents(cents int64) Amount {
	return Amount{decimal.New(cents, -2)}
}

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler.
func (a Amount) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: a.StringFixed(2)}, nil
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler.
func (a *Amount) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var raw string
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		raw = v.Value
	case *types.AttributeValueMemberS:
		raw = v.Value
	default:
		return fmt.Errorf("amount: unsupported attribute type %T", av)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	a.Decimal = d
	return nil
}
