package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Rxkz/whispering-tomes-website/internal/aws"
	"github.com/Rxkz/whispering-tomes-website/internal/idempotency"
	"github.com/Rxkz/whispering-tomes-website/internal/outbox"
)

var (
	// ErrDuplicateSession means an order already exists for the checkout session.
	ErrDuplicateSession = errors.New("order already recorded for session")
	// ErrPersist wraps every other failure to durably record an order.
	ErrPersist = errors.New("order persist failed")
	// ErrStatusMismatch is returned by UpdateStatus when the current status is not the expected one.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client        aws.DynamoDBAPI
	tableName     string
	sessionsTable string
	outboxTable   string // optional; empty disables the fulfillment outbox row
	nowFunc       func() time.Time
}

// NewStore creates a new orders Store. sessionsTable is the table that
// enforces one order per checkout session.
func NewStore(client aws.DynamoDBAPI, tableName, sessionsTable string) *Store {
	return &Store{
		client:        client,
		tableName:     tableName,
		sessionsTable: sessionsTable,
		nowFunc:       time.Now,
	}
}

// WithOutbox makes CreatePaid also write a PENDING fulfillment row into table.
func (s *Store) WithOutbox(table string) *Store {
	s.outboxTable = table
	return s
}

// CreatePaid atomically creates:
//   - the session guard row in the sessions table (attribute_not_exists(session_id))
//   - the order row in the orders table (attribute_not_exists(order_id))
//   - optionally, the fulfillment outbox row
//
// buyerEmail is only used for the outbox row.
// Returns ErrDuplicateSession when the session guard condition fails.
func (s *Store) CreatePaid(ctx context.Context, order Order, buyerEmail string) (*Order, error) {
	if order.SessionID == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrPersist)
	}
	now := s.nowFunc().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	order.Status = StatusPaid

	sessionMap, err := attributevalue.MarshalMap(idempotency.SessionRecord{
		SessionID: order.SessionID,
		OrderID:   order.OrderID,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal session record: %v", ErrPersist, err)
	}
	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal order item: %v", ErrPersist, err)
	}

	// the session put must stay first: its cancellation reason decides duplicate vs failure
	transactItems := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           &s.sessionsTable,
				Item:                sessionMap,
				ConditionExpression: awsString(idempotency.ConditionNotExists),
			},
		},
		{
			Put: &types.Put{
				TableName:           &s.tableName,
				Item:                orderMap,
				ConditionExpression: awsString("attribute_not_exists(order_id)"),
			},
		},
	}
	if s.outboxTable != "" {
		outboxMap, err := attributevalue.MarshalMap(outbox.NewRecord(order.OrderID, order.SessionID, order.ItemID, buyerEmail, now))
		if err != nil {
			return nil, fmt.Errorf("%w: marshal outbox record: %v", ErrPersist, err)
		}
		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{
				TableName: &s.outboxTable,
				Item:      outboxMap,
			},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		conflict, known := sessionConflict(err)
		if !known {
			// throttling and transaction conflicts also cancel without reasons;
			// only an existing guard row makes this a duplicate
			seen, gerr := idempotency.NewStore(s.client, s.sessionsTable).Seen(ctx, order.SessionID)
			if gerr != nil {
				return nil, fmt.Errorf("%w: transact write: %v (session re-check: %v)", ErrPersist, err, gerr)
			}
			conflict = seen
		}
		if conflict {
			return nil, ErrDuplicateSession
		}
		return nil, fmt.Errorf("%w: transact write: %v", ErrPersist, err)
	}
	return &order, nil
}

// sessionConflict reports whether a cancelled transaction failed on the session
// guard. known is false when the cancellation carries no reasons.
func sessionConflict(err error) (conflict, known bool) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false, true
	}
	if len(tce.CancellationReasons) == 0 {
		return false, false
	}
	r := tce.CancellationReasons[0]
	return r.Code != nil && *r.Code == "ConditionalCheckFailed", true
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	key := map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// UpdateStatus conditionally updates the order status from expected -> newStatus.
// Returns nil on success, ErrStatusMismatch if condition failed.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		if aws.IsConditionalCheckFailed(err) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
