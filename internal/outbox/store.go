package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Rxkz/whispering-tomes-website/internal/aws"
)

// ErrNotFound is returned when a status update targets an order with no outbox row.
var ErrNotFound = errors.New("fulfillment record not found")

// Store encapsulates operations on the fulfillment outbox table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new outbox Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// TableName returns the outbox table name.
func (s *Store) TableName() string { return s.tableName }

// Get fetches a record by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       orderKey(orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// MarkDelivered sets status to DELIVERED and bumps the attempt counter.
func (s *Store) MarkDelivered(ctx context.Context, orderID string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(orderID),
		UpdateExpression: awsString("SET #s = :delivered, updated_at = :ua, attempts = if_not_exists(attempts, :zero) + :inc REMOVE last_error"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delivered": &types.AttributeValueMemberS{Value: StatusDelivered},
			":ua":        &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":zero":      &types.AttributeValueMemberN{Value: "0"},
			":inc":       &types.AttributeValueMemberN{Value: "1"},
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
		ReturnValues:        types.ReturnValueUpdatedNew,
	}
	return s.update(ctx, input, "mark delivered")
}

// MarkFailed marks the record FAILED and stores the failing stage and error text.
func (s *Store) MarkFailed(ctx context.Context, orderID, stage, note string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(orderID),
		UpdateExpression: awsString("SET #s = :failed, last_stage = :st, last_error = :n, updated_at = :ua, attempts = if_not_exists(attempts, :zero) + :inc"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed": &types.AttributeValueMemberS{Value: StatusFailed},
			":st":     &types.AttributeValueMemberS{Value: stage},
			":n":      &types.AttributeValueMemberS{Value: note},
			":ua":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":zero":   &types.AttributeValueMemberN{Value: "0"},
			":inc":    &types.AttributeValueMemberN{Value: "1"},
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
		ReturnValues:        types.ReturnValueUpdatedNew,
	}
	return s.update(ctx, input, "mark failed")
}

func (s *Store) update(ctx context.Context, input *dyn.UpdateItemInput, op string) error {
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		if aws.IsConditionalCheckFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update item (%s): %w", op, err)
	}
	return nil
}

// ListUndelivered scans for records that are PENDING or FAILED.
// limit <= 0 means no limit.
func (s *Store) ListUndelivered(ctx context.Context, limit int) ([]Record, error) {
	var (
		out   []Record
		start map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:                 &s.tableName,
			FilterExpression:          awsString("#s <> :delivered"),
			ExpressionAttributeNames:  map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":delivered": &types.AttributeValueMemberS{Value: StatusDelivered}},
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var recs []Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshal records: %w", err)
		}
		out = append(out, recs...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = page.LastEvaluatedKey
	}
}

func orderKey(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func awsString(s string) *string { return &s }
