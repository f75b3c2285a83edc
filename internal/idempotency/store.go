package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Rxkz/whispering-tomes-website/internal/aws"
)

// Store reads the sessions table. It is the fast-path duplicate check in front of
// the order insert; the conditional write in the insert is what actually
// enforces one order per session.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore returns a configured Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

// TableName returns the sessions table this store reads.
func (s *Store) TableName() string { return s.tableName }

// Get retrieves a session record. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if sessionID == "" {
		return nil, errors.New("empty session id")
	}
	input := &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			KeyAttribute: &types.AttributeValueMemberS{Value: sessionID},
		},
		ConsistentRead: boolPtr(true),
	}
	out, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec SessionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// Seen reports whether an order already exists for the session.
func (s *Store) Seen(ctx context.Context, sessionID string) (bool, error) {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

func boolPtr(b bool) *bool { return &b }
