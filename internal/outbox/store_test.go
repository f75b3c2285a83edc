package outbox

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo keeps outbox rows keyed by order_id and understands just enough of
// the update expressions issued by Store.
type mockDynamo struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}, pageSize: 1}
}

func (m *mockDynamo) seed(t *testing.T, rec Record) {
	t.Helper()
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	m.items[rec.OrderID] = item
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := params.Key["order_id"].(*types.AttributeValueMemberS).Value
	return &dyn.GetItemOutput{Item: m.items[k]}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := params.Key["order_id"].(*types.AttributeValueMemberS).Value
	item, ok := m.items[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	vals := params.ExpressionAttributeValues
	if v, ok := vals[":delivered"]; ok {
		item["status"] = v
		delete(item, "last_error")
	}
	if v, ok := vals[":failed"]; ok {
		item["status"] = v
		item["last_stage"] = vals[":st"]
		item["last_error"] = vals[":n"]
	}
	attempts := 0
	if n, ok := item["attempts"].(*types.AttributeValueMemberN); ok {
		attempts, _ = strconv.Atoi(n.Value)
	}
	item["attempts"] = &types.AttributeValueMemberN{Value: strconv.Itoa(attempts + 1)}
	item["updated_at"] = vals[":ua"]
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	startAfter := ""
	if params.ExclusiveStartKey != nil {
		startAfter = params.ExclusiveStartKey["order_id"].(*types.AttributeValueMemberS).Value
	}
	excluded := params.ExpressionAttributeValues[":delivered"].(*types.AttributeValueMemberS).Value

	out := &dyn.ScanOutput{}
	read := 0
	for _, k := range keys {
		if startAfter != "" && k <= startAfter {
			continue
		}
		if read == m.pageSize {
			out.LastEvaluatedKey = map[string]types.AttributeValue{"order_id": &types.AttributeValueMemberS{Value: keys[indexOf(keys, k)-1]}}
			break
		}
		read++
		if m.items[k]["status"].(*types.AttributeValueMemberS).Value == excluded {
			continue
		}
		out.Items = append(out.Items, m.items[k])
	}
	return out, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	return nil, errors.New("not supported")
}

func indexOf(keys []string, k string) int {
	for i, x := range keys {
		if x == k {
			return i
		}
	}
	return -1
}

func TestMarkDelivered_ClearsErrorAndCountsAttempt(t *testing.T) {
	mock := newMockDynamo()
	rec := NewRecord("order-1", "sess_A", "42", "jane@example.com", time.Now())
	rec.Status = StatusFailed
	rec.Attempts = 1
	rec.LastError = "smtp down"
	mock.seed(t, rec)

	s := NewStore(mock, "fulfillments")
	if err := s.MarkDelivered(context.Background(), "order-1"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	got, err := s.Get(context.Background(), "order-1")
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if got.Status != StatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", got.Status)
	}
	if got.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", got.Attempts)
	}
	if got.LastError != "" {
		t.Fatalf("expected last_error cleared, got %q", got.LastError)
	}
}

func TestMarkFailed_StoresStageAndNote(t *testing.T) {
	mock := newMockDynamo()
	mock.seed(t, NewRecord("order-2", "sess_B", "7", "bob@example.com", time.Now()))

	s := NewStore(mock, "fulfillments")
	if err := s.MarkFailed(context.Background(), "order-2", "resolve", "item not found"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, _ := s.Get(context.Background(), "order-2")
	if got.Status != StatusFailed || got.LastStage != "resolve" || got.LastError != "item not found" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", got.Attempts)
	}
}

func TestMarkFailed_MissingRecord(t *testing.T) {
	s := NewStore(newMockDynamo(), "fulfillments")

	err := s.MarkFailed(context.Background(), "nope", "notify", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUndelivered_PagesAndFilters(t *testing.T) {
	mock := newMockDynamo()
	now := time.Now()
	pending := NewRecord("a", "sess_1", "1", "a@example.com", now)
	delivered := NewRecord("b", "sess_2", "2", "b@example.com", now)
	delivered.Status = StatusDelivered
	failed := NewRecord("c", "sess_3", "3", "c@example.com", now)
	failed.Status = StatusFailed
	mock.seed(t, pending)
	mock.seed(t, delivered)
	mock.seed(t, failed)

	s := NewStore(mock, "fulfillments")
	recs, err := s.ListUndelivered(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListUndelivered: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 undelivered, got %d", len(recs))
	}
	if recs[0].OrderID != "a" || recs[1].OrderID != "c" {
		t.Fatalf("unexpected order: %s, %s", recs[0].OrderID, recs[1].OrderID)
	}

	limited, err := s.ListUndelivered(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListUndelivered limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}
