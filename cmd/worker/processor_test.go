package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Rxkz/whispering-tomes-website/internal/catalog"
	"github.com/Rxkz/whispering-tomes-website/internal/fulfillment"
	"github.com/Rxkz/whispering-tomes-website/internal/notify"
	"github.com/Rxkz/whispering-tomes-website/internal/outbox"
)

// --- mock implementations ---

type mockRunner struct {
	errs map[string]error
	ran  []fulfillment.Job
}

func (m *mockRunner) Fulfill(ctx context.Context, job fulfillment.Job) error {
	m.ran = append(m.ran, job)
	return m.errs[job.OrderID]
}

type mockAlerter struct {
	stages []string
}

func (m *mockAlerter) FulfillmentFailed(ctx context.Context, stage string) error {
	m.stages = append(m.stages, stage)
	return nil
}

func message(id string, job fulfillment.Job) events.SQSMessage {
	body, _ := json.Marshal(job)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func newTestProcessor(r *mockRunner, a fulfillment.Alerter) *Processor {
	return NewProcessor(r, a, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// --- test cases ---

func TestWorkerProcess_Success(t *testing.T) {
	runner := &mockRunner{}
	p := newTestProcessor(runner, &mockAlerter{})

	job := fulfillment.Job{OrderID: "o1", SessionID: "sess_A", ItemID: "42", BuyerEmail: "jane@example.com"}
	resp, err := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{message("m1", job)}})
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("expected no failures, got %+v", resp.BatchItemFailures)
	}
	if len(runner.ran) != 1 || runner.ran[0] != job {
		t.Fatalf("expected job to run once, got %+v", runner.ran)
	}
}

func TestWorkerProcess_RetryableFailureIsReported(t *testing.T) {
	runner := &mockRunner{errs: map[string]error{
		"o2": fulfillment.Failure{Stage: fulfillment.StageNotify, Err: notify.ErrDelivery},
	}}
	alerter := &mockAlerter{}
	p := newTestProcessor(runner, alerter)

	ev := events.SQSEvent{Records: []events.SQSMessage{
		message("m1", fulfillment.Job{OrderID: "o1", ItemID: "42"}),
		message("m2", fulfillment.Job{OrderID: "o2", ItemID: "42"}),
	}}
	resp, _ := p.Handle(context.Background(), ev)

	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "m2" {
		t.Fatalf("expected only m2 to be retried, got %+v", resp.BatchItemFailures)
	}
	if len(alerter.stages) != 1 || alerter.stages[0] != fulfillment.StageNotify {
		t.Fatalf("expected notify alert, got %v", alerter.stages)
	}
}

func TestWorkerProcess_MissingItemIsDropped(t *testing.T) {
	runner := &mockRunner{errs: map[string]error{
		"o3": fulfillment.Failure{Stage: fulfillment.StageResolve, Err: fmt.Errorf("%w: 999", catalog.ErrItemNotFound)},
	}}
	alerter := &mockAlerter{}
	p := newTestProcessor(runner, alerter)

	resp, _ := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		message("m3", fulfillment.Job{OrderID: "o3", ItemID: "999"}),
	}})

	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("permanent failure must not be retried, got %+v", resp.BatchItemFailures)
	}
	if len(alerter.stages) != 1 || alerter.stages[0] != fulfillment.StageResolve {
		t.Fatalf("expected resolve alert, got %v", alerter.stages)
	}
}

func TestWorkerProcess_UndecodableMessageDropped(t *testing.T) {
	runner := &mockRunner{}
	p := newTestProcessor(runner, nil)

	resp, _ := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "bad", Body: "{not json"},
		{MessageId: "empty", Body: `{"order_id":""}`},
	}})

	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("expected drops, got %+v", resp.BatchItemFailures)
	}
	if len(runner.ran) != 0 {
		t.Fatalf("nothing should run, got %+v", runner.ran)
	}
}

type mockDeliveries struct {
	rows map[string]outbox.Record
	err  error
}

func (m *mockDeliveries) Get(ctx context.Context, orderID string) (*outbox.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rows[orderID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func TestWorkerProcess_RedeliveredJobAlreadyDeliveredIsSkipped(t *testing.T) {
	runner := &mockRunner{}
	p := newTestProcessor(runner, nil).WithDeliveries(&mockDeliveries{rows: map[string]outbox.Record{
		"o1": {OrderID: "o1", Status: outbox.StatusDelivered},
		"o2": {OrderID: "o2", Status: outbox.StatusFailed},
	}})

	resp, _ := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		message("m1", fulfillment.Job{OrderID: "o1", ItemID: "42"}),
		message("m2", fulfillment.Job{OrderID: "o2", ItemID: "42"}),
	}})

	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("expected no failures, got %+v", resp.BatchItemFailures)
	}
	if len(runner.ran) != 1 || runner.ran[0].OrderID != "o2" {
		t.Fatalf("expected only o2 to run, got %+v", runner.ran)
	}
}

func TestWorkerProcess_OutboxReadErrorStillFulfills(t *testing.T) {
	runner := &mockRunner{}
	p := newTestProcessor(runner, nil).WithDeliveries(&mockDeliveries{err: errors.New("throttled")})

	resp, _ := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		message("m1", fulfillment.Job{OrderID: "o1", ItemID: "42"}),
	}})

	if len(resp.BatchItemFailures) != 0 || len(runner.ran) != 1 {
		t.Fatalf("expected the job to run, got failures=%+v ran=%+v", resp.BatchItemFailures, runner.ran)
	}
}
