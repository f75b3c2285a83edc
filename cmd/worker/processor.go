package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Rxkz/whispering-tomes-website/internal/fulfillment"
	"github.com/Rxkz/whispering-tomes-website/internal/outbox"
)

// DeliveryLog reads outbox rows. Satisfied by *outbox.Store.
type DeliveryLog interface {
	Get(ctx context.Context, orderID string) (*outbox.Record, error)
}

// Processor runs fulfillment jobs delivered over SQS.
type Processor struct {
	runner     fulfillment.Runner
	alerter    fulfillment.Alerter
	deliveries DeliveryLog // optional
	log        *slog.Logger
}

// NewProcessor creates a worker processor. alerter may be nil.
func NewProcessor(runner fulfillment.Runner, alerter fulfillment.Alerter, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{runner: runner, alerter: alerter, log: log}
}

// WithDeliveries skips jobs whose outbox row is already DELIVERED, so an SQS
// redelivery does not email the buyer twice.
func (p *Processor) WithDeliveries(d DeliveryLog) *Processor {
	p.deliveries = d
	return p
}

// Handle processes a batch and reports the messages SQS should redeliver.
// Requires ReportBatchItemFailures on the event source mapping.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("worker error", "message_id", rec.MessageId, "err", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var job fulfillment.Job
	if err := json.Unmarshal([]byte(rec.Body), &job); err != nil {
		// redelivering the same bytes cannot help
		p.log.Error("dropping undecodable message", "message_id", rec.MessageId, "err", err)
		return nil
	}
	if job.OrderID == "" || job.ItemID == "" {
		p.log.Error("dropping incomplete job", "message_id", rec.MessageId, "body", rec.Body)
		return nil
	}

	log := p.log.With("order_id", job.OrderID, "session_id", job.SessionID, "receive_count", rec.Attributes["ApproximateReceiveCount"])
	log.Info("fulfillment job received")

	if p.deliveries != nil {
		row, err := p.deliveries.Get(ctx, job.OrderID)
		switch {
		case err != nil:
			// a second email beats none
			log.Warn("outbox read failed, fulfilling anyway", "err", err)
		case row != nil && row.Status == outbox.StatusDelivered:
			log.Info("already delivered, skipping redelivered job")
			return nil
		}
	}

	err := p.runner.Fulfill(ctx, job)
	if err == nil {
		log.Info("fulfillment job completed")
		return nil
	}

	p.alert(ctx, err)
	if fulfillment.Permanent(err) {
		log.Error("fulfillment cannot succeed, dropping", "err", err)
		return nil
	}
	return fmt.Errorf("fulfill order %s: %w", job.OrderID, err)
}

func (p *Processor) alert(ctx context.Context, err error) {
	if p.alerter == nil {
		return
	}
	stage := "unknown"
	var f fulfillment.Failure
	if errors.As(err, &f) {
		stage = f.Stage
	}
	if aerr := p.alerter.FulfillmentFailed(ctx, stage); aerr != nil {
		p.log.Error("alert publish failed", "stage", stage, "err", aerr)
	}
}
