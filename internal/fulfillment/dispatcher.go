package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Dispatcher hands a job off after the webhook response has been written.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// Runner executes a job. Satisfied by *Fulfiller.
type Runner interface {
	Fulfill(ctx context.Context, job Job) error
}

// Alerter surfaces fulfillment failures to operators.
type Alerter interface {
	FulfillmentFailed(ctx context.Context, stage string) error
}

// AsyncDispatcher runs each job on its own goroutine, detached from the
// request context. Failures go to an internal channel drained by a reporter
// goroutine that logs them and notifies the Alerter.
type AsyncDispatcher struct {
	runner  Runner
	alerter Alerter
	log     *slog.Logger

	jobs     sync.WaitGroup
	failures chan Failure
	reported chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewAsyncDispatcher starts the failure reporter. alerter may be nil.
func NewAsyncDispatcher(runner Runner, alerter Alerter, log *slog.Logger) *AsyncDispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &AsyncDispatcher{
		runner:   runner,
		alerter:  alerter,
		log:      log,
		failures: make(chan Failure, 64),
		reported: make(chan struct{}),
	}
	go d.report()
	return d
}

// ErrDispatcherClosed is returned by Dispatch after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatch starts the job and returns immediately.
func (d *AsyncDispatcher) Dispatch(ctx context.Context, job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	d.jobs.Add(1)
	go func() {
		// the caller's request is finished; nothing should cancel this job
		err := d.runner.Fulfill(context.WithoutCancel(ctx), job)
		if err == nil {
			d.jobs.Done()
			return
		}
		var f Failure
		if !errors.As(err, &f) {
			f = Failure{Job: job, Stage: "unknown", Err: err}
		}
		// the reporter marks the job done once the failure is handled
		d.failures <- f
	}()
	return nil
}

// Wait blocks until every dispatched job has finished and its failure, if
// any, has been reported.
func (d *AsyncDispatcher) Wait() {
	d.jobs.Wait()
}

// Close waits for in-flight jobs and stops the reporter.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.jobs.Wait()
	close(d.failures)
	<-d.reported
}

func (d *AsyncDispatcher) report() {
	defer close(d.reported)
	for f := range d.failures {
		d.handle(f)
		d.jobs.Done()
	}
}

func (d *AsyncDispatcher) handle(f Failure) {
	d.log.Error("order left paid but unfulfilled",
		"order_id", f.Job.OrderID, "session_id", f.Job.SessionID, "stage", f.Stage, "err", f.Err)
	if d.alerter == nil {
		return
	}
	if err := d.alerter.FulfillmentFailed(context.Background(), f.Stage); err != nil {
		d.log.Error("alert publish failed", "stage", f.Stage, "err", err)
	}
}

// QueuePublisher sends a JSON body with string attributes.
type QueuePublisher interface {
	SendMessage(ctx context.Context, messageBody string, attributes map[string]string) error
}

// QueueDispatcher publishes jobs for cmd/worker to run.
type QueueDispatcher struct {
	publisher QueuePublisher
}

// NewQueueDispatcher returns a QueueDispatcher over publisher.
func NewQueueDispatcher(publisher QueuePublisher) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher}
}

// Dispatch enqueues the job.
func (q *QueueDispatcher) Dispatch(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	attrs := map[string]string{
		"order_id":   job.OrderID,
		"session_id": job.SessionID,
	}
	if err := q.publisher.SendMessage(context.WithoutCancel(ctx), string(body), attrs); err != nil {
		return fmt.Errorf("enqueue fulfillment for order %s: %w", job.OrderID, err)
	}
	return nil
}
