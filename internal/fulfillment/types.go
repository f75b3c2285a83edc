package fulfillment

// Job is one paid order waiting for its download link email.
type Job struct {
	OrderID    string `json:"order_id"`
	SessionID  string `json:"session_id"`
	ItemID     string `json:"item_id"`
	BuyerEmail string `json:"buyer_email"`
}

// Fulfillment stages, used in logs, alerts and the outbox.
const (
	StageResolve = "resolve"
	StageNotify  = "notify"
)

// Failure is reported on the dispatcher's error channel.
type Failure struct {
	Job   Job
	Stage string
	Err   error
}

func (f Failure) Error() string {
	return "fulfillment " + f.Stage + " failed for order " + f.Job.OrderID + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error { return f.Err }
