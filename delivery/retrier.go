package delivery

import (
	"net/http"
	"time"
)

// Decision is the outcome of evaluating a delivery attempt.
type Decision int

const (
	// Delivered means the subscriber answered 2xx.
	Delivered Decision = iota

	// Retry means the delivery should be attempted again later.
	Retry

	// DLQ means the delivery permanently failed and moves to the dead letter queue.
	DLQ

	// DisableWebhook means the subscriber is gone (410): the webhook is
	// disabled and the delivery dead-lettered.
	DisableWebhook
)

func (d Decision) String() string {
	switch d {
	case Delivered:
		return "delivered"
	case Retry:
		return "retried"
	case DLQ:
		return "failed"
	case DisableWebhook:
		return "disabled"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single delivery attempt.
type Result struct {
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int
}

// Retrier decides what to do after a delivery attempt.
type Retrier struct {
	schedule []time.Duration
	now      func() time.Time
}

// fallbackDelay is used when the schedule is empty.
const fallbackDelay = 30 * time.Second

// NewRetrier creates a retrier with the given backoff schedule.
func NewRetrier(schedule []time.Duration) *Retrier {
	return &Retrier{schedule: schedule, now: time.Now}
}

// Decide determines what to do with a delivery after an attempt.
//
//   - 2xx: Delivered
//   - 410: DisableWebhook
//   - 429, 5xx, 0 (transport error): Retry while attempts remain, else DLQ
//   - other 4xx: DLQ immediately
func (r *Retrier) Decide(res Result, d *Delivery) Decision {
	code := res.StatusCode

	switch {
	case code >= 200 && code < 300:
		return Delivered
	case code == http.StatusGone:
		return DisableWebhook
	case code == http.StatusTooManyRequests:
		return r.retryOrDLQ(d)
	case code >= 400 && code < 500:
		return DLQ
	default:
		return r.retryOrDLQ(d)
	}
}

func (r *Retrier) retryOrDLQ(d *Delivery) Decision {
	if d.AttemptCount < d.MaxAttempts {
		return Retry
	}
	return DLQ
}

// ComputeNextAttempt returns when attempt number attemptCount+1 is due. The
// last schedule entry repeats once the schedule is exhausted.
func (r *Retrier) ComputeNextAttempt(attemptCount int) time.Time {
	delay := fallbackDelay
	if n := len(r.schedule); n > 0 {
		idx := min(max(attemptCount-1, 0), n-1)
		delay = r.schedule[idx]
	}
	return r.now().UTC().Add(delay)
}
