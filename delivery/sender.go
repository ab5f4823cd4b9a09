package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/signature"
	"github.com/xraph/cachehook/webhook"
)

const maxResponseBody = 1024

// Header names set on every delivery request.
const (
	HeaderEventID    = "X-Cachehook-Event-ID"
	HeaderEventType  = "X-Cachehook-Event"
	HeaderDeliveryID = "X-Cachehook-Delivery-ID"
	HeaderSignature  = "X-Cachehook-Signature"
	HeaderTimestamp  = "X-Cachehook-Timestamp"
)

// Sender performs HTTP webhook delivery.
type Sender struct {
	client *http.Client
	now    func() time.Time
}

// NewSender creates a sender with the given HTTP timeout.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Send posts the canonical JSON of evt.Data to wh.URL and returns the result.
// The signature covers the exact bytes sent.
func (s *Sender) Send(ctx context.Context, wh *webhook.Webhook, evt *event.Event, d *Delivery) Result {
	body, err := signature.Canonical(evt.Data)
	if err != nil {
		return Result{Error: fmt.Sprintf("marshal payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "cachehook/1.0")
	req.Header.Set(HeaderEventID, evt.ID.String())
	req.Header.Set(HeaderEventType, evt.Type)
	req.Header.Set(HeaderDeliveryID, d.ID.String())

	ts := s.now().Unix()
	req.Header.Set(HeaderSignature, signature.Sign(body, wh.Secret, ts))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))

	for k, v := range wh.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // G704: destination is the subscriber's configured URL.
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		return Result{Error: err.Error(), LatencyMs: latency}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read response: %v", readErr),
			LatencyMs:  latency,
		}
	}

	res := Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  latency,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Error = "unexpected status " + strconv.Itoa(resp.StatusCode)
	}
	return res
}
