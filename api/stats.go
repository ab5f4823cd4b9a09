package api

import (
	"context"
	"net/http"

	"github.com/xraph/cachehook"
)

// StatsResponse is the response for GET /stats.
type StatsResponse struct {
	PendingDeliveries int64 `json:"pending_deliveries"`
	DLQSize           int64 `json:"dlq_size"`
	BufferedGroups    int   `json:"buffered_groups"`
	Dispatched        int64 `json:"dispatched"`
	Rejected          int64 `json:"rejected"`
	HandlerFailures   int64 `json:"handler_failures"`
}

func engineStats(ctx context.Context, e *cachehook.Engine) (*StatsResponse, error) {
	pending, err := e.Store().CountPending(ctx)
	if err != nil {
		return nil, err
	}

	dlqCount, err := e.DLQ().Count(ctx)
	if err != nil {
		return nil, err
	}

	d := e.Dispatcher()
	return &StatsResponse{
		PendingDeliveries: pending,
		DLQSize:           dlqCount,
		BufferedGroups:    len(e.Buffer().Groups()),
		Dispatched:        d.Dispatched(),
		Rejected:          d.Rejected(),
		HandlerFailures:   d.Failures(),
	}, nil
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := engineStats(r.Context(), h.engine)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
