package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/speedcube/internal/adapters/mq/feed"
	"github.com/okian/speedcube/internal/errs"
	"github.com/okian/speedcube/pkg/logger"
)

// FeedDependencies streams round changes.
type FeedDependencies interface {
	Subscribe(ctx context.Context, roundID uint) (<-chan feed.Event, error)
}

// FeedHandler serves a round's changes as server-sent events.
type FeedHandler struct {
	deps      FeedDependencies
	heartbeat time.Duration
	logger    logger.Logger
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(deps FeedDependencies, heartbeat time.Duration, l logger.Logger) *FeedHandler {
	return &FeedHandler{deps: deps, heartbeat: heartbeat, logger: l}
}

// HandleFeed handles GET /rounds/{roundID}/feed. Each message is written as
// an SSE event named after its type with the JSON event as data.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.round_feed"
	roundID, err := idParam(r, "roundID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", ErrStreamingUnsupported)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.deps.Subscribe(ctx, roundID)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.Warn(ctx, "feed event encode failed", logger.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
				h.logger.Debug(ctx, "feed client gone", logger.Uint("round_id", roundID), logger.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}
