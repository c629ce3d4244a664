package audit

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Worker delivers queued events to the external sink off the request path.
// Delivery is fail-open: a sink error drops that event with a WARN and the
// worker keeps draining, because the store append already happened in Emit.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

// NewWorker constructs a worker draining inbox into sink.
func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run processes events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			payload, err := json.Marshal(event)
			if err != nil {
				w.logger.WarnContext(ctx, "encode audit event failed",
					"action", event.Action,
					"error", err,
				)
				continue
			}
			if err := w.sink.Publish(ctx, string(event.BuildingID), payload); err != nil {
				w.logger.WarnContext(ctx, "audit sink publish failed",
					"action", event.Action,
					"building_id", event.BuildingID,
					"error", err,
				)
			}
		}
	}
}
