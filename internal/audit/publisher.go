package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"facade/internal/domain"
	"facade/pkg/requestcontext"
)

// Sink receives serialized events for delivery to an external system.
// The kafka producer satisfies this.
type Sink interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Publisher appends events to the store and, when an outbox is configured,
// queues them for asynchronous sink delivery by a Worker. Store writes are
// the source of truth; a full outbox drops the event with a WARN, never
// blocks, so audit delivery problems cannot fail the operation being
// audited.
type Publisher struct {
	store  Store
	outbox chan<- Event
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithOutbox queues emitted events for delivery by a Worker.
func WithOutbox(outbox chan<- Event) Option {
	return func(p *Publisher) {
		if outbox != nil {
			p.outbox = outbox
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewPublisher constructs an audit publisher.
func NewPublisher(store Store, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records one event. The request ID is taken from the context when the
// event does not already carry one.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	if p.outbox != nil {
		select {
		case p.outbox <- event:
		default:
			p.logger.WarnContext(ctx, "audit outbox full, event not queued for delivery",
				"action", event.Action,
				"building_id", event.BuildingID,
			)
		}
	}
	return nil
}

// List returns the recorded events for a building, oldest first.
func (p *Publisher) List(ctx context.Context, id domain.BuildingID) ([]Event, error) {
	return p.store.ListByBuilding(ctx, id)
}
