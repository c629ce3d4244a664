package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facade/pkg/requestcontext"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type captureSink struct {
	mu       sync.Mutex
	keys     []string
	payloads [][]byte
	failures int
}

func (c *captureSink) Publish(_ context.Context, key string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("broker down")
	}
	c.keys = append(c.keys, key)
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *captureSink) delivered() ([]string, [][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.keys...), append([][]byte(nil), c.payloads...)
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestEmitStampsTimestampAndRequestID(t *testing.T) {
	store := NewMemoryStore()
	p := NewPublisher(store, discard(), WithClock(func() time.Time { return now }))

	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	err := p.Emit(ctx, Event{Action: ActionSnapshotRefreshed, BuildingID: "b-1"})
	require.NoError(t, err)

	events, err := store.ListByBuilding(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, ActionSnapshotRefreshed, events[0].Action)
}

func TestEmitQueuesForDelivery(t *testing.T) {
	outbox := make(chan Event, 1)
	p := NewPublisher(NewMemoryStore(), discard(),
		WithClock(func() time.Time { return now }),
		WithOutbox(outbox))

	err := p.Emit(context.Background(), Event{Action: ActionBuildingInvalidated, BuildingID: "b-7", Operator: "ops@example.com"})
	require.NoError(t, err)

	queued := <-outbox
	assert.Equal(t, ActionBuildingInvalidated, queued.Action)
	assert.Equal(t, "ops@example.com", queued.Operator)
	assert.Equal(t, now, queued.Timestamp)
}

func TestEmitFullOutboxDoesNotFailOperation(t *testing.T) {
	store := NewMemoryStore()
	outbox := make(chan Event, 1)
	p := NewPublisher(store, discard(), WithOutbox(outbox))

	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionRefreshFailed, BuildingID: "b-1"}))
	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionRefreshFailed, BuildingID: "b-1"}))

	events, err := store.ListByBuilding(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Len(t, events, 2, "store append still happened for the dropped event")
}

func TestListFiltersByBuilding(t *testing.T) {
	store := NewMemoryStore()
	p := NewPublisher(store, discard())

	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionSnapshotRefreshed, BuildingID: "b-1"}))
	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionSnapshotRefreshed, BuildingID: "b-2"}))
	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionRefreshFailed, BuildingID: "b-1"}))

	events, err := p.List(context.Background(), "b-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionSnapshotRefreshed, events[0].Action)
	assert.Equal(t, ActionRefreshFailed, events[1].Action)
}

func TestWorkerDeliversQueuedEvents(t *testing.T) {
	sink := &captureSink{}
	inbox := make(chan Event, 2)
	w := NewWorker(sink, inbox, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	inbox <- Event{Action: ActionIdentityVerified, BuildingID: "b-1", Timestamp: now}
	inbox <- Event{Action: ActionIdentityMismatch, BuildingID: "b-1", Timestamp: now}

	assert.Eventually(t, func() bool {
		_, payloads := sink.delivered()
		return len(payloads) == 2
	}, 2*time.Second, 10*time.Millisecond)

	keys, payloads := sink.delivered()
	assert.Equal(t, []string{"b-1", "b-1"}, keys)
	var got Event
	require.NoError(t, json.Unmarshal(payloads[0], &got))
	assert.Equal(t, ActionIdentityVerified, got.Action)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerSinkFailureKeepsDraining(t *testing.T) {
	sink := &captureSink{failures: 1}
	inbox := make(chan Event, 2)
	w := NewWorker(sink, inbox, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	inbox <- Event{Action: ActionSnapshotRefreshed, BuildingID: "b-1", Timestamp: now}
	inbox <- Event{Action: ActionRefreshFailed, BuildingID: "b-2", Timestamp: now}

	assert.Eventually(t, func() bool {
		keys, _ := sink.delivered()
		return len(keys) == 1 && keys[0] == "b-2"
	}, 2*time.Second, 10*time.Millisecond)
}
