package events

import (
	"context"
	"sync"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

// Sink receives published events.
type Sink interface {
	Handle(ctx context.Context, event *models.Event)
}

type SinkFunc func(ctx context.Context, event *models.Event)

func (f SinkFunc) Handle(ctx context.Context, event *models.Event) {
	f(ctx, event)
}

// EventBus delivers every event to its subscribers before Publish returns.
// A run ends with process exit, so nothing may be left in flight.
type EventBus struct {
	subscribers map[models.EventType][]Sink
	all         []Sink
	mu          sync.RWMutex
	closed      bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[models.EventType][]Sink),
	}
}

func (b *EventBus) Subscribe(eventType models.EventType, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], sink)
}

func (b *EventBus) SubscribeAll(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, sink)
}

func (b *EventBus) Publish(ctx context.Context, event *models.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	sinks := make([]Sink, 0, len(b.all)+len(b.subscribers[event.Type]))
	sinks = append(sinks, b.all...)
	sinks = append(sinks, b.subscribers[event.Type]...)
	b.mu.RUnlock()

	for _, s := range sinks {
		s.Handle(ctx, event)
	}
}

func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subscribers = make(map[models.EventType][]Sink)
	b.all = nil
}
