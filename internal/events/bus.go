// Package events provides a publish/subscribe event bus for operational
// observability. Events flow from components (turn loop, intent
// dispatcher, timer pool and watcher) to subscribers (tests, a future
// metrics sink). The bus is nil-safe: Publish on a nil *Bus is a no-op,
// so components do not need guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceLoop identifies events from the turn loop.
	SourceLoop = "loop"
	// SourceActions identifies events from the intent dispatcher.
	SourceActions = "actions"
	// SourceTimers identifies events from the timer pool and watcher.
	SourceTimers = "timers"
)

// Kind constants describe the type of event within a source.
const (
	// KindTurnStart signals an utterance was captured.
	// Data: session, utterance_len.
	KindTurnStart = "turn_start"
	// KindTurnComplete signals a turn cycle finished and was persisted.
	// Data: session, intent, elapsed_ms.
	KindTurnComplete = "turn_complete"
	// KindReplyFallback signals the model reply failed the structured
	// contract and was surfaced as raw text. Data: session, reply_len.
	KindReplyFallback = "reply_fallback"

	// KindIntentDispatched signals a classified reply reached its
	// handler. Data: intent.
	KindIntentDispatched = "intent_dispatched"
	// KindUnknownLocation signals a device toggle named a location
	// missing from the registry. Data: location.
	KindUnknownLocation = "unknown_location"
	// KindCollaboratorError signals a best-effort side effect failed.
	// Data: collaborator, error.
	KindCollaboratorError = "collaborator_error"

	// KindTimerScheduled signals a timer task was started.
	// Data: timer_id, seconds.
	KindTimerScheduled = "timer_scheduled"
	// KindTimerFired signals the watcher consumed an expiry signal.
	// Data: timer_id, seconds.
	KindTimerFired = "timer_fired"
)

// Event represents a single operational event published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; a slow subscriber misses events rather than
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan Event
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber. Safe to call on a nil receiver (no-op).
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full; drop rather than block.
		}
	}
}

// Subscribe returns a channel that receives published events and a
// cancel function that removes the subscription and closes the channel.
// bufSize controls the channel buffer.
func (b *Bus) Subscribe(bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
