package events

import (
	"sync"
	"testing"
	"time"
)

func TestNilBusPublish(t *testing.T) {
	var b *Bus
	// Must not panic.
	b.Publish(Event{Source: SourceLoop, Kind: KindTurnStart})
}

func TestNilBusSubscriberCount(t *testing.T) {
	var b *Bus
	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() on nil bus = %d, want 0", got)
	}
}

func TestPublishSingleSubscriber(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(8)
	defer cancel()

	want := Event{
		Source: SourceTimers,
		Kind:   KindTimerFired,
		Data:   map[string]any{"timer_id": "t1"},
	}
	b.Publish(want)

	select {
	case got := <-ch:
		if got.Source != want.Source || got.Kind != want.Kind {
			t.Errorf("got event %v, want %v", got, want)
		}
		if got.Timestamp.IsZero() {
			t.Error("Publish() should stamp a zero Timestamp")
		}
		id, ok := got.Data["timer_id"].(string)
		if !ok || id != "t1" {
			t.Errorf("got timer_id %v, want %q", got.Data["timer_id"], "t1")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishMultipleSubscribers(t *testing.T) {
	b := New()
	const n = 5
	channels := make([]<-chan Event, n)
	cancels := make([]func(), n)
	for i := 0; i < n; i++ {
		channels[i], cancels[i] = b.Subscribe(8)
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	evt := Event{Source: SourceActions, Kind: KindIntentDispatched}
	b.Publish(evt)

	for i, ch := range channels {
		select {
		case got := <-ch:
			if got.Source != evt.Source || got.Kind != evt.Kind {
				t.Errorf("subscriber %d: got %v, want %v", i, got, evt)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out", i)
		}
	}
}

func TestDropOnFull(t *testing.T) {
	b := New()
	// Buffer size 1 — second publish should be dropped.
	ch, cancel := b.Subscribe(1)
	defer cancel()

	b.Publish(Event{Kind: "first"})
	b.Publish(Event{Kind: "second"})

	got := <-ch
	if got.Kind != "first" {
		t.Errorf("got kind %q, want %q", got.Kind, "first")
	}

	select {
	case evt := <-ch:
		t.Errorf("expected empty channel, got event %v", evt)
	default:
		// Correct — the second event was dropped.
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(8)

	cancel()

	_, ok := <-ch
	if ok {
		t.Error("expected channel to be closed after cancel")
	}
}

func TestDoubleCancel(t *testing.T) {
	b := New()
	_, cancel := b.Subscribe(8)

	cancel()
	// Must not panic.
	cancel()
}

func TestSubscriberCount(t *testing.T) {
	b := New()

	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("initial count = %d, want 0", got)
	}

	_, cancel1 := b.Subscribe(4)
	_, cancel2 := b.Subscribe(4)

	if got := b.SubscriberCount(); got != 2 {
		t.Errorf("after 2 subscribes = %d, want 2", got)
	}

	cancel1()
	if got := b.SubscriberCount(); got != 1 {
		t.Errorf("after 1 cancel = %d, want 1", got)
	}

	cancel2()
	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("after all cancelled = %d, want 0", got)
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	b := New()
	const publishers = 10
	const eventsPerPublisher = 100

	ch, cancel := b.Subscribe(64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range ch {
			// Drain; drops are expected, no exact count asserted.
		}
	}()

	var pubWg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		i := i
		pubWg.Add(1)
		go func() {
			defer pubWg.Done()
			for j := 0; j < eventsPerPublisher; j++ {
				b.Publish(Event{
					Source: SourceLoop,
					Kind:   KindTurnComplete,
					Data:   map[string]any{"publisher": i, "seq": j},
				})
			}
		}()
	}

	pubWg.Wait()
	cancel() // Closes the channel, ending the draining goroutine.
	wg.Wait()
}

func TestPublishNoSubscribers(t *testing.T) {
	b := New()
	// Must not panic with no subscribers.
	b.Publish(Event{Source: SourceTimers, Kind: KindTimerScheduled})
}
