package timers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mirahq/mira-agent/internal/events"
)

// countingSpeaker records every announcement it is asked to make.
type countingSpeaker struct {
	mu    sync.Mutex
	texts []string
}

func (s *countingSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *countingSpeaker) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}

func TestWatcherAnnouncesExactlyOnce(t *testing.T) {
	p := NewPool(testLogger(), nil)
	speaker := &countingSpeaker{}
	w := NewWatcher(testLogger(), nil, p, speaker, "Time's up!", 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	p.Schedule(20 * time.Millisecond)

	deadline := time.After(2 * time.Second)
	for speaker.count() < 1 {
		select {
		case <-deadline:
			t.Fatal("watcher never announced")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Give the watcher a few more polls to prove no duplicate
	// announcement appears.
	time.Sleep(50 * time.Millisecond)
	if got := speaker.count(); got != 1 {
		t.Errorf("announcements = %d, want exactly 1", got)
	}

	cancel()
	<-done
}

func TestWatcherDrainsBurst(t *testing.T) {
	p := NewPool(testLogger(), nil)
	speaker := &countingSpeaker{}
	// Poll far slower than the timer durations so several expiries
	// pile up within one interval.
	w := NewWatcher(testLogger(), nil, p, speaker, "Time's up!", 80*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	const n = 5
	for i := 0; i < n; i++ {
		p.Schedule(10 * time.Millisecond)
	}

	deadline := time.After(2 * time.Second)
	for speaker.count() < n {
		select {
		case <-deadline:
			t.Fatalf("announcements = %d, want %d (one poll must drain all)", speaker.count(), n)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestWatcherPublishesFiredEvents(t *testing.T) {
	bus := events.New()
	ch, cancelSub := bus.Subscribe(8)
	defer cancelSub()

	p := NewPool(testLogger(), bus)
	w := NewWatcher(testLogger(), bus, p, &countingSpeaker{}, "done", 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	id := p.Schedule(15 * time.Millisecond)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Kind != events.KindTimerFired {
				continue
			}
			if got := e.Data["timer_id"]; got != id {
				t.Errorf("fired event timer_id = %v, want %q", got, id)
			}
			return
		case <-deadline:
			t.Fatal("no timer_fired event observed")
		}
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	p := NewPool(testLogger(), nil)
	w := NewWatcher(testLogger(), nil, p, &countingSpeaker{}, "x", 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil on shutdown", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
