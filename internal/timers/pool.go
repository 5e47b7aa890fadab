// Package timers implements the concurrent countdown subsystem. Each
// scheduled timer runs in its own goroutine and, on expiry, delivers a
// single-shot signal on the pool's channel. A long-lived watcher polls
// the channel and announces each expiry exactly once, out of band with
// the main turn loop.
package timers

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mirahq/mira-agent/internal/events"
)

// expiryBuffer is how many undelivered expiry signals the pool holds
// before producers block. Blocking (rather than dropping) preserves
// the no-lost-signal guarantee; a full buffer only delays the producer
// goroutine until the watcher's next drain.
const expiryBuffer = 64

// Expiry is the single-shot signal raised when a timer's duration has
// elapsed. Each Expiry is consumed exactly once by the watcher.
type Expiry struct {
	ID       string
	Duration time.Duration
	FiredAt  time.Time
}

// Pool owns the set of pending timers. Scheduling never blocks the
// caller; there is no cancel operation — once scheduled, a timer
// always eventually fires.
type Pool struct {
	logger   *slog.Logger
	bus      *events.Bus
	expiries chan Expiry
	active   atomic.Int64
}

// NewPool creates a timer pool. bus may be nil.
func NewPool(logger *slog.Logger, bus *events.Bus) *Pool {
	return &Pool{
		logger:   logger,
		bus:      bus,
		expiries: make(chan Expiry, expiryBuffer),
	}
}

// Schedule starts a countdown of d and returns immediately with the
// timer's id. The expiry signal appears on Expiries after d elapses.
func (p *Pool) Schedule(d time.Duration) string {
	id := uuid.NewString()[:8]
	p.active.Add(1)

	p.logger.Info("timer scheduled", "timer_id", id, "duration", d)
	p.bus.Publish(events.Event{
		Source: events.SourceTimers,
		Kind:   events.KindTimerScheduled,
		Data:   map[string]any{"timer_id": id, "seconds": d.Seconds()},
	})

	go func() {
		timer := time.NewTimer(d)
		<-timer.C
		p.active.Add(-1)
		// Blocking send: the signal must not be lost even if the
		// watcher is mid-poll and the buffer is momentarily full.
		p.expiries <- Expiry{ID: id, Duration: d, FiredAt: time.Now()}
	}()

	return id
}

// Expiries returns the channel carrying expiry signals, in the order
// timers actually fired. Single consumer: the watcher.
func (p *Pool) Expiries() <-chan Expiry {
	return p.expiries
}

// Active returns the number of timers still counting down.
func (p *Pool) Active() int {
	return int(p.active.Load())
}
