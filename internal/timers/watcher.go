package timers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mirahq/mira-agent/internal/events"
)

// DefaultPollInterval is how often the watcher checks for expired
// timers.
const DefaultPollInterval = time.Second

// Announcer renders a timer announcement to the user. Satisfied by
// speech.Speaker; declared locally to keep the dependency
// one-directional.
type Announcer interface {
	Speak(ctx context.Context, text string) error
}

// Watcher polls the pool for expiry signals and announces each one
// exactly once. It runs concurrently with the turn loop so a firing
// timer interrupts whatever the assistant is doing.
type Watcher struct {
	logger       *slog.Logger
	bus          *events.Bus
	pool         *Pool
	speaker      Announcer
	announcement string
	interval     time.Duration
}

// NewWatcher creates a watcher over pool that speaks announcement for
// every expiry. A zero interval uses DefaultPollInterval.
func NewWatcher(logger *slog.Logger, bus *events.Bus, pool *Pool, speaker Announcer, announcement string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		logger:       logger,
		bus:          bus,
		pool:         pool,
		speaker:      speaker,
		announcement: announcement,
		interval:     interval,
	}
}

// Run polls until ctx is cancelled. Each poll drains every pending
// expiry signal, so two timers firing within the same interval both
// get announced. Always returns nil on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Debug("timer watcher started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("timer watcher stopped")
			return nil
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain consumes every currently pending expiry without blocking.
func (w *Watcher) drain(ctx context.Context) {
	for {
		select {
		case e := <-w.pool.Expiries():
			w.announce(ctx, e)
		default:
			return
		}
	}
}

func (w *Watcher) announce(ctx context.Context, e Expiry) {
	w.logger.Info("timer expired",
		"timer_id", e.ID,
		"duration", e.Duration,
		"fired_at", e.FiredAt.Format(time.RFC3339),
	)
	w.bus.Publish(events.Event{
		Source: events.SourceTimers,
		Kind:   events.KindTimerFired,
		Data:   map[string]any{"timer_id": e.ID, "seconds": e.Duration.Seconds()},
	})

	if err := w.speaker.Speak(ctx, w.announcement); err != nil {
		w.logger.Warn("timer announcement failed",
			"timer_id", e.ID, "error", fmt.Errorf("speak: %w", err))
	}
}
