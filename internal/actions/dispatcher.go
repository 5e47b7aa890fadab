// Package actions executes the side effects behind classified intents.
// The dispatcher is the only place collaborator calls happen; failures
// are contained here (logged and published as events) so a dead broker
// or webhook never aborts the turn that triggered it.
package actions

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mirahq/mira-agent/internal/events"
	"github.com/mirahq/mira-agent/internal/intent"
	"github.com/mirahq/mira-agent/internal/rooms"
)

// ZoneController switches a lighting zone on or off.
type ZoneController interface {
	SetZone(ctx context.Context, zone int, on bool) error
}

// Notifier delivers an outbound message.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// TimerScheduler starts a countdown and returns its id.
type TimerScheduler interface {
	Schedule(d time.Duration) string
}

// Dispatcher routes typed payloads to their handlers.
type Dispatcher struct {
	registry *rooms.Registry
	zones    ZoneController
	notifier Notifier
	timers   TimerScheduler
	bus      *events.Bus
	logger   *slog.Logger
}

// NewDispatcher wires the dispatcher. zones and notifier may be nil
// when the corresponding collaborator is not configured; their intents
// then degrade to a logged no-op.
func NewDispatcher(registry *rooms.Registry, zones ZoneController, notifier Notifier, timers TimerScheduler, bus *events.Bus, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		zones:    zones,
		notifier: notifier,
		timers:   timers,
		bus:      bus,
		logger:   logger,
	}
}

// Dispatch executes the side effect for one classified reply. It never
// returns an error: collaborator failures are logged and published but
// the spoken response still goes out.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, payload intent.Payload) {
	d.bus.Publish(events.Event{
		Source: events.SourceActions,
		Kind:   events.KindIntentDispatched,
		Data:   map[string]any{"intent": in.String()},
	})

	switch p := payload.(type) {
	case intent.LightTogglePayload:
		d.handleLightToggle(ctx, p)
	case intent.TimerPayload:
		d.handleTimer(p)
	case intent.MessagePayload:
		d.handleMessage(ctx, p)
	case intent.GeneralPayload:
		// Spoken reply only, nothing to execute.
	default:
		d.logger.Warn("no handler for intent", "intent", in.String())
	}
}

func (d *Dispatcher) handleLightToggle(ctx context.Context, p intent.LightTogglePayload) {
	zone, err := d.registry.Zone(p.Location)
	if err != nil {
		if errors.Is(err, rooms.ErrUnknownLocation) {
			d.logger.Warn("light toggle for unknown location", "location", p.Location)
			d.bus.Publish(events.Event{
				Source: events.SourceActions,
				Kind:   events.KindUnknownLocation,
				Data:   map[string]any{"location": p.Location},
			})
			return
		}
		d.reportFailure("rooms", err)
		return
	}

	if d.zones == nil {
		d.logger.Info("zone command skipped, no controller configured",
			"zone", zone, "on", p.On)
		return
	}

	if err := d.zones.SetZone(ctx, zone, p.On); err != nil {
		d.reportFailure("devices", err)
		return
	}
	d.logger.Debug("zone toggled", "location", p.Location, "zone", zone, "on", p.On)
}

func (d *Dispatcher) handleTimer(p intent.TimerPayload) {
	id := d.timers.Schedule(time.Duration(p.Seconds) * time.Second)
	d.logger.Debug("timer dispatched", "timer_id", id, "seconds", p.Seconds)
}

func (d *Dispatcher) handleMessage(ctx context.Context, p intent.MessagePayload) {
	if !p.SendWebhook {
		d.logger.Debug("message delivery declined by reply")
		return
	}
	if d.notifier == nil {
		d.logger.Info("message delivery skipped, no notifier configured")
		return
	}

	if err := d.notifier.Send(ctx, p.Respond); err != nil {
		d.reportFailure("notify", err)
		return
	}
	d.logger.Debug("message delivered", "bytes", len(p.Respond))
}

func (d *Dispatcher) reportFailure(collaborator string, err error) {
	d.logger.Error("action side effect failed", "collaborator", collaborator, "error", err)
	d.bus.Publish(events.Event{
		Source: events.SourceActions,
		Kind:   events.KindCollaboratorError,
		Data:   map[string]any{"collaborator": collaborator, "error": err.Error()},
	})
}
