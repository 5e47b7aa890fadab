// Package prompt assembles the per-turn prompt: the user's utterance
// plus situational context the model should only surface when asked.
package prompt

import (
	"context"
	"fmt"
	"time"
)

// Provider supplies one situational-context fragment. Providers never
// error; they degrade to placeholder text internally.
type Provider interface {
	Fragment(ctx context.Context) string
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context) string

func (f ProviderFunc) Fragment(ctx context.Context) string {
	return f(ctx)
}

// Builder composes the turn prompt from the clock and the configured
// context providers.
type Builder struct {
	weather Provider
	camera  Provider
	now     func() time.Time
}

// NewBuilder creates a prompt builder. A nil now falls back to
// time.Now.
func NewBuilder(weather, camera Provider, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{
		weather: weather,
		camera:  camera,
		now:     now,
	}
}

// Build produces the full prompt for one utterance. The framing tells
// the model the context is reference material, not part of the request.
func (b *Builder) Build(ctx context.Context, utterance string) string {
	now := b.now()
	return fmt.Sprintf(
		`Input: %q Information(Tell this information only when user asking for): The time Right now is %s, The date is %s, The weather is %s and you currently see in the realtime camera: %q`,
		utterance,
		now.Format("3:04 PM"),
		now.Format("Monday, 2 January 2006"),
		b.weather.Fragment(ctx),
		b.camera.Fragment(ctx),
	)
}
