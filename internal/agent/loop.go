// Package agent runs the main interaction loop: capture an utterance,
// build the prompt, query the language backend, dispatch the classified
// intent, persist the exchange, and speak the response. Each turn is
// fault-contained; a collaborator failure abandons at most the current
// turn, never the session.
package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/mirahq/mira-agent/internal/events"
	"github.com/mirahq/mira-agent/internal/intent"
	"github.com/mirahq/mira-agent/internal/prompt"
	"github.com/mirahq/mira-agent/internal/reply"
	"github.com/mirahq/mira-agent/internal/session"
	"github.com/mirahq/mira-agent/internal/speech"
)

// Generator produces the model's raw reply for a prompt with history.
type Generator interface {
	Generate(ctx context.Context, history []session.Turn, prompt string) (string, error)
}

// Dispatcher executes the side effect behind a classified reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, in intent.Intent, payload intent.Payload)
}

// Journal records completed turns. Optional and best effort.
type Journal interface {
	RecordTurn(sessionKey, utterance, intent, spoken string, fallback bool) error
}

// Loop owns one conversation session.
type Loop struct {
	logger       *slog.Logger
	bus          *events.Bus
	listener     speech.Listener
	speaker      speech.Speaker
	builder      *prompt.Builder
	generator    Generator
	dispatcher   Dispatcher
	store        session.Store
	journal      Journal
	sessionKey   string
	historyLimit int

	history []session.Turn
}

// Options collects the loop's collaborators.
type Options struct {
	Logger       *slog.Logger
	Bus          *events.Bus
	Listener     speech.Listener
	Speaker      speech.Speaker
	Builder      *prompt.Builder
	Generator    Generator
	Dispatcher   Dispatcher
	Store        session.Store
	Journal      Journal
	SessionKey   string
	HistoryLimit int
}

// NewLoop creates a session loop. Journal may be nil.
func NewLoop(opts Options) *Loop {
	return &Loop{
		logger:       opts.Logger,
		bus:          opts.Bus,
		listener:     opts.Listener,
		speaker:      opts.Speaker,
		builder:      opts.Builder,
		generator:    opts.Generator,
		dispatcher:   opts.Dispatcher,
		store:        opts.Store,
		journal:      opts.Journal,
		sessionKey:   opts.SessionKey,
		historyLimit: opts.HistoryLimit,
	}
}

// Run loads the session history and processes turns until the input
// source is exhausted or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	history, err := l.store.Load(ctx, l.sessionKey)
	if err != nil {
		return err
	}
	if err := session.Validate(history); err != nil {
		return err
	}
	l.history = history
	l.logger.Info("session started", "session", l.sessionKey, "turns", len(history))

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		utterance, err := l.listener.Listen(ctx)
		switch {
		case errors.Is(err, io.EOF):
			l.logger.Info("input exhausted, ending session", "session", l.sessionKey)
			return nil
		case errors.Is(err, speech.ErrUnrecognized),
			errors.Is(err, speech.ErrBackendUnavailable):
			l.logger.Debug("utterance not captured", "error", err)
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return err
		}

		l.turn(ctx, utterance)
	}
}

// turn runs one full interaction cycle. Failures inside the turn are
// logged and the loop returns to listening.
func (l *Loop) turn(ctx context.Context, utterance string) {
	started := time.Now()
	l.bus.Publish(events.Event{
		Source: events.SourceLoop,
		Kind:   events.KindTurnStart,
		Data:   map[string]any{"session": l.sessionKey, "utterance_len": len(utterance)},
	})

	turnPrompt := l.builder.Build(ctx, utterance)
	raw, err := l.generator.Generate(ctx, l.history, turnPrompt)
	if err != nil {
		l.logger.Error("language backend failed, turn abandoned",
			"session", l.sessionKey, "error", err)
		l.bus.Publish(events.Event{
			Source: events.SourceLoop,
			Kind:   events.KindCollaboratorError,
			Data:   map[string]any{"collaborator": "llm", "error": err.Error()},
		})
		return
	}

	spoken := raw
	turnIntent := intent.IntentNone
	fallback := true

	if r, ok := reply.Parse(raw); ok {
		fallback = false
		spoken = r.Context
		var payload intent.Payload
		turnIntent, payload = intent.Route(r)
		l.dispatcher.Dispatch(ctx, turnIntent, payload)
	} else {
		// The raw text is still surfaced and persisted so the model
		// sees its own malformed output in the next turn's history.
		l.logger.Warn("reply failed the structured contract",
			"session", l.sessionKey, "bytes", len(raw))
		l.bus.Publish(events.Event{
			Source: events.SourceLoop,
			Kind:   events.KindReplyFallback,
			Data:   map[string]any{"session": l.sessionKey, "reply_len": len(raw)},
		})
	}

	// The model turn in history is what was spoken: the context of a
	// valid reply, or the raw text of a fallback. The action fields are
	// executed, not remembered.
	next, err := session.AppendExchange(l.history, utterance, spoken)
	if err != nil {
		l.logger.Error("exchange rejected, history unchanged",
			"session", l.sessionKey, "error", err)
		return
	}
	l.history = session.Clip(next, l.historyLimit)

	if err := l.store.Save(ctx, l.sessionKey, l.history); err != nil {
		l.logger.Error("history save failed",
			"session", l.sessionKey, "error", err)
	}

	if l.journal != nil {
		if err := l.journal.RecordTurn(l.sessionKey, utterance, turnIntent.String(), spoken, fallback); err != nil {
			l.logger.Warn("turn journal write failed", "error", err)
		}
	}

	if err := l.speaker.Speak(ctx, spoken); err != nil {
		l.logger.Warn("speech output failed", "error", err)
	}

	l.bus.Publish(events.Event{
		Source: events.SourceLoop,
		Kind:   events.KindTurnComplete,
		Data: map[string]any{
			"session":    l.sessionKey,
			"intent":     turnIntent.String(),
			"elapsed_ms": time.Since(started).Milliseconds(),
		},
	})
}
