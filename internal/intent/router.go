// Package intent classifies validated structured replies into action
// intents. Classification is pure: the router only inspects the reply
// and extracts a typed payload, it never touches a collaborator, so
// the dispatch policy is testable without any I/O.
package intent

import "github.com/mirahq/mira-agent/internal/reply"

// Intent is the classified action category derived from a reply.
type Intent int

const (
	// IntentNone means the reply satisfied no rule; the caller must
	// surface the raw text instead of dispatching.
	IntentNone Intent = iota
	// IntentLightToggle switches a device zone on or off.
	IntentLightToggle
	// IntentTimer schedules a countdown timer.
	IntentTimer
	// IntentSendMessage delivers a message through the notifier.
	IntentSendMessage
	// IntentGeneral is a plain spoken reply with no side effect.
	IntentGeneral
)

func (i Intent) String() string {
	switch i {
	case IntentLightToggle:
		return "light_toggle"
	case IntentTimer:
		return "timer"
	case IntentSendMessage:
		return "send_message"
	case IntentGeneral:
		return "general"
	default:
		return "none"
	}
}

// Payload carries the fields a handler needs for one intent. Exactly
// one concrete type corresponds to each intent.
type Payload interface {
	isPayload()
}

// LightTogglePayload switches the named location's zone.
type LightTogglePayload struct {
	Location string
	On       bool
}

// TimerPayload schedules a countdown of Seconds.
type TimerPayload struct {
	Seconds int
}

// MessagePayload delivers Respond when SendWebhook is set.
type MessagePayload struct {
	Respond     string
	SendWebhook bool
}

// GeneralPayload surfaces Context with no side effect.
type GeneralPayload struct {
	Context string
}

func (LightTogglePayload) isPayload() {}
func (TimerPayload) isPayload()       {}
func (MessagePayload) isPayload()     {}
func (GeneralPayload) isPayload()     {}

// rule pairs an intent with its predicate/extractor. Rules are
// evaluated in declaration order and the first match wins, so the
// tie-break policy is visible here rather than buried in control flow.
type rule struct {
	intent  Intent
	extract func(r *reply.Reply) (Payload, bool)
}

var rules = []rule{
	// light_toggle outranks everything, including a simultaneous
	// top-level send_webhook.
	{IntentLightToggle, func(r *reply.Reply) (Payload, bool) {
		if r.Function != reply.FuncLightToggle {
			return nil, false
		}
		if r.LightToggle != "on" && r.LightToggle != "off" {
			return nil, false
		}
		if r.Location == "" {
			return nil, false
		}
		return LightTogglePayload{Location: r.Location, On: r.LightToggle == "on"}, true
	}},
	{IntentTimer, func(r *reply.Reply) (Payload, bool) {
		if r.Function != reply.FuncTimer || r.TimerSeconds <= 0 {
			return nil, false
		}
		return TimerPayload{Seconds: r.TimerSeconds}, true
	}},
	{IntentSendMessage, func(r *reply.Reply) (Payload, bool) {
		if r.Function != reply.FuncSendMessage {
			return nil, false
		}
		if r.Respond == "" || !r.WebhookPresent() {
			return nil, false
		}
		return MessagePayload{Respond: r.Respond, SendWebhook: r.WebhookRequested()}, true
	}},
	// A top-level send_webhook=true routes to send_message even
	// without the function field.
	{IntentSendMessage, func(r *reply.Reply) (Payload, bool) {
		if !r.WebhookRequested() || r.Respond == "" {
			return nil, false
		}
		return MessagePayload{Respond: r.Respond, SendWebhook: true}, true
	}},
	{IntentGeneral, func(r *reply.Reply) (Payload, bool) {
		return GeneralPayload{Context: r.Context}, true
	}},
}

// Route classifies a validated reply. It returns IntentNone with a nil
// payload when no rule matches (only possible for a nil reply, since
// every parsed reply carries context and therefore matches the general
// rule).
func Route(r *reply.Reply) (Intent, Payload) {
	if r == nil {
		return IntentNone, nil
	}
	for _, rule := range rules {
		if p, ok := rule.extract(r); ok {
			return rule.intent, p
		}
	}
	return IntentNone, nil
}
