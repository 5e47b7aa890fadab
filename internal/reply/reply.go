// Package reply defines the structured output contract for the
// language backend and the validator that enforces it. A reply that
// fails the contract is carried through as opaque raw text (a
// fallback), never dispatched.
package reply

import (
	"encoding/json"
	"strings"
)

// Function values the backend may set to request an action.
const (
	FuncLightToggle = "light_toggle"
	FuncTimer       = "timer"
	FuncSendMessage = "send_message"
)

// Reply is a parsed structured reply from the language backend.
//
// Context is the only unconditionally required field: it is what the
// assistant shows and speaks for every valid reply. The remaining
// fields are optional and their per-intent presence rules are enforced
// by the intent router, not here.
type Reply struct {
	Context      string `json:"context"`
	Function     string `json:"function,omitempty"`
	LightToggle  string `json:"light_toggle,omitempty"`
	Location     string `json:"location,omitempty"`
	TimerSeconds int    `json:"timer_seconds,omitempty"`
	Respond      string `json:"respond,omitempty"`
	// SendWebhook is a pointer because its presence matters: the
	// send_message rules distinguish "absent" from "false".
	SendWebhook *bool `json:"send_webhook,omitempty"`
}

// WebhookRequested reports whether send_webhook is present and true.
func (r *Reply) WebhookRequested() bool {
	return r.SendWebhook != nil && *r.SendWebhook
}

// WebhookPresent reports whether the send_webhook field appeared in
// the reply at all, regardless of its value.
func (r *Reply) WebhookPresent() bool {
	return r.SendWebhook != nil
}

// Parse attempts a strict parse of raw backend output into a Reply.
// It returns (nil, false) when the text is not well-formed JSON or
// lacks the mandatory context field; the caller must then surface the
// raw text verbatim. Parse never returns an error and never panics.
func Parse(raw string) (*Reply, bool) {
	text := stripFences(raw)
	if text == "" {
		return nil, false
	}

	var r Reply
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, false
	}
	if strings.TrimSpace(r.Context) == "" {
		// A reply without context is useless to every downstream
		// consumer; treat it the same as a parse failure.
		return nil, false
	}
	return &r, true
}

// stripFences removes a surrounding markdown code fence. Models
// occasionally wrap JSON output in ```json blocks even when asked for
// a raw JSON response.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
