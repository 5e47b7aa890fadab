// Package session provides the keyed conversation history store. A
// session owns an ordered sequence of turns that strictly alternate
// between the user and the model; the full sequence is persisted once
// per completed interaction cycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Turn roles. Roles follow the Gemini chat convention so stored
// history replays directly into the backend.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrRoleOrder is returned when an appended sequence would break the
// strict user/model alternation invariant.
var ErrRoleOrder = errors.New("turns must alternate user and model roles")

// Turn is one role-tagged message in a conversation. Turns are
// immutable once appended.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is the conversation history contract. Load returns an empty
// sequence, not an error, when no prior state exists for the key.
// Save rewrites the full sequence; it is called once per completed
// interaction cycle.
type Store interface {
	Load(ctx context.Context, key string) ([]Turn, error)
	Save(ctx context.Context, key string, turns []Turn) error
}

// NewKey derives a fresh session key from the session start time. A
// short uuid suffix keeps keys unique when two sessions start within
// the same second.
func NewKey(now time.Time) string {
	return fmt.Sprintf("%s-%s", now.Format("20060102-150405"), uuid.NewString()[:8])
}

// Validate checks the alternation invariant over a full sequence: the
// first turn is a user turn and roles alternate strictly after that.
func Validate(turns []Turn) error {
	for i, turn := range turns {
		want := RoleUser
		if i%2 == 1 {
			want = RoleModel
		}
		if turn.Role != want {
			return fmt.Errorf("%w: turn %d has role %q, want %q", ErrRoleOrder, i, turn.Role, want)
		}
	}
	return nil
}

// AppendExchange appends one completed interaction cycle — a user turn
// followed by a model turn — to the history, enforcing alternation.
func AppendExchange(turns []Turn, user, model string) ([]Turn, error) {
	next := append(turns,
		Turn{Role: RoleUser, Content: user},
		Turn{Role: RoleModel, Content: model},
	)
	if err := Validate(next); err != nil {
		return nil, err
	}
	return next, nil
}

// Clip trims the history to at most limit turns, keeping the most
// recent ones. The cut always lands on an exchange boundary so the
// alternation invariant survives: an odd limit rounds up, so the
// latest exchange is always retained. A limit of zero disables
// clipping.
func Clip(turns []Turn, limit int) []Turn {
	if limit <= 0 {
		return turns
	}
	if limit%2 == 1 {
		limit++
	}
	if len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}
