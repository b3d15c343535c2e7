// Package events defines the discrete units pushed through a task's event
// channel: log lines, progress updates, and the terminal result or error.
// Events are produced exclusively by the pipeline engine that owns a task
// and are never mutated after creation, so they can be fanned out to any
// number of sequentially attached consumers.
package events

import (
	"encoding/json"
	"time"
)

// Kind identifies the payload shape of an Event.
type Kind string

// Possible event kinds
const (
	KindLog      Kind = "log"
	KindProgress Kind = "progress"
	KindResult   Kind = "result"
	KindError    Kind = "error"
)

// Event is a single immutable message in a task's event stream. Exactly one
// of the payload fields is set, matching Kind.
type Event struct {
	// Kind indicates which payload field carries data
	Kind Kind `json:"type"`

	// Message carries the payload for log and error events
	Message string `json:"message,omitempty"`

	// Progress carries the payload for progress events
	Progress *ProgressPayload `json:"progress,omitempty"`

	// Result carries the payload for the terminal result event,
	// pre-serialized so consumers never share mutable state
	Result json.RawMessage `json:"result,omitempty"`

	// At is the production timestamp
	At time.Time `json:"at"`
}

// ProgressPayload reports how far a task has advanced.
type ProgressPayload struct {
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// Terminal reports whether the event ends its task's stream. The channel is
// closed immediately after appending a terminal event.
func (e Event) Terminal() bool {
	return e.Kind == KindResult || e.Kind == KindError
}

// NewLog creates a log event.
func NewLog(message string) Event {
	return Event{Kind: KindLog, Message: message, At: time.Now().UTC()}
}

// NewProgress creates a progress event.
func NewProgress(percent int, message string) Event {
	return Event{
		Kind:     KindProgress,
		Progress: &ProgressPayload{Percent: percent, Message: message},
		At:       time.Now().UTC(),
	}
}

// NewResult creates the terminal result event. The payload is serialized
// eagerly; a marshal failure is returned to the producer rather than
// surfacing later on a consumer.
func NewResult(payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Kind: KindResult, Result: data, At: time.Now().UTC()}, nil
}

// NewError creates the terminal error event.
func NewError(message string) Event {
	return Event{Kind: KindError, Message: message, At: time.Now().UTC()}
}
