/*

This file contains the structured events the portfolio emits on every state
transition. The engine performs no persistence or network I/O itself; a
caller-supplied sink decides whether events are logged, stored, or fanned
out.

*/

package portfolio

import (
	"time"

	"github.com/solyield/lprisk/internal/logger"
)

// EventType identifies a position state transition.
type EventType string

const (
	EventOpened   EventType = "position_opened"
	EventRevalued EventType = "position_revalued"
	EventClosed   EventType = "position_closed"
	EventFailed   EventType = "position_failed"
)

// PositionEvent is emitted on every transition.
type PositionEvent struct {
	PositionID string            `json:"position_id"`
	Type       EventType         `json:"type"`
	Timestamp  time.Time         `json:"timestamp"` // snapshot time, never wall clock
	Fields     map[string]string `json:"fields,omitempty"`
}

// EventSink receives position events. Implementations must not block; the
// portfolio holds its lock while emitting.
type EventSink interface {
	Emit(event PositionEvent)
}

// LogSink is the default sink: events go to the component logger and
// nowhere else.
type LogSink struct{}

func (LogSink) Emit(event PositionEvent) {
	log := logger.GetForComponent("portfolio")
	entry := log.Debug().
		Str("position_id", event.PositionID).
		Str("event", string(event.Type)).
		Time("at", event.Timestamp)
	for k, v := range event.Fields {
		entry = entry.Str(k, v)
	}
	entry.Msg("Position event")
}
