package websocket

import (
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/util"
)

// Event is one frame of the ordered intent/plan/chunk/result/metadata/done
// sequence delivered over GET /v1/chat/stream/ws, mirroring the SSE variant
// of POST /v1/chat byte-for-byte in content (SPEC_FULL.md §7).
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent wraps a named payload with its timestamp.
func NewEvent(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()}
}

// ToJSON serializes the event using the same canonical encoder as every
// other wire payload in this core.
func (e Event) ToJSON() ([]byte, error) {
	return util.CanonicalJSON(e)
}
