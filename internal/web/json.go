package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/panic-alarm/internal/logic"
)

// ResultJSON is the response of every control endpoint.
type ResultJSON struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// PromptJSON describes the pending credential prompt.
type PromptJSON struct {
	Pending bool   `json:"pending"`
	Header  string `json:"header,omitempty"`
}

// SubmitJSON is the body of POST /api/prompt.
type SubmitJSON struct {
	Password string `json:"password"`
}

// EventJSON is one message on the websocket feed.
type EventJSON struct {
	Event EventInner `json:"event"`
}

// EventInner contains the event details.
type EventInner struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Gesture   string `json:"gesture,omitempty"`
	Armed     bool   `json:"armed"`
	Reason    string `json:"reason,omitempty"`
}

func formatEvent(e logic.Event) ([]byte, error) {
	inner := EventInner{
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Type:      string(e.Type),
		Armed:     e.Armed,
		Reason:    e.Reason,
	}
	if e.Gesture != logic.GestureNone {
		inner.Gesture = e.Gesture.String()
	}
	return json.Marshal(EventJSON{Event: inner})
}
