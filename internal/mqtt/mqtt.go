// Package mqtt publishes alarm events and daemon lifecycle events to a broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/panic-alarm/internal/logic"
)

// Topic carries alarm events (arm, disarm, gestures, alarms).
const Topic = "safety/panic-alarm/events"

// TopicSystem carries lifecycle events: STARTUP, SHUTDOWN, HEARTBEAT,
// RECONNECTED and the OFFLINE will.
const TopicSystem = "safety/panic-alarm/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an alarm event. Failures are returned, never fatal.
	Publish(event logic.Event) error

	// PublishSystem sends a lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // STARTUP, SHUTDOWN, HEARTBEAT
	Reason     string // SIGTERM, SIGINT (shutdown only)
	RawPayload []byte // preformatted status snapshot; used as-is when set
	Retained   bool
}

// Payload is the alarm event message.
type Payload struct {
	Alarm AlarmPayload `json:"alarm"`
}

// AlarmPayload contains the event details.
type AlarmPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Gesture   string `json:"gesture,omitempty"`
	Armed     bool   `json:"armed"`
	Reason    string `json:"reason,omitempty"`
}

// FormatPayload creates the JSON payload for an alarm event.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := Payload{
		Alarm: AlarmPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Armed:     event.Armed,
			Reason:    event.Reason,
		},
	}
	if event.Gesture != logic.GestureNone {
		p.Alarm.Gesture = event.Gesture.String()
	}
	return json.Marshal(p)
}

// SystemPayload is the message for lifecycle events without a status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the lifecycle event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a lifecycle event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
