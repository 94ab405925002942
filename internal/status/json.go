package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/panic-alarm/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	State          string       `json:"state"`
	Armed          bool         `json:"armed"`
	LastGesture    string       `json:"last_gesture,omitempty"`
	LastGestureAt  string       `json:"last_gesture_at,omitempty"`
	CleanupPending bool         `json:"cleanup_pending"`
	LogoutPending  bool         `json:"logout_pending"`
	LastError      string       `json:"last_error,omitempty"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Counts         CountsJSON   `json:"fire_counts"`
	Network        *NetworkJSON `json:"network,omitempty"`
	Config         ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of fire counts.
type CountsJSON struct {
	Left       int `json:"left"`
	Right      int `json:"right"`
	Vertical   int `json:"vertical"`
	Horizontal int `json:"horizontal"`
	Alarm      int `json:"alarm"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Variant       string  `json:"variant"`
	Policy        string  `json:"policy"`
	WindowMs      int64   `json:"window_ms"`
	Threshold     float64 `json:"threshold"`
	EffectMs      int64   `json:"effect_ms"`
	LogoutDelayMs int64   `json:"logout_delay_ms"`
	TickMs        int64   `json:"tick_ms"`
	HeartbeatMs   int64   `json:"heartbeat_ms"`
	MotionSource  string  `json:"motion_source"`
	Broker        string  `json:"broker"`
	HTTPAddr      string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	a := snap.Alarm
	inner := StatusInner{
		State:          a.State.String(),
		Armed:          a.Armed,
		CleanupPending: a.CleanupPending,
		LogoutPending:  a.LogoutPending,
		LastError:      a.LastError,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Left:       a.Counts.Left,
			Right:      a.Counts.Right,
			Vertical:   a.Counts.Vertical,
			Horizontal: a.Counts.Horizontal,
			Alarm:      a.Counts.Alarm,
		},
		Config: ConfigJSON{
			Variant:       snap.Config.Variant,
			Policy:        snap.Config.Policy,
			WindowMs:      snap.Config.WindowMs,
			Threshold:     snap.Config.Threshold,
			EffectMs:      snap.Config.EffectMs,
			LogoutDelayMs: snap.Config.LogoutDelayMs,
			TickMs:        snap.Config.TickMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			MotionSource:  snap.Config.MotionSource,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}
	if a.LastGesture != logic.GestureNone {
		inner.LastGesture = a.LastGesture.String()
		inner.LastGestureAt = a.LastGestureAt.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT lifecycle event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
