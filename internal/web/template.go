package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/panic-alarm/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Panic Alarm</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
button { font-family: monospace; font-size: 1em; padding: 6px 14px; margin-right: 8px; }
.armed { color: red; font-weight: bold; }
.disarmed { color: #888; }
.busy { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.error { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
#prompt { border: 2px solid red; padding: 1em; margin: 1em 0; }
</style>
</head>
<body>
<h1>Panic Alarm<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Alarm</h2>
<table>
<tr><th>State</th><td id="alarm-state" class="{{.StateClass}}">{{.Alarm.State}}</td></tr>
<tr><th>Armed</th><td id="alarm-armed">{{if .Alarm.Armed}}yes{{else}}no{{end}}</td></tr>
<tr><th>Last gesture</th><td id="last-gesture">{{if .Alarm.LastGestureAt.IsZero}}none{{else}}{{.Alarm.LastGesture}} at {{stamp .Alarm.LastGestureAt}}{{end}}</td></tr>
<tr><th>Effect running</th><td>{{if .Alarm.CleanupPending}}until {{stamp .Alarm.CleanupDue}}{{else}}no{{end}}</td></tr>
{{if .Alarm.LogoutPending}}<tr><th>Logout</th><td>at {{stamp .Alarm.LogoutAt}}</td></tr>{{end}}
{{if .Alarm.LastError}}<tr><th>Last error</th><td class="error">{{.Alarm.LastError}}</td></tr>{{end}}
</table>

<p>
<button id="toggle" onclick="post('/api/toggle')">{{if .Alarm.Armed}}Disarm{{else}}Arm{{end}}</button>
<button id="logout" onclick="post('/api/logout')">Log out</button>
<span id="result"></span>
</p>

<div id="prompt"{{if not .PromptPending}} hidden{{end}}>
<p id="prompt-header">{{.PromptHeader}}</p>
<form id="prompt-form">
<input type="password" id="password" autocomplete="current-password">
<button type="submit">Submit</button>
<button type="button" id="prompt-cancel">Cancel</button>
</form>
</div>

<h2>Fire Counts</h2>
<table>
<tr><th>Left</th><td>{{.Alarm.Counts.Left}}</td></tr>
<tr><th>Right</th><td>{{.Alarm.Counts.Right}}</td></tr>
<tr><th>Vertical</th><td>{{.Alarm.Counts.Vertical}}</td></tr>
<tr><th>Horizontal</th><td>{{.Alarm.Counts.Horizontal}}</td></tr>
<tr><th>Alarm</th><td>{{.Alarm.Counts.Alarm}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Motion</th><td>{{.Config.MotionSource}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{stamp .StartTime}}</td></tr>
<tr><th>Variant</th><td>{{.Config.Variant}}</td></tr>
<tr><th>Policy</th><td>{{.Config.Policy}}{{if eq .Config.Policy "window"}} ({{.Config.WindowMs}}ms){{end}}</td></tr>
<tr><th>Threshold</th><td>{{.Config.Threshold}}</td></tr>
<tr><th>Effect</th><td>{{.Config.EffectMs}}ms</td></tr>
<tr><th>Logout delay</th><td>{{.Config.LogoutDelayMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>

<script>
(function() {
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("alarm-state");
  var armedEl = document.getElementById("alarm-armed");
  var gestureEl = document.getElementById("last-gesture");
  var toggleBtn = document.getElementById("toggle");
  var resultEl = document.getElementById("result");
  var promptEl = document.getElementById("prompt");
  var headerEl = document.getElementById("prompt-header");
  var pwEl = document.getElementById("password");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function setArmed(armed) {
    armedEl.textContent = armed ? "yes" : "no";
    toggleBtn.textContent = armed ? "Disarm" : "Arm";
  }

  function showResult(r) {
    resultEl.textContent = r.ok ? "" : r.error;
    resultEl.className = r.ok ? "" : "error";
  }

  function request(method, url, body) {
    var opts = { method: method, headers: {} };
    if (body) {
      opts.headers["Content-Type"] = "application/json";
      opts.body = JSON.stringify(body);
    }
    return fetch(url, opts).then(function(r) { return r.json(); }).then(showResult);
  }

  window.post = function(url) { return request("POST", url); };

  function openPrompt() {
    fetch("/api/prompt").then(function(r) { return r.json(); }).then(function(p) {
      if (!p.pending) return;
      headerEl.textContent = p.header;
      promptEl.hidden = false;
      pwEl.value = "";
      pwEl.focus();
    });
  }

  document.getElementById("prompt-form").addEventListener("submit", function(e) {
    e.preventDefault();
    promptEl.hidden = true;
    request("POST", "/api/prompt", { password: pwEl.value });
    pwEl.value = "";
  });

  document.getElementById("prompt-cancel").addEventListener("click", function() {
    promptEl.hidden = true;
    request("DELETE", "/api/prompt");
  });

  function onEvent(ev) {
    setArmed(ev.armed);
    switch (ev.type) {
    case "ARMED":
      stateEl.textContent = "ARMED"; stateEl.className = "armed"; break;
    case "DISARMED":
    case "LOGOUT":
    case "PERMISSION_DENIED":
      stateEl.textContent = "DISARMED"; stateEl.className = "disarmed"; break;
    case "PROMPT":
      stateEl.textContent = "AWAITING_CREDENTIAL"; stateEl.className = "busy"; openPrompt(); break;
    case "ALARM":
      stateEl.textContent = "ARMED"; stateEl.className = "armed"; break;
    case "GESTURE":
      gestureEl.textContent = ev.gesture + " at " + ev.timestamp; break;
    }
    if (ev.reason) {
      resultEl.textContent = ev.type + ": " + ev.reason;
      resultEl.className = "error";
    }
  }

  function connect() {
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(scheme + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onerror = function() { setDot("err", "error"); };
    ws.onclose = function() {
      setDot("pending", "reconnecting");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(m) {
      try {
        var msg = JSON.parse(m.data);
        if (msg.event) onEvent(msg.event);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func stateClass(state string, armed bool) string {
	switch {
	case state == "ARMING" || state == "AWAITING_CREDENTIAL":
		return "busy"
	case armed:
		return "armed"
	}
	return "disarmed"
}

func renderHTML(w io.Writer, snap status.Snapshot, prompt *Prompt) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime        time.Duration
		StateClass    string
		PromptPending bool
		PromptHeader  string
	}{
		Snapshot:   snap,
		Uptime:     snap.Uptime(),
		StateClass: stateClass(snap.Alarm.State.String(), snap.Alarm.Armed),
	}
	if prompt != nil {
		data.PromptHeader, data.PromptPending = prompt.Pending()
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
