package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/panic-alarm/internal/alarm"
	"github.com/sweeney/panic-alarm/internal/logic"
	"github.com/sweeney/panic-alarm/internal/status"
)

type fakeCommands struct {
	mu         sync.Mutex
	toggles    int
	dismisses  int
	logouts    int
	toggleErr  error
	dismissErr error
}

func (f *fakeCommands) Toggle(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	return f.toggleErr
}

func (f *fakeCommands) DismissPrompt(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismisses++
	return f.dismissErr
}

func (f *fakeCommands) LogOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return nil
}

func (f *fakeCommands) counts() (toggles, dismisses, logouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toggles, f.dismisses, f.logouts
}

type testServer struct {
	ts      *httptest.Server
	tracker *status.Tracker
	cmds    *fakeCommands
	prompt  *Prompt
	hub     *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Variant:      "exclusive",
		Policy:       "latch",
		WindowMs:     2000,
		Threshold:    5,
		EffectMs:     5000,
		HeartbeatMs:  900000,
		MotionSource: "iio",
		Broker:       "tcp://192.168.1.200:1883",
		HTTPAddr:     ":80",
	}
	s := &testServer{
		tracker: status.NewTracker(start, cfg),
		cmds:    &fakeCommands{},
		prompt:  NewPrompt(),
		hub:     NewHub(),
	}
	srv := New(":0", s.tracker, s.cmds, s.prompt, s.hub)
	s.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		s.hub.Close()
		s.ts.Close()
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, ResultJSON) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var res ResultJSON
	json.NewDecoder(resp.Body).Decode(&res)
	return resp, res
}

func TestJSONEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.tracker.Update(alarm.Snapshot{
		State:  alarm.StateArmed,
		Armed:  true,
		Counts: logic.FireCounts{Left: 2, Alarm: 1},
	})
	s.tracker.SetMQTTConnected(true)

	resp, err := http.Get(s.ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.State != "ARMED" || !sj.Status.Armed {
		t.Errorf("state = %q armed = %v", sj.Status.State, sj.Status.Armed)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.Left != 2 || sj.Status.Counts.Alarm != 1 {
		t.Errorf("counts = %+v", sj.Status.Counts)
	}
	if sj.Status.Config.Policy != "latch" {
		t.Errorf("Config.Policy: got %q", sj.Status.Config.Policy)
	}
}

func TestHTMLEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.tracker.Update(alarm.Snapshot{
		State:         alarm.StateArmed,
		Armed:         true,
		LastGesture:   logic.GestureVertical,
		LastGestureAt: time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC),
		LastError:     "flashlight: busy",
	})

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(s.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s Content-Type: got %q", path, ct)
		}
		html := string(body)
		for _, want := range []string{
			"<title>Panic Alarm</title>",
			`class="armed">ARMED</td>`,
			">Disarm</button>",
			"vertical at 2026-01-01T00:05:00Z",
			"flashlight: busy",
			"tcp://192.168.1.200:1883",
			`<div id="prompt" hidden>`,
		} {
			if !strings.Contains(html, want) {
				t.Errorf("%s: missing %q", path, want)
			}
		}
	}
}

func TestHTMLShowsPendingPrompt(t *testing.T) {
	s := newTestServer(t)
	s.prompt.PromptCredential(context.Background(), "Enter your password", func(string) {})

	resp, err := http.Get(s.ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	html := string(body)
	if strings.Contains(html, `<div id="prompt" hidden>`) {
		t.Error("prompt should be visible")
	}
	if !strings.Contains(html, "Enter your password") {
		t.Error("prompt header missing")
	}
}

func TestUnknownRoutes(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodPost, "/index.json", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/toggle", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/prompt", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			resp, _ := s.do(t, tt.method, tt.path, "")
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestToggle(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"busy", fmt.Errorf("%w: ARMING", alarm.ErrBusy), http.StatusConflict},
		{"stopped", alarm.ErrLoopStopped, http.StatusServiceUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.cmds.toggleErr = tt.err

			resp, res := s.do(t, http.MethodPost, "/api/toggle", "")
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if res.OK != (tt.err == nil) {
				t.Errorf("ok = %v, error = %q", res.OK, res.Error)
			}
			if toggles, _, _ := s.cmds.counts(); toggles != 1 {
				t.Errorf("toggles = %d, want 1", toggles)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	resp, res := s.do(t, http.MethodPost, "/api/logout", "")
	if resp.StatusCode != http.StatusAccepted || !res.OK {
		t.Errorf("status = %d, result = %+v", resp.StatusCode, res)
	}
	if _, _, logouts := s.cmds.counts(); logouts != 1 {
		t.Errorf("logouts = %d, want 1", logouts)
	}
}

func TestPromptSubmit(t *testing.T) {
	s := newTestServer(t)

	getPrompt := func() PromptJSON {
		resp, err := http.Get(s.ts.URL + "/api/prompt")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var p PromptJSON
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return p
	}

	if p := getPrompt(); p.Pending {
		t.Fatalf("prompt pending before any request: %+v", p)
	}

	var mu sync.Mutex
	var got []string
	s.prompt.PromptCredential(context.Background(), "header", func(pw string) {
		mu.Lock()
		got = append(got, pw)
		mu.Unlock()
	})

	if p := getPrompt(); !p.Pending || p.Header != "header" {
		t.Fatalf("prompt = %+v", p)
	}

	resp, _ := s.do(t, http.MethodPost, "/api/prompt", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", resp.StatusCode)
	}

	resp, res := s.do(t, http.MethodPost, "/api/prompt", `{"password":"secret"}`)
	if resp.StatusCode != http.StatusAccepted || !res.OK {
		t.Errorf("submit status = %d, result = %+v", resp.StatusCode, res)
	}
	mu.Lock()
	if len(got) != 1 || got[0] != "secret" {
		t.Errorf("submitted %v, want [secret]", got)
	}
	mu.Unlock()

	resp, _ = s.do(t, http.MethodPost, "/api/prompt", `{"password":"again"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second submit status = %d, want 409", resp.StatusCode)
	}
	if p := getPrompt(); p.Pending {
		t.Error("prompt still pending after submit")
	}
}

func TestPromptDismiss(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodDelete, "/api/prompt", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("dismiss without prompt = %d, want 409", resp.StatusCode)
	}

	submitted := false
	s.prompt.PromptCredential(context.Background(), "header", func(string) { submitted = true })

	resp, res := s.do(t, http.MethodDelete, "/api/prompt", "")
	if resp.StatusCode != http.StatusOK || !res.OK {
		t.Errorf("dismiss status = %d, result = %+v", resp.StatusCode, res)
	}
	if _, dismisses, _ := s.cmds.counts(); dismisses != 1 {
		t.Errorf("dismisses = %d, want 1", dismisses)
	}
	if submitted {
		t.Error("dismiss must not submit a credential")
	}
	if _, pending := s.prompt.Pending(); pending {
		t.Error("prompt still pending")
	}
}

func TestNilDependencies(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil, nil, nil).Handler())
	defer ts.Close()

	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/api/toggle"},
		{http.MethodPost, "/api/logout"},
		{http.MethodGet, "/api/prompt"},
		{http.MethodDelete, "/api/prompt"},
		{http.MethodGet, "/ws"},
	} {
		req, _ := http.NewRequest(r.method, ts.URL+r.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", r.method, r.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s %s = %d, want 503", r.method, r.path, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("index without controls = %d, want 200", resp.StatusCode)
	}
}

func TestWebsocketReceivesEvents(t *testing.T) {
	s := newTestServer(t)

	url := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ts := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)
	err = s.hub.Publish(logic.Event{Timestamp: ts, Type: logic.EventGesture, Gesture: logic.GestureLeft, Armed: true})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg EventJSON
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	want := EventInner{Timestamp: "2026-01-01T00:00:01Z", Type: "GESTURE", Gesture: "left", Armed: true}
	if msg.Event != want {
		t.Errorf("event = %+v, want %+v", msg.Event, want)
	}

	s.hub.Close()
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection closed after hub Close")
	}
	if n := s.hub.Clients(); n != 0 {
		t.Errorf("clients = %d after Close", n)
	}
}

func TestFormatEvent_OmitsNoneGesture(t *testing.T) {
	b, err := formatEvent(logic.Event{Type: logic.EventArmed, Armed: true})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "gesture") {
		t.Errorf("payload %s should omit gesture", b)
	}
}
