// Package web provides the HTTP surface of the panic alarm daemon: the status
// page, arm/disarm controls, the browser credential prompt and a websocket
// feed of alarm events.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sweeney/panic-alarm/internal/alarm"
	"github.com/sweeney/panic-alarm/internal/status"
)

// Commands runs controller operations on behalf of HTTP clients.
type Commands interface {
	Toggle(ctx context.Context) error
	DismissPrompt(ctx context.Context) error
	LogOut(ctx context.Context) error
}

// Server serves the status page and the control API.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	cmds       Commands
	prompt     *Prompt
	hub        *Hub
}

// New creates a Server. cmds, prompt and hub may be nil; the matching
// endpoints then answer 503.
func New(addr string, tracker *status.Tracker, cmds Commands, prompt *Prompt, hub *Hub) *Server {
	s := &Server{tracker: tracker, cmds: cmds, prompt: prompt, hub: hub}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)

	r.HandleFunc("/api/toggle", s.handleToggle).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/api/prompt", s.handlePromptGet).Methods(http.MethodGet)
	r.HandleFunc("/api/prompt", s.handlePromptSubmit).Methods(http.MethodPost)
	r.HandleFunc("/api/prompt", s.handlePromptDismiss).Methods(http.MethodDelete)

	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler returns the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, s.prompt)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if s.cmds == nil {
		writeError(w, http.StatusServiceUnavailable, "controls disabled")
		return
	}
	if err := s.cmds.Toggle(r.Context()); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ResultJSON{OK: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.cmds == nil {
		writeError(w, http.StatusServiceUnavailable, "controls disabled")
		return
	}
	if err := s.cmds.LogOut(r.Context()); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ResultJSON{OK: true})
}

func (s *Server) handlePromptGet(w http.ResponseWriter, r *http.Request) {
	if s.prompt == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt disabled")
		return
	}
	header, pending := s.prompt.Pending()
	writeJSON(w, http.StatusOK, PromptJSON{Pending: pending, Header: header})
}

func (s *Server) handlePromptSubmit(w http.ResponseWriter, r *http.Request) {
	if s.prompt == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt disabled")
		return
	}

	var req SubmitJSON
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.prompt.Submit(req.Password) {
		writeError(w, http.StatusConflict, "no credential prompt pending")
		return
	}
	writeJSON(w, http.StatusAccepted, ResultJSON{OK: true})
}

func (s *Server) handlePromptDismiss(w http.ResponseWriter, r *http.Request) {
	if s.prompt == nil || s.cmds == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt disabled")
		return
	}
	if !s.prompt.Dismiss() {
		writeError(w, http.StatusConflict, "no credential prompt pending")
		return
	}
	if err := s.cmds.DismissPrompt(r.Context()); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultJSON{OK: true})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "live feed disabled")
		return
	}
	s.hub.ServeHTTP(w, r)
}

func writeCommandError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, alarm.ErrBusy), errors.Is(err, alarm.ErrNotArmed):
		code = http.StatusConflict
	case errors.Is(err, alarm.ErrLoopStopped):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	writeError(w, code, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ResultJSON{OK: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
