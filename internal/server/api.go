package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/gestureart/internal/formation"
	"github.com/ayusman/gestureart/internal/session"
	"github.com/ayusman/gestureart/internal/theme"
)

// State is the scene summary returned by /api/state and pushed to WebSocket
// clients as a "state" message.
type State struct {
	Type      string         `json:"type,omitempty"`
	Formation formation.Kind `json:"formation"`
	Label     string         `json:"label"`
	Theme     string         `json:"theme"`
	ThemeName string         `json:"themeName"`
	Themes    []string       `json:"themes"`
	Camera    bool           `json:"camera"`
	Gesture   string         `json:"gesture"`
	Particles int            `json:"particles"`
}

func buildState(scene *session.Controller, tracker *session.Tracker) State {
	st := scene.Status()
	state := State{
		Formation: st.Formation,
		Label:     st.Label,
		Theme:     st.Theme,
		ThemeName: st.ThemeName,
		Themes:    scene.Themes().Keys(),
		Gesture:   "none",
		Particles: st.Particles,
	}
	if tracker != nil {
		ts := tracker.Status()
		state.Camera = ts.Running
		state.Gesture = ts.Gesture.String()
	}
	return state
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildState(s.config.Scene, s.config.Tracker))
}

// handleFormation backs the demo controls: a press sends the formation, a
// release sends "none".
func (s *Server) handleFormation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	kind, err := formation.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.config.Scene.SetFormation(kind); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, err := s.config.Scene.SetTheme(req.Name); err != nil {
		if errors.Is(err, theme.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNextTheme(w http.ResponseWriter, r *http.Request) {
	th, err := s.config.Scene.CycleTheme()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"theme": th.Key,
		"name":  th.Name,
	})
}

func (s *Server) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	if s.config.Tracker == nil {
		writeError(w, http.StatusServiceUnavailable, session.ErrTrackerUnavailable.Error())
		return
	}

	if err := s.config.Tracker.Start(s.ctx); err != nil {
		s.logger.Warn("camera start failed", "err", err)
		if s.hub != nil {
			s.hub.Notice("Camera unavailable. Demo controls still work.")
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCameraStop(w http.ResponseWriter, r *http.Request) {
	if s.config.Tracker != nil {
		s.config.Tracker.Stop()
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
