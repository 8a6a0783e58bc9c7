package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/openhamclock/rigd/internal/auth"
)

// registerRoutes wires the handlers onto the mux. When auth middleware is
// present the write endpoints require the control scope; reads stay open.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/stream", s.handleStream)
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/freq", s.protect(s.handleFreq))
	s.mux.HandleFunc("/mode", s.protect(s.handleMode))
	s.mux.HandleFunc("/ptt", s.protect(s.handlePTT))
}

func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	if s.authMW == nil {
		return next
	}
	return s.authMW.RequireScope(auth.ScopeControl, next)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(s.status.Snapshot()))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.stream.Subscribe(r.Context(), w, r); err != nil {
		log.Printf("[WARN] api: stream subscription ended: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap := s.status.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"version":     Version,
		"uptimeSec":   int64(time.Since(s.started).Seconds()),
		"connected":   snap.Connected,
		"subscribers": s.stream.SubscriberCount(),
	})
}

type freqRequest struct {
	Freq *int64 `json:"freq"`
	Tune bool   `json:"tune"`
}

func (s *Server) handleFreq(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req freqRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Freq == nil {
		writeError(w, http.StatusBadRequest, "missing required field: freq")
		return
	}
	if *req.Freq <= 0 {
		writeError(w, http.StatusBadRequest, "freq must be a positive frequency in Hz")
		return
	}

	if err := s.controller.SetFrequency(r.Context(), *req.Freq, req.Tune); err != nil {
		writeCommandError(w, err)
		return
	}
	writeSuccess(w)
}

type modeRequest struct {
	Mode     string `json:"mode"`
	Passband int    `json:"passband"`
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Mode == "" {
		writeError(w, http.StatusBadRequest, "missing required field: mode")
		return
	}
	if req.Passband < 0 {
		writeError(w, http.StatusBadRequest, "passband must be non-negative")
		return
	}

	if err := s.controller.SetMode(r.Context(), req.Mode, req.Passband); err != nil {
		writeCommandError(w, err)
		return
	}
	writeSuccess(w)
}

type pttRequest struct {
	PTT *bool `json:"ptt"`
}

func (s *Server) handlePTT(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req pttRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PTT == nil {
		writeError(w, http.StatusBadRequest, "missing required field: ptt")
		return
	}

	if err := s.controller.SetPTT(r.Context(), *req.PTT); err != nil {
		writeCommandError(w, err)
		return
	}
	writeSuccess(w)
}
