package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/openhamclock/rigd/internal/state"
)

// statusResponse is the GET /status body. Field names match the stream
// events so clients can share decoding.
type statusResponse struct {
	Connected bool   `json:"connected"`
	Freq      int64  `json:"freq"`
	Mode      string `json:"mode"`
	Width     int    `json:"width"`
	PTT       bool   `json:"ptt"`
	Timestamp string `json:"timestamp"`
}

func newStatusResponse(snap state.Snapshot) statusResponse {
	resp := statusResponse{
		Connected: snap.Connected,
		Freq:      snap.FrequencyHz,
		Mode:      snap.Mode,
		Width:     snap.PassbandHz,
		PTT:       snap.PTT,
	}
	if !snap.LastUpdateAt.IsZero() {
		resp.Timestamp = snap.LastUpdateAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
