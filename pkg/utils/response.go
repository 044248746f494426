package utils

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every API endpoint answers with. Failures set
// Success=false plus a human-readable Error; raw errors never cross the
// boundary.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RespondSuccess sends a success envelope.
func RespondSuccess(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, Response{Success: true, Data: data})
}

// RespondError sends a failure envelope.
func RespondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{Success: false, Error: message})
}

func respondJSON(w http.ResponseWriter, status int, payload Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// StreamText writes one text fragment and flushes it immediately so the
// caller sees bytes as they are produced.
func StreamText(w http.ResponseWriter, flusher http.Flusher, fragment string) {
	if fragment == "" {
		return
	}
	_, _ = w.Write([]byte(fragment))
	flusher.Flush()
}
