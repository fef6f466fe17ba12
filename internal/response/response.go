// Package response writes the JSON envelopes shared by handlers and middleware.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Body is the common response envelope.
type Body struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write json response", "error", err)
	}
}

// Error writes {success:false, message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Body{Success: false, Message: message})
}
