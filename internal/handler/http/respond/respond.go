// Package respond writes JSON responses for the daemon control server.
// Error bodies are sanitized so tokens and webhook keys never reach a client
// or a log line.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status code. A nil v writes headers only.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent.
		slog.Default().Error("failed to encode JSON response",
			slog.Int("status_code", code),
			slog.Any("error", err))
	}
}

// Error writes err as {"error": "..."}, sanitized. A 500 is logged and its
// message replaced with the status text.
func Error(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}
	msg := SanitizeError(err)
	if code == http.StatusInternalServerError {
		slog.Default().Error("control request failed",
			slog.Int("code", code),
			slog.String("error", msg))
		msg = http.StatusText(code)
	}
	JSON(w, code, ErrorBody{Error: msg})
}
