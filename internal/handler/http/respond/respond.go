// Package respond writes the dashboard API's JSON bodies. Error bodies are
// always {"error": "..."}.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const internalMessage = "internal server error"

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v as the body with status code. A nil v writes no body.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	// ヘッダー送信済みのためログのみ
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response",
			slog.Int("status_code", code),
			slog.Any("error", err))
	}
}

// Message writes an error body carrying msg verbatim.
func Message(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, errorBody{Error: msg})
}

// SafeError writes err as an error body. Below 500 the message is returned
// as is, so callers pass only errors meant for clients. From 500 up the
// client sees a generic message and the sanitized cause is logged.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}
	if code < http.StatusInternalServerError {
		Message(w, code, err.Error())
		return
	}
	slog.Error("internal server error",
		slog.Int("code", code),
		slog.String("error", SanitizeError(err)))
	Message(w, code, internalMessage)
}
