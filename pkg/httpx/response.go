package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the structured error shape API callers receive. Code is a
// machine-readable reason (e.g. "TOKEN_EXPIRED") that clients branch on;
// most errors leave it empty.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a structured JSON error.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg})
}

// WriteErrorCode writes a structured JSON error with a machine-readable
// reason code attached.
func WriteErrorCode(w http.ResponseWriter, status int, msg, code string) {
	WriteJSON(w, status, ErrorBody{Error: msg, Code: code})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Required for responses that carry tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
