package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rzbill/pigeon/internal/status"
)

// Helper functions for common HTTP responses

// writeText writes a plain-text response with the given status code.
func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

// writeBytes writes raw payload bytes with a 200 status.
func writeBytes(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// writeNoContent writes a 204 No Content response.
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// readBody reads the whole request body. A body over the server's limit is
// reported as status.ErrTooLarge.
func readBody(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(r.Body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, status.ErrTooLarge
	}
	return b, err
}

// writeStatusError maps err onto an HTTP status and writes message as the body.
// Validation failures echo the error text instead.
func writeStatusError(w http.ResponseWriter, err error, message string) {
	code := status.FromError(err)
	switch code {
	case status.InvalidArgument, status.TooLarge:
		writeText(w, code.HTTP(), err.Error())
	default:
		writeText(w, code.HTTP(), message)
	}
}
