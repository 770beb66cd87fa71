package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
)

// RequestIDHeader carries the id assigned to every request
const RequestIDHeader = "X-Request-Id"

// HealthResponse is the JSON response for /health
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the JSON error response
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type ctxKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the id the router assigned to r
func RequestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	id := w.Header().Get(RequestIDHeader)
	slog.Error("request error", "request_id", id, "status", status, "message", message)
	writeJSON(w, status, ErrorResponse{Error: message, RequestID: id})
}

// writeProof sends proof bytes as an opaque download
func writeProof(w http.ResponseWriter, proof []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(proof)
}

// writeToolOutput relays the prover's own text unchanged
func writeToolOutput(w http.ResponseWriter, status int, output []byte) {
	w.Header().Set("Content-Type", mimetype.Detect(output).String())
	w.WriteHeader(status)
	_, _ = w.Write(output)
}
