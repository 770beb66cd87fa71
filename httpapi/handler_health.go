package httpapi

import (
	"net/http"
)

// livenessText is the fixed reply of the status route
const livenessText = "ots file verified!"

// HandleHealth Health check endpoint
// @Summary Health check
// @Description Returns service health status
// @Tags Health
// @Produce json
// @Success 200 {object} httpapi.HealthResponse
// @Router /health [GET]
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleLiveness is the plain text status route
// @Summary Liveness
// @Tags Health
// @Produce plain
// @Success 200 {string} string "ots file verified!"
// @Router /verify2 [GET]
func HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(livenessText))
}
