package controllers

import (
	"net/http"

	"github.com/rzbill/pigeon/internal/runtime"
)

// GeneralController handles general HTTP endpoints like health, stats and
// the admin flush.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/healthz", c.handleHealth)
	mux.HandleFunc("GET /v1/stats", c.handleStats)
	mux.HandleFunc("POST /v1/flush", c.handleFlush)
}

// handleHealth returns the health status of the service.
//
// Returns 200 OK with {"status": "ok"} if healthy, 503 Service Unavailable otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (c *GeneralController) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := c.rt.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to collect stats")
		return
	}
	writeJSON(w, st)
}

// handleFlush runs one resync and flush pass synchronously.
func (c *GeneralController) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.Flusher().FlushNow(); err != nil {
		writeError(w, http.StatusInternalServerError, "Flush failed")
		return
	}
	writeNoContent(w)
}
