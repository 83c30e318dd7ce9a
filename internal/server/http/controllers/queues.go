package controllers

import (
	"net/http"
	"strconv"

	queuesvc "github.com/rzbill/pigeon/internal/services/queues"
	"github.com/rzbill/pigeon/internal/status"
)

// QueuesController handles topic publish, consume, length and overview.
type QueuesController struct {
	svc *queuesvc.Service
}

// NewQueuesController creates a new queues controller.
func NewQueuesController(svc *queuesvc.Service) *QueuesController {
	return &QueuesController{svc: svc}
}

// RegisterRoutes registers queue routes with the given mux. The unprefixed
// routes are kept for older clients.
func (c *QueuesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /queue/publish/{topic}", c.handlePublish)
	mux.HandleFunc("POST /queue/consume/{topic}", c.handleConsume)
	mux.HandleFunc("GET /queue/length/{topic}", c.handleLength)
	mux.HandleFunc("GET /queue/topics", c.handleTopics)

	mux.HandleFunc("POST /publish/{topic}", c.handlePublish)
	mux.HandleFunc("POST /consume/{topic}", c.handleConsume)
	mux.HandleFunc("GET /length/{topic}", c.handleLength)
}

func (c *QueuesController) handlePublish(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeStatusError(w, err, "Failed to read body")
		return
	}
	if err := c.svc.Publish(r.Context(), r.PathValue("topic"), body); err != nil {
		writeStatusError(w, err, "Failed to persist")
		return
	}
	writeText(w, http.StatusOK, "Successfully published")
}

// handleConsume returns the oldest message, or 404 with an empty body when
// the topic has none.
func (c *QueuesController) handleConsume(w http.ResponseWriter, r *http.Request) {
	msg, err := c.svc.Consume(r.Context(), r.PathValue("topic"))
	if err != nil {
		writeStatusError(w, err, "")
		return
	}
	writeBytes(w, msg)
}

func (c *QueuesController) handleLength(w http.ResponseWriter, r *http.Request) {
	n, err := c.svc.Length(r.Context(), r.PathValue("topic"))
	if err != nil {
		writeStatusError(w, err, "Internal error")
		return
	}
	writeText(w, http.StatusOK, strconv.Itoa(n))
}

// handleTopics returns {topic: length} for every topic, optionally narrowed
// by a CEL expression in the filter query parameter.
func (c *QueuesController) handleTopics(w http.ResponseWriter, r *http.Request) {
	ov, err := c.svc.Topics(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		if status.FromError(err) == status.InvalidArgument {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to list topics")
		return
	}
	writeJSON(w, ov)
}
