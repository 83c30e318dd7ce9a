package controllers

import (
	"net/http"

	kvsvc "github.com/rzbill/pigeon/internal/services/kv"
	"github.com/rzbill/pigeon/internal/status"
)

// KVController handles the key-value endpoints.
type KVController struct {
	svc *kvsvc.Service
}

// NewKVController creates a new key-value controller.
func NewKVController(svc *kvsvc.Service) *KVController {
	return &KVController{svc: svc}
}

// RegisterRoutes registers key-value routes with the given mux.
func (c *KVController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /kv/{key}", c.handleSet)
	mux.HandleFunc("GET /kv/{key}", c.handleGet)
	mux.HandleFunc("DELETE /kv/{key}", c.handleDelete)
	mux.HandleFunc("GET /kv", c.handleList)
}

func (c *KVController) handleSet(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeStatusError(w, err, "Failed to read body")
		return
	}
	if err := c.svc.Set(r.Context(), r.PathValue("key"), body); err != nil {
		writeStatusError(w, err, "Failed to persist")
		return
	}
	writeText(w, http.StatusOK, "Successfully inserted")
}

func (c *KVController) handleGet(w http.ResponseWriter, r *http.Request) {
	v, err := c.svc.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		writeStatusError(w, err, notFoundOr(err, "Internal error"))
		return
	}
	writeBytes(w, v)
}

func (c *KVController) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Delete(r.Context(), r.PathValue("key")); err != nil {
		writeStatusError(w, err, notFoundOr(err, "Failed to persist"))
		return
	}
	writeText(w, http.StatusOK, "Key deleted")
}

// handleList returns {"keys": [...]} for keys starting with ?prefix=.
func (c *KVController) handleList(w http.ResponseWriter, r *http.Request) {
	keys, err := c.svc.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list keys")
		return
	}
	writeJSON(w, map[string]any{"keys": keys})
}

// notFoundOr picks the response body for a failed lookup.
func notFoundOr(err error, fallback string) string {
	if status.FromError(err) == status.NotFound {
		return "Key not found"
	}
	return fallback
}
