package controllers

import (
	"net/http"

	"github.com/rzbill/pigeon/internal/runtime"
	kvsvc "github.com/rzbill/pigeon/internal/services/kv"
	queuesvc "github.com/rzbill/pigeon/internal/services/queues"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	queues  *QueuesController
	kv      *KVController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, queuesSvc *queuesvc.Service, kvSvc *kvsvc.Service) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		queues:  NewQueuesController(queuesSvc),
		kv:      NewKVController(kvSvc),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.queues.RegisterRoutes(mux)
	r.kv.RegisterRoutes(mux)
}
