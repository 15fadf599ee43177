package handler

import (
	"net/http"

	"github.com/Rrens/taskboard/internal/api/response"
	"github.com/Rrens/taskboard/internal/store"
)

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including backend connectivity. With no
// cloud backend configured the service is always ready; sessions run locally.
func ReadyCheck(cloud store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cloud != nil {
			if err := cloud.Ping(r.Context()); err != nil {
				response.Error(w, http.StatusServiceUnavailable, "backend not ready")
				return
			}
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}
