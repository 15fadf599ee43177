package handler

import (
	"net/http"

	"github.com/Rrens/taskboard/internal/api/middleware"
	"github.com/Rrens/taskboard/internal/api/response"
	"github.com/Rrens/taskboard/internal/sync"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// engineFor resolves the sync engine for the authenticated identity, writing
// the error response itself when that fails.
func engineFor(m *sync.Manager, w http.ResponseWriter, r *http.Request) (*sync.Engine, bool) {
	profile, ok := middleware.GetProfile(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return nil, false
	}

	eng, err := m.Engine(r.Context(), profile)
	if err != nil {
		response.InternalError(w, "failed to start sync session: "+err.Error())
		return nil, false
	}
	return eng, true
}
