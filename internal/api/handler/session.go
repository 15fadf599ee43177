package handler

import (
	"net/http"

	"github.com/Rrens/taskboard/internal/api/response"
	"github.com/Rrens/taskboard/internal/sync"
)

// SessionHandler exposes the sync session itself.
type SessionHandler struct {
	manager *sync.Manager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(manager *sync.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// Get starts (or resumes) the identity's sync session and reports the storage
// mode it runs in.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	profile := eng.Profile()
	response.OK(w, map[string]any{
		"mode": eng.Mode(),
		"profile": map[string]string{
			"sub":     profile.Sub,
			"name":    profile.Name,
			"email":   profile.Email,
			"picture": profile.Picture,
		},
	})
}
