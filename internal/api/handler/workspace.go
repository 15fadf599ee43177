package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/taskboard/internal/api/response"
	"github.com/Rrens/taskboard/internal/sync"
	"github.com/go-chi/chi/v5"
)

// WorkspaceHandler handles workspace list endpoints
type WorkspaceHandler struct {
	manager *sync.Manager
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(manager *sync.Manager) *WorkspaceHandler {
	return &WorkspaceHandler{manager: manager}
}

type workspaceCreateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=60"`
}

type workspaceUpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=60"`
	Icon  *string `json:"icon" validate:"omitempty,max=16"`
	Theme *string `json:"theme" validate:"omitempty,max=32"`
}

type workspaceReorderRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// List returns the personal workspace plus collaborative memberships
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}
	response.OK(w, eng.Workspaces())
}

// Create adds a collaborative workspace with the caller as sole member
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	var input workspaceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	ws, err := eng.AddWorkspace(r.Context(), input.Name)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.Created(w, ws)
}

// Update applies a partial metadata change
func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	var input workspaceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	id := chi.URLParam(r, "workspaceID")
	err := eng.UpdateWorkspace(r.Context(), id, sync.WorkspaceUpdate{
		Name:  input.Name,
		Icon:  input.Icon,
		Theme: input.Theme,
	})
	if errors.Is(err, sync.ErrUnknownWorkspace) {
		response.NotFound(w, "workspace not found")
		return
	}
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, eng.Workspaces())
}

// Delete removes the caller from a collaborative workspace
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "workspaceID")
	err := eng.DeleteWorkspace(r.Context(), id)
	if errors.Is(err, sync.ErrUnknownWorkspace) {
		response.NotFound(w, "workspace not found")
		return
	}
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.NoContent(w)
}

// Reorder renumbers the collaborative list in the given id order
func (h *WorkspaceHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	var input workspaceReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := eng.ReorderWorkspaces(r.Context(), input.IDs); err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, eng.Workspaces())
}
