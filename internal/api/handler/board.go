package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/taskboard/internal/api/response"
	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/sync"
	"github.com/go-chi/chi/v5"
)

// BoardHandler handles the open workspace's board state
type BoardHandler struct {
	manager *sync.Manager
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(manager *sync.Manager) *BoardHandler {
	return &BoardHandler{manager: manager}
}

type moveTaskRequest struct {
	Status string `json:"status" validate:"required"`
	Index  int    `json:"index" validate:"gte=0"`
}

// State opens the workspace when needed and returns the current board state.
// Clients poll this; Loaded false means the initial snapshot is still pending.
func (h *BoardHandler) State(w http.ResponseWriter, r *http.Request) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	eng.Open(chi.URLParam(r, "workspaceID"))
	response.OK(w, eng.State())
}

func (h *BoardHandler) setCollection(w http.ResponseWriter, r *http.Request, apply func(eng *sync.Engine) error) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "workspaceID")
	if eng.State().WorkspaceID != id {
		response.Conflict(w, "workspace is not open")
		return
	}

	err := apply(eng)
	if errors.Is(err, sync.ErrNotLoaded) {
		response.Conflict(w, "workspace is still loading")
		return
	}
	if errors.Is(err, sync.ErrTaskNotFound) {
		response.NotFound(w, "task not found")
		return
	}
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, eng.State())
}

// SetTasks replaces the task collection
func (h *BoardHandler) SetTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []domain.Task
	if err := json.NewDecoder(r.Body).Decode(&tasks); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	for _, t := range tasks {
		if t.ID == "" || t.Title == "" || !t.Status.Valid() {
			response.BadRequest(w, "task entries need id, title and a valid status")
			return
		}
	}
	h.setCollection(w, r, func(eng *sync.Engine) error { return eng.SetTasks(tasks) })
}

// SetProjects replaces the project collection
func (h *BoardHandler) SetProjects(w http.ResponseWriter, r *http.Request) {
	var projects []domain.Project
	if err := json.NewDecoder(r.Body).Decode(&projects); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	for _, p := range projects {
		if p.ID == "" || p.Name == "" {
			response.BadRequest(w, "project entries need id and name")
			return
		}
	}
	h.setCollection(w, r, func(eng *sync.Engine) error { return eng.SetProjects(projects) })
}

// SetUsers replaces the user collection
func (h *BoardHandler) SetUsers(w http.ResponseWriter, r *http.Request) {
	var users []domain.User
	if err := json.NewDecoder(r.Body).Decode(&users); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	for _, u := range users {
		if u.ID == "" || u.Name == "" {
			response.BadRequest(w, "user entries need id and name")
			return
		}
	}
	h.setCollection(w, r, func(eng *sync.Engine) error { return eng.SetUsers(users) })
}

type addUserRequest struct {
	Name string `json:"name" validate:"required"`
}

// AddUser creates a board member with a generated id
func (h *BoardHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var input addUserRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}
	if eng.State().WorkspaceID != chi.URLParam(r, "workspaceID") {
		response.Conflict(w, "workspace is not open")
		return
	}

	user, err := eng.AddUser(input.Name)
	if errors.Is(err, sync.ErrNotLoaded) {
		response.Conflict(w, "workspace is still loading")
		return
	}
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.Created(w, user)
}

// SetMessages replaces the message collection
func (h *BoardHandler) SetMessages(w http.ResponseWriter, r *http.Request) {
	var messages []domain.Message
	if err := json.NewDecoder(r.Body).Decode(&messages); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	h.setCollection(w, r, func(eng *sync.Engine) error { return eng.SetMessages(messages) })
}

// MoveTask relocates a task to a column position
func (h *BoardHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	var input moveTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	status := domain.Status(input.Status)
	if !status.Valid() {
		response.BadRequest(w, "invalid status")
		return
	}

	taskID := chi.URLParam(r, "taskID")
	h.setCollection(w, r, func(eng *sync.Engine) error {
		return eng.MoveTask(taskID, status, input.Index)
	})
}
