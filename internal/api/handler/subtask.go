package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Rrens/taskboard/internal/ai"
	"github.com/Rrens/taskboard/internal/api/response"
	"github.com/Rrens/taskboard/internal/sync"
)

// SubtaskHandler generates subtask suggestions for a task
type SubtaskHandler struct {
	manager *sync.Manager
	planner ai.Planner
}

// NewSubtaskHandler creates a new subtask handler
func NewSubtaskHandler(manager *sync.Manager, planner ai.Planner) *SubtaskHandler {
	return &SubtaskHandler{manager: manager, planner: planner}
}

type subtaskRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	ProjectID   string `json:"projectId"`
}

// Generate breaks a task down into suggested subtasks. The open workspace's
// project gives the model extra context when the task belongs to one.
func (h *SubtaskHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil || !h.planner.IsConfigured() {
		response.Error(w, http.StatusServiceUnavailable, "subtask generation is not configured")
		return
	}

	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	var input subtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	req := ai.Request{
		Title:       input.Title,
		Description: input.Description,
	}
	if input.ProjectID != "" {
		for _, p := range eng.State().Projects {
			if p.ID == input.ProjectID {
				req.ProjectName = p.Name
				req.ProjectDescription = p.Description
				break
			}
		}
	}

	resp, err := h.planner.GenerateSubtasks(r.Context(), req, "")
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, resp)
}
