package handler

import (
	"net/http"

	"github.com/Rrens/taskboard/internal/api/response"
	"github.com/Rrens/taskboard/internal/sync"
	"github.com/go-chi/chi/v5"
)

// NotificationHandler exposes the session's notification feed
type NotificationHandler struct {
	manager *sync.Manager
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(manager *sync.Manager) *NotificationHandler {
	return &NotificationHandler{manager: manager}
}

// List returns active toasts and the recent history
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	svc := eng.Notifications()
	response.OK(w, map[string]any{
		"active":  svc.Active(),
		"history": svc.History(),
	})
}

// MarkAllRead flags the whole history as read
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	eng.Notifications().MarkAllRead()
	response.NoContent(w)
}

// Dismiss removes one active toast
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	eng, ok := engineFor(h.manager, w, r)
	if !ok {
		return
	}

	eng.Notifications().Dismiss(chi.URLParam(r, "notificationID"))
	response.NoContent(w)
}
