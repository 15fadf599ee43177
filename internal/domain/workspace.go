package domain

import "strings"

// PersonalPrefix marks workspace ids derived from an identity subject claim.
const PersonalPrefix = "ws-personal-"

// CollabPrefix marks collaborative workspace ids.
const CollabPrefix = "ws-collab-"

// Workspace is the metadata-only view used by the workspace selector.
// Members is a denormalized copy of the document's users for list display.
type Workspace struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPersonal bool   `json:"isPersonal"`
	Members    []User `json:"members,omitempty"`
	Icon       string `json:"icon,omitempty"`
	Theme      string `json:"theme,omitempty"`
	Order      int    `json:"order"`
}

// WorkspaceDocument is the unit of synchronization: the full payload of one
// workspace, saved and fetched as a whole.
type WorkspaceDocument struct {
	Tasks    []Task    `json:"tasks"`
	Projects []Project `json:"projects"`
	Users    []User    `json:"users"`
	Messages []Message `json:"messages"`

	Name       string `json:"name,omitempty"`
	IsPersonal bool   `json:"isPersonal,omitempty"`
	Icon       string `json:"icon,omitempty"`
	Theme      string `json:"theme,omitempty"`
	Order      int    `json:"order,omitempty"`
}

// Meta returns the list-view projection of the document.
func (d *WorkspaceDocument) Meta(id string) Workspace {
	return Workspace{
		ID:         id,
		Name:       d.Name,
		IsPersonal: d.IsPersonal,
		Members:    d.Users,
		Icon:       d.Icon,
		Theme:      d.Theme,
		Order:      d.Order,
	}
}

// IsPersonalID reports whether a workspace id belongs to a personal workspace.
func IsPersonalID(id string) bool {
	return strings.HasPrefix(id, PersonalPrefix)
}

// PersonalWorkspaceID derives the deterministic personal workspace id for a
// subject claim.
func PersonalWorkspaceID(sub string) string {
	return PersonalPrefix + sub
}
