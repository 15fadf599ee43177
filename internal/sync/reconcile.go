package sync

import (
	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/identity"
)

func indexTasks(tasks []domain.Task) map[string]domain.Task {
	m := make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		m[t.ID] = t
	}
	return m
}

// newlyAssigned returns tasks now assigned to sub that either did not exist
// in prev or belonged to someone else there.
func newlyAssigned(prev map[string]domain.Task, tasks []domain.Task, sub string) []domain.Task {
	var out []domain.Task
	for _, t := range tasks {
		if t.ResponsibleID != sub {
			continue
		}
		old, existed := prev[t.ID]
		if !existed || old.ResponsibleID != sub {
			out = append(out, t)
		}
	}
	return out
}

// reconcileIdentity migrates a provisional invited-by-email user onto the
// authenticated identity: the user entry itself plus every foreign key that
// pointed at the provisional id. Returns true when a migration happened.
// Running it again with the same inputs is a no-op.
func reconcileIdentity(doc *domain.WorkspaceDocument, p identity.Profile) bool {
	if p.Email == "" {
		return false
	}

	idx := -1
	for i, u := range doc.Users {
		if u.Email == p.Email && u.ID != p.Sub {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	oldID := doc.Users[idx].ID
	doc.Users[idx].ID = p.Sub
	doc.Users[idx].Name = p.Name
	doc.Users[idx].Picture = p.Picture

	for i := range doc.Projects {
		ids := doc.Projects[i].ResponsibleIDs
		for j, rid := range ids {
			if rid == oldID {
				ids[j] = p.Sub
			}
		}
	}
	for i := range doc.Tasks {
		if doc.Tasks[i].ResponsibleID == oldID {
			doc.Tasks[i].ResponsibleID = p.Sub
		}
	}
	for i := range doc.Messages {
		if doc.Messages[i].UserID == oldID {
			doc.Messages[i].UserID = p.Sub
		}
	}

	// If the identity had already been appended as a member before the
	// provisional entry arrived, the migration would leave two users with
	// the same id; keep the first occurrence only.
	seen := make(map[string]bool, len(doc.Users))
	users := doc.Users[:0]
	for _, u := range doc.Users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		users = append(users, u)
	}
	doc.Users = users

	return true
}

// ensureMember appends the identity to the document's users when absent.
func ensureMember(doc *domain.WorkspaceDocument, p identity.Profile) bool {
	for _, u := range doc.Users {
		if u.ID == p.Sub {
			return false
		}
	}
	doc.Users = append(doc.Users, domain.User{
		ID:          p.Sub,
		Name:        p.Name,
		Picture:     p.Picture,
		Email:       p.Email,
		AvatarColor: memberColor(len(doc.Users)),
	})
	return true
}

func memberColor(n int) string {
	return domain.UserColors[n%len(domain.UserColors)]
}

func cloneDoc(doc *domain.WorkspaceDocument) *domain.WorkspaceDocument {
	out := *doc
	out.Tasks = append([]domain.Task(nil), doc.Tasks...)
	out.Projects = append([]domain.Project(nil), doc.Projects...)
	out.Users = append([]domain.User(nil), doc.Users...)
	out.Messages = append([]domain.Message(nil), doc.Messages...)
	return &out
}
