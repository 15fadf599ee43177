package store

import (
	"context"

	"github.com/Rrens/taskboard/internal/domain"
)

// Snapshot is the tri-state result of reading a workspace document. Exactly
// one of Doc, NotFound or Err is meaningful. A transient failure is reported
// through Err and must never be collapsed into NotFound: callers initialize
// defaults on NotFound, and doing that on a flaky read would overwrite real
// data on the next save.
type Snapshot struct {
	Doc      *domain.WorkspaceDocument
	NotFound bool
	Err      error
}

// Store is the contract every workspace backend satisfies: the two cloud
// document stores and the local fallback.
type Store interface {
	// Name identifies the backend in logs.
	Name() string

	// Ping verifies the backend is reachable and authenticated.
	Ping(ctx context.Context) error

	// Get fetches the current document once.
	Get(ctx context.Context, id string) Snapshot

	// Save upserts the full document (overwrite, not patch).
	Save(ctx context.Context, id string, doc *domain.WorkspaceDocument) error

	// Subscribe streams snapshots for one workspace, starting with the
	// current state. The channel closes when ctx is done.
	Subscribe(ctx context.Context, id string) (<-chan Snapshot, error)

	// ListForMember returns summaries of workspaces whose member set
	// contains the identity by id or email.
	ListForMember(ctx context.Context, memberID, email string) ([]domain.Workspace, error)

	// RemoveMember takes the member out of the workspace, deleting the
	// document entirely when they were the last one.
	RemoveMember(ctx context.Context, workspaceID, memberID string) error

	// Delete removes the document.
	Delete(ctx context.Context, id string) error
}

// Leave implements the shared two-branch member-removal policy: drop the
// member from the document's users, hard-delete the document when nobody is
// left, otherwise save the document with the remaining members. Backends
// delegate their RemoveMember to this.
func Leave(ctx context.Context, s Store, workspaceID, memberID string) error {
	snap := s.Get(ctx, workspaceID)
	if snap.Err != nil {
		return snap.Err
	}
	if snap.NotFound || snap.Doc == nil {
		return nil
	}

	doc := snap.Doc
	remaining := doc.Users[:0:0]
	for _, u := range doc.Users {
		if u.ID != memberID {
			remaining = append(remaining, u)
		}
	}
	if len(remaining) == len(doc.Users) {
		return nil
	}

	if len(remaining) == 0 {
		return s.Delete(ctx, workspaceID)
	}
	doc.Users = remaining
	return s.Save(ctx, workspaceID, doc)
}

// DedupeWorkspaces collapses duplicate list entries (the by-id and by-email
// queries can both match the same workspace) and keeps the first occurrence.
func DedupeWorkspaces(list []domain.Workspace) []domain.Workspace {
	seen := make(map[string]bool, len(list))
	out := list[:0:0]
	for _, w := range list {
		if seen[w.ID] {
			continue
		}
		seen[w.ID] = true
		out = append(out, w)
	}
	return out
}
