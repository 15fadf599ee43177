package sync

import (
	"testing"

	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileIdentity_Idempotent(t *testing.T) {
	p := identity.Profile{Sub: "auth0|alice", Name: "Alice", Email: "alice@example.com"}
	doc := &domain.WorkspaceDocument{
		Users: []domain.User{
			{ID: "invite-1", Name: "alice (invited)", Email: "alice@example.com"},
		},
		Tasks: []domain.Task{{ID: "t1", ResponsibleID: "invite-1"}},
	}

	require.True(t, reconcileIdentity(doc, p))
	first := cloneDoc(doc)

	assert.False(t, reconcileIdentity(doc, p), "second run must be a no-op")
	assert.Equal(t, first, doc)
	assert.Equal(t, "auth0|alice", doc.Tasks[0].ResponsibleID)
}

func TestReconcileIdentity_NoMatch(t *testing.T) {
	p := identity.Profile{Sub: "auth0|alice", Email: "alice@example.com"}

	t.Run("different email", func(t *testing.T) {
		doc := &domain.WorkspaceDocument{
			Users: []domain.User{{ID: "invite-1", Email: "bob@example.com"}},
		}
		assert.False(t, reconcileIdentity(doc, p))
	})

	t.Run("already migrated", func(t *testing.T) {
		doc := &domain.WorkspaceDocument{
			Users: []domain.User{{ID: "auth0|alice", Email: "alice@example.com"}},
		}
		assert.False(t, reconcileIdentity(doc, p))
	})

	t.Run("empty profile email", func(t *testing.T) {
		doc := &domain.WorkspaceDocument{
			Users: []domain.User{{ID: "invite-1", Email: ""}},
		}
		assert.False(t, reconcileIdentity(doc, identity.Profile{Sub: "auth0|alice"}))
	})
}

func TestReconcileIdentity_DropsDuplicateAfterMigration(t *testing.T) {
	p := identity.Profile{Sub: "auth0|alice", Name: "Alice", Email: "alice@example.com"}
	doc := &domain.WorkspaceDocument{
		Users: []domain.User{
			{ID: "invite-1", Email: "alice@example.com"},
			{ID: "auth0|alice", Name: "Alice", Email: "alice@example.com"},
		},
	}

	// The provisional entry matches first and gets migrated; the existing
	// entry becomes a duplicate id and is dropped.
	require.True(t, reconcileIdentity(doc, p))
	require.Len(t, doc.Users, 1)
	assert.Equal(t, "auth0|alice", doc.Users[0].ID)
}

func TestEnsureMember(t *testing.T) {
	p := identity.Profile{Sub: "auth0|alice", Name: "Alice", Email: "alice@example.com"}

	doc := &domain.WorkspaceDocument{
		Users: []domain.User{{ID: "auth0|bob", Name: "Bob"}},
	}
	assert.True(t, ensureMember(doc, p))
	require.Len(t, doc.Users, 2)
	assert.Equal(t, "auth0|alice", doc.Users[1].ID)
	assert.NotEmpty(t, doc.Users[1].AvatarColor)

	assert.False(t, ensureMember(doc, p))
	assert.Len(t, doc.Users, 2)
}

func TestNewlyAssigned(t *testing.T) {
	prev := indexTasks([]domain.Task{
		{ID: "t1", ResponsibleID: "auth0|alice"},
		{ID: "t2", ResponsibleID: "auth0|bob"},
	})

	next := []domain.Task{
		{ID: "t1", ResponsibleID: "auth0|alice"}, // unchanged
		{ID: "t2", ResponsibleID: "auth0|alice"}, // reassigned to me
		{ID: "t3", ResponsibleID: "auth0|alice"}, // new task
		{ID: "t4", ResponsibleID: "auth0|bob"},   // someone else's
	}

	got := newlyAssigned(prev, next, "auth0|alice")
	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[0].ID)
	assert.Equal(t, "t3", got[1].ID)
}
