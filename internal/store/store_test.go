package store

import (
	"context"
	"testing"

	"github.com/Rrens/taskboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is the minimal Store used to exercise the shared helpers.
type memStore struct {
	docs map[string]*domain.WorkspaceDocument
}

func (m *memStore) Name() string { return "mem" }

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) Delete(ctx context.Context, id string) error {
	delete(m.docs, id)
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) Snapshot {
	doc, ok := m.docs[id]
	if !ok {
		return Snapshot{NotFound: true}
	}
	return Snapshot{Doc: doc}
}

func (m *memStore) Save(ctx context.Context, id string, doc *domain.WorkspaceDocument) error {
	m.docs[id] = doc
	return nil
}

func (m *memStore) Subscribe(ctx context.Context, id string) (<-chan Snapshot, error) {
	ch := make(chan Snapshot)
	close(ch)
	return ch, nil
}

func (m *memStore) ListForMember(ctx context.Context, memberID, email string) ([]domain.Workspace, error) {
	return nil, nil
}

func (m *memStore) RemoveMember(ctx context.Context, workspaceID, memberID string) error {
	return Leave(ctx, m, workspaceID, memberID)
}

func TestLeave_KeepsDocumentWithRemainingMembers(t *testing.T) {
	s := &memStore{docs: map[string]*domain.WorkspaceDocument{
		"ws-collab-1": {
			Users: []domain.User{
				{ID: "auth0|alice"},
				{ID: "auth0|bob"},
			},
		},
	}}

	require.NoError(t, Leave(context.Background(), s, "ws-collab-1", "auth0|alice"))

	doc := s.docs["ws-collab-1"]
	require.NotNil(t, doc)
	require.Len(t, doc.Users, 1)
	assert.Equal(t, "auth0|bob", doc.Users[0].ID)
}

func TestLeave_DeletesEmptyDocument(t *testing.T) {
	s := &memStore{docs: map[string]*domain.WorkspaceDocument{
		"ws-collab-1": {Users: []domain.User{{ID: "auth0|alice"}}},
	}}

	require.NoError(t, Leave(context.Background(), s, "ws-collab-1", "auth0|alice"))
	assert.NotContains(t, s.docs, "ws-collab-1")
}

func TestLeave_AbsentDocumentOrMember(t *testing.T) {
	s := &memStore{docs: map[string]*domain.WorkspaceDocument{
		"ws-collab-1": {Users: []domain.User{{ID: "auth0|bob"}}},
	}}

	assert.NoError(t, Leave(context.Background(), s, "ws-collab-missing", "auth0|alice"))
	assert.NoError(t, Leave(context.Background(), s, "ws-collab-1", "auth0|alice"))
	assert.Len(t, s.docs["ws-collab-1"].Users, 1, "removing a non-member changes nothing")
}

func TestDedupeWorkspaces(t *testing.T) {
	list := []domain.Workspace{
		{ID: "ws-collab-1", Name: "by id"},
		{ID: "ws-collab-2"},
		{ID: "ws-collab-1", Name: "by email"},
	}

	got := DedupeWorkspaces(list)
	require.Len(t, got, 2)
	assert.Equal(t, "by id", got[0].Name, "first occurrence wins")
	assert.Equal(t, "ws-collab-2", got[1].ID)
}
