package local

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/localstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) *localstore.KV {
	t.Helper()
	kv, err := localstore.Open(filepath.Join(t.TempDir(), "test.db"),
		localstore.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestStore_SaveGetRoundTrip(t *testing.T) {
	s := New(newTestKV(t), "auth0|alice", zerolog.Nop())
	ctx := context.Background()

	snap := s.Get(ctx, "ws-collab-1")
	assert.True(t, snap.NotFound)

	doc := &domain.WorkspaceDocument{
		Tasks: []domain.Task{{ID: "t1", Title: "One", Status: domain.StatusToDo}},
		Users: []domain.User{{ID: "auth0|alice", Name: "Alice"}},
		Name:  "Board",
	}
	require.NoError(t, s.Save(ctx, "ws-collab-1", doc))

	snap = s.Get(ctx, "ws-collab-1")
	require.NoError(t, snap.Err)
	require.NotNil(t, snap.Doc)
	assert.Equal(t, "Board", snap.Doc.Name)
	require.Len(t, snap.Doc.Tasks, 1)
}

func TestStore_PersonalKeysScopedPerIdentity(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	alice := New(kv, "auth0|alice", zerolog.Nop())
	bob := New(kv, "auth0|bob", zerolog.Nop())

	wsAlice := domain.PersonalWorkspaceID("auth0|alice")
	require.NoError(t, alice.Save(ctx, wsAlice, &domain.WorkspaceDocument{Name: "Alice board"}))

	// Bob never sees Alice's personal data, even through the same file
	snap := bob.Get(ctx, wsAlice)
	assert.True(t, snap.NotFound)

	// Collaborative documents are shared
	require.NoError(t, alice.Save(ctx, "ws-collab-1", &domain.WorkspaceDocument{
		Name:  "Shared",
		Users: []domain.User{{ID: "auth0|bob"}},
	}))
	snap = bob.Get(ctx, "ws-collab-1")
	require.NotNil(t, snap.Doc)
	assert.Equal(t, "Shared", snap.Doc.Name)
}

func TestStore_MalformedPayloadReportsNotFound(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "data:ws-collab-1", "{not json"))

	s := New(kv, "auth0|alice", zerolog.Nop())
	snap := s.Get(ctx, "ws-collab-1")
	assert.True(t, snap.NotFound)
	assert.NoError(t, snap.Err)
}

func TestStore_ListForMember(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()
	s := New(kv, "auth0|alice", zerolog.Nop())

	require.NoError(t, s.Save(ctx, "ws-collab-1", &domain.WorkspaceDocument{
		Name:  "Mine",
		Users: []domain.User{{ID: "auth0|alice"}},
	}))
	require.NoError(t, s.Save(ctx, "ws-collab-2", &domain.WorkspaceDocument{
		Name:  "Invited",
		Users: []domain.User{{ID: "someone", Email: "alice@example.com"}},
	}))
	require.NoError(t, s.Save(ctx, "ws-collab-3", &domain.WorkspaceDocument{
		Name:  "Not mine",
		Users: []domain.User{{ID: "auth0|bob"}},
	}))

	list, err := s.ListForMember(ctx, "auth0|alice", "alice@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)

	names := []string{list[0].Name, list[1].Name}
	assert.Contains(t, names, "Mine")
	assert.Contains(t, names, "Invited")
}

func TestStore_Subscribe_InitialSnapshot(t *testing.T) {
	kv := newTestKV(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(kv, "auth0|alice", zerolog.Nop())
	require.NoError(t, s.Save(ctx, "ws-collab-1", &domain.WorkspaceDocument{Name: "Board"}))

	ch, err := s.Subscribe(ctx, "ws-collab-1")
	require.NoError(t, err)

	select {
	case snap := <-ch:
		require.NotNil(t, snap.Doc)
		assert.Equal(t, "Board", snap.Doc.Name)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}
}
