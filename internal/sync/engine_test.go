package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rrens/taskboard/internal/config"
	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/identity"
	"github.com/Rrens/taskboard/internal/localstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		AuthTimeout:      100 * time.Millisecond,
		LoadTimeout:      200 * time.Millisecond,
		SaveDebounce:     20 * time.Millisecond,
		SaveGrace:        40 * time.Millisecond,
		ReconcileDelay:   20 * time.Millisecond,
		ListPollInterval: 50 * time.Millisecond,
		DocPollInterval:  20 * time.Millisecond,
		SaveTimeout:      time.Second,
	}
}

func testProfile() identity.Profile {
	return identity.Profile{
		Sub:   "auth0|alice",
		Name:  "Alice",
		Email: "alice@example.com",
	}
}

func newTestKV(t *testing.T) *localstore.KV {
	t.Helper()
	kv, err := localstore.Open(filepath.Join(t.TempDir(), "test.db"),
		localstore.WithPollInterval(tick))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func newTestEngine(t *testing.T, cloud *fakeStore) *Engine {
	t.Helper()
	var eng *Engine
	if cloud == nil {
		eng = NewEngine(testSyncConfig(), zerolog.Nop(), testProfile(), nil, newTestKV(t))
	} else {
		eng = NewEngine(testSyncConfig(), zerolog.Nop(), testProfile(), cloud, newTestKV(t))
	}
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(eng.Close)
	return eng
}

func waitLoaded(t *testing.T, eng *Engine) {
	t.Helper()
	require.Eventually(t, func() bool { return eng.State().Loaded }, waitFor, tick)
}

func collabDoc(tasks []domain.Task) *domain.WorkspaceDocument {
	return &domain.WorkspaceDocument{
		Tasks: tasks,
		Users: []domain.User{
			{ID: "auth0|alice", Name: "Alice", Email: "alice@example.com", AvatarColor: "#E24A4A"},
			{ID: "auth0|bob", Name: "Bob", Email: "bob@example.com", AvatarColor: "#23B2F5"},
		},
		Name: "Team Board",
	}
}

func TestEngineStart_ModeSelection(t *testing.T) {
	t.Run("cloud reachable", func(t *testing.T) {
		eng := newTestEngine(t, newFakeStore())
		assert.Equal(t, ModeCloud, eng.Mode())
	})

	t.Run("cloud unreachable falls back to local", func(t *testing.T) {
		f := newFakeStore()
		f.pingErr = errors.New("connection refused")
		eng := newTestEngine(t, f)
		assert.Equal(t, ModeLocal, eng.Mode())
	})

	t.Run("no backend configured", func(t *testing.T) {
		eng := newTestEngine(t, nil)
		assert.Equal(t, ModeLocal, eng.Mode())
	})
}

func TestOpen_LoadsExistingDocument(t *testing.T) {
	f := newFakeStore()
	f.docs["ws-collab-1"] = collabDoc([]domain.Task{
		{ID: "t1", Title: "First", Status: domain.StatusToDo},
	})

	eng := newTestEngine(t, f)
	eng.Open("ws-collab-1")
	waitLoaded(t, eng)

	state := eng.State()
	assert.Equal(t, "ws-collab-1", state.WorkspaceID)
	assert.False(t, state.Syncing)
	require.Len(t, state.Tasks, 1)
	assert.Equal(t, "First", state.Tasks[0].Title)
}

func TestOpen_NotFoundInitializesPersonalDefaults(t *testing.T) {
	f := newFakeStore()
	eng := newTestEngine(t, f)

	wsID := domain.PersonalWorkspaceID("auth0|alice")
	eng.Open(wsID)
	waitLoaded(t, eng)

	state := eng.State()
	assert.Len(t, state.Tasks, len(domain.SampleTasks()))
	assert.Len(t, state.Projects, len(domain.SampleProjects()))
	// Identity comes first, demo members after
	require.NotEmpty(t, state.Users)
	assert.Equal(t, "auth0|alice", state.Users[0].ID)

	// The default document gets created lazily through the save path
	assert.Eventually(t, func() bool { return f.saveCount(wsID) >= 1 }, waitFor, tick)
}

func TestOpen_CloudHoldsLoadingOnSilentBackend(t *testing.T) {
	f := newFakeStore()
	f.silent = true
	eng := newTestEngine(t, f)

	eng.Open("ws-collab-quiet")

	// Well past the load timeout: still not loaded, never defaulted
	time.Sleep(400 * time.Millisecond)
	state := eng.State()
	assert.False(t, state.Loaded)
	assert.True(t, state.Syncing)
	assert.Empty(t, state.Tasks)
	assert.Equal(t, 0, f.saveCount("ws-collab-quiet"))
}

func TestOpen_LocalModeDefaultsImmediately(t *testing.T) {
	eng := newTestEngine(t, nil)

	eng.Open(domain.PersonalWorkspaceID("auth0|alice"))
	waitLoaded(t, eng)

	state := eng.State()
	assert.Equal(t, ModeLocal, state.Mode)
	assert.Len(t, state.Tasks, len(domain.SampleTasks()))
}

func TestMutation_DebouncedSingleSave(t *testing.T) {
	f := newFakeStore()
	f.docs["ws-collab-1"] = collabDoc(nil)
	eng := newTestEngine(t, f)
	eng.Open("ws-collab-1")
	waitLoaded(t, eng)

	base := f.saveCount("ws-collab-1")
	for i := 0; i < 5; i++ {
		require.NoError(t, eng.SetTasks([]domain.Task{
			{ID: "t1", Title: "Edited", Status: domain.StatusToDo, Order: i},
		}))
	}

	assert.Eventually(t, func() bool { return f.saveCount("ws-collab-1") > base }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, base+1, f.saveCount("ws-collab-1"), "burst of edits should collapse into one save")

	saved := f.storedDoc("ws-collab-1")
	require.Len(t, saved.Tasks, 1)
	assert.Equal(t, 4, saved.Tasks[0].Order)
	assert.Equal(t, "Team Board", saved.Name, "save carries list metadata")
}

func TestMutation_EchoDoesNotRevertState(t *testing.T) {
	f := newFakeStore()
	stale := collabDoc([]domain.Task{{ID: "t1", Title: "One", Status: domain.StatusToDo}})
	f.docs["ws-collab-1"] = stale
	eng := newTestEngine(t, f)
	eng.Open("ws-collab-1")
	waitLoaded(t, eng)

	require.NoError(t, eng.SetTasks([]domain.Task{
		{ID: "t1", Title: "One", Status: domain.StatusInProgress},
	}))

	// A stale snapshot arrives while the save is pending
	f.push("ws-collab-1", stale)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, domain.StatusInProgress, eng.State().Tasks[0].Status)

	// After debounce, save and grace window, a genuine remote change applies
	assert.Eventually(t, func() bool {
		doc := f.storedDoc("ws-collab-1")
		return doc != nil && len(doc.Tasks) == 1 && doc.Tasks[0].Status == domain.StatusInProgress
	}, waitFor, tick)
	time.Sleep(100 * time.Millisecond)

	remote := collabDoc([]domain.Task{
		{ID: "t1", Title: "One", Status: domain.StatusInProgress},
		{ID: "t2", Title: "Two", Status: domain.StatusToDo},
	})
	f.push("ws-collab-1", remote)
	assert.Eventually(t, func() bool { return len(eng.State().Tasks) == 2 }, waitFor, tick)
}

func TestNotifications_DerivedFromRemoteAssignments(t *testing.T) {
	f := newFakeStore()
	f.docs["ws-collab-1"] = collabDoc([]domain.Task{
		{ID: "t1", Title: "Pre-existing", Status: domain.StatusToDo, ResponsibleID: "auth0|alice"},
	})
	eng := newTestEngine(t, f)
	eng.Open("ws-collab-1")
	waitLoaded(t, eng)

	// Initial snapshot never notifies, even with tasks already assigned
	assert.Empty(t, eng.Notifications().History())

	remote := collabDoc([]domain.Task{
		{ID: "t1", Title: "Pre-existing", Status: domain.StatusToDo, ResponsibleID: "auth0|alice"},
		{ID: "t2", Title: "Review designs", Status: domain.StatusToDo, ResponsibleID: "auth0|alice"},
	})
	f.push("ws-collab-1", remote)

	assert.Eventually(t, func() bool {
		history := eng.Notifications().History()
		return len(history) == 1 &&
			history[0].Message == `You have been assigned the task: "Review designs"`
	}, waitFor, tick)

	// Assigning a task to yourself locally must not notify, not even when
	// the save's echo comes back
	tasks := append(remote.Tasks, domain.Task{
		ID: "t3", Title: "Self-assigned", Status: domain.StatusToDo, ResponsibleID: "auth0|alice",
	})
	require.NoError(t, eng.SetTasks(tasks))
	assert.Eventually(t, func() bool {
		doc := f.storedDoc("ws-collab-1")
		return doc != nil && len(doc.Tasks) == 3
	}, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	f.push("ws-collab-1", f.storedDoc("ws-collab-1"))
	time.Sleep(100 * time.Millisecond)

	assert.Len(t, eng.Notifications().History(), 1)
}

func TestReconciliation_MigratesProvisionalUser(t *testing.T) {
	f := newFakeStore()
	f.docs["ws-collab-1"] = &domain.WorkspaceDocument{
		Tasks: []domain.Task{
			{ID: "t1", Title: "Theirs", Status: domain.StatusToDo, ResponsibleID: "invite-1"},
		},
		Projects: []domain.Project{
			{ID: "p1", Name: "Launch", ResponsibleIDs: []string{"invite-1", "auth0|bob"}},
		},
		Users: []domain.User{
			{ID: "invite-1", Name: "alice (invited)", Email: "alice@example.com", AvatarColor: "#E24A4A"},
			{ID: "auth0|bob", Name: "Bob", Email: "bob@example.com"},
		},
		Messages: []domain.Message{
			{ID: "m1", Text: "hi", UserID: "invite-1"},
		},
		Name: "Team Board",
	}

	eng := newTestEngine(t, f)
	eng.Open("ws-collab-1")
	waitLoaded(t, eng)

	state := eng.State()
	require.Len(t, state.Users, 2)
	assert.Equal(t, "auth0|alice", state.Users[0].ID)
	assert.Equal(t, "Alice", state.Users[0].Name)
	assert.Equal(t, "#E24A4A", state.Users[0].AvatarColor, "provisional color survives migration")
	assert.Equal(t, "auth0|alice", state.Tasks[0].ResponsibleID)
	assert.Equal(t, []string{"auth0|alice", "auth0|bob"}, state.Projects[0].ResponsibleIDs)
	assert.Equal(t, "auth0|alice", state.Messages[0].UserID)

	// The migration is written back shortly after
	assert.Eventually(t, func() bool {
		doc := f.storedDoc("ws-collab-1")
		return doc != nil && len(doc.Users) == 2 && doc.Users[0].ID == "auth0|alice"
	}, waitFor, tick)
}

func TestMoveTask_Errors(t *testing.T) {
	f := newFakeStore()
	f.docs["ws-collab-1"] = collabDoc([]domain.Task{
		{ID: "t1", Title: "One", Status: domain.StatusToDo},
	})
	eng := newTestEngine(t, f)

	err := eng.MoveTask("t1", domain.StatusDone, 0)
	assert.ErrorIs(t, err, ErrNotLoaded)

	eng.Open("ws-collab-1")
	waitLoaded(t, eng)

	assert.ErrorIs(t, eng.MoveTask("missing", domain.StatusDone, 0), ErrTaskNotFound)
	assert.Error(t, eng.MoveTask("t1", domain.Status("bogus"), 0))
	assert.NoError(t, eng.MoveTask("t1", domain.StatusDone, 0))
	require.NotNil(t, eng.State().Tasks[0].CompletedAt)
}

func TestOpen_SwitchDropsStaleSnapshots(t *testing.T) {
	f := newFakeStore()
	f.docs["ws-collab-a"] = collabDoc([]domain.Task{{ID: "a1", Title: "A", Status: domain.StatusToDo}})
	f.docs["ws-collab-b"] = collabDoc([]domain.Task{{ID: "b1", Title: "B", Status: domain.StatusToDo}})

	eng := newTestEngine(t, f)
	eng.Open("ws-collab-a")
	waitLoaded(t, eng)

	eng.Open("ws-collab-b")
	waitLoaded(t, eng)

	// A late write from the first workspace must not leak into the second
	f.push("ws-collab-a", collabDoc([]domain.Task{{ID: "a2", Title: "Late", Status: domain.StatusToDo}}))
	time.Sleep(50 * time.Millisecond)

	state := eng.State()
	assert.Equal(t, "ws-collab-b", state.WorkspaceID)
	require.Len(t, state.Tasks, 1)
	assert.Equal(t, "b1", state.Tasks[0].ID)
}

func TestAddUser(t *testing.T) {
	f := newFakeStore()
	f.docs["ws-collab-1"] = collabDoc(nil)
	eng := newTestEngine(t, f)

	_, err := eng.AddUser("Carol")
	assert.ErrorIs(t, err, ErrNotLoaded)

	eng.Open("ws-collab-1")
	waitLoaded(t, eng)

	user, err := eng.AddUser("Carol")
	require.NoError(t, err)
	assert.Equal(t, "Carol", user.Name)
	assert.Contains(t, user.ID, "user-")
	assert.Contains(t, domain.UserColors, user.AvatarColor)

	users := eng.State().Users
	assert.Equal(t, user, users[len(users)-1])
}
