package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rrens/taskboard/internal/config"
	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/identity"
	"github.com/Rrens/taskboard/internal/localstore"
	"github.com/Rrens/taskboard/internal/notify"
	"github.com/Rrens/taskboard/internal/store"
	"github.com/Rrens/taskboard/internal/store/local"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mode is the storage mode a session runs in. It is decided once at engine
// start and stays sticky for the identity's lifetime.
type Mode string

const (
	ModeCloud Mode = "cloud"
	ModeLocal Mode = "local"
)

var (
	ErrNotLoaded        = errors.New("workspace not loaded")
	ErrTaskNotFound     = errors.New("task not found")
	ErrUnknownWorkspace = errors.New("unknown workspace")
)

// Engine synchronizes one identity's workspaces against a document store. It
// holds the in-memory working copy of the open workspace, debounces saves,
// suppresses echoes of its own writes, reconciles provisional invited users
// onto the authenticated identity and derives assignment notifications from
// remote snapshots.
type Engine struct {
	cfg      config.SyncConfig
	log      zerolog.Logger
	profile  identity.Profile
	cloud    store.Store
	fallback store.Store
	kv       *localstore.KV
	notifier *notify.Service

	mu     sync.Mutex
	mode   Mode
	active store.Store
	closed bool

	workspaceID string
	doc         domain.WorkspaceDocument
	loaded      bool
	syncing     bool

	personal   domain.Workspace
	collab     []domain.Workspace
	listLoaded bool

	// prevTasks is the assignment baseline for notification diffing. It is
	// refreshed at local mutation time too, so our own assignment edits
	// never echo back as notifications.
	prevTasks   map[string]domain.Task
	initialLoad bool

	// pendingLocal marks a local mutation whose save has not yet cleared
	// its grace window; remote snapshots are dropped while it is set.
	pendingLocal bool
	pendingSeq   uint64
	saveTimer    *time.Timer

	subSeq     uint64
	cancelSub  context.CancelFunc
	cancelList context.CancelFunc
	loadTimer  *time.Timer
}

// NewEngine creates an engine for one identity. cloud may be nil when no
// backend is configured; the session then always runs in local mode.
func NewEngine(cfg config.SyncConfig, log zerolog.Logger, p identity.Profile, cloud store.Store, kv *localstore.KV) *Engine {
	return &Engine{
		cfg:      cfg,
		log:      log.With().Str("component", "sync").Str("sub", p.Sub).Logger(),
		profile:  p,
		cloud:    cloud,
		fallback: local.New(kv, p.Sub, log),
		kv:       kv,
		notifier: notify.NewService(),
	}
}

// Start decides the storage mode and boots the workspace list. Cloud wins when
// the backend answers a ping within the auth timeout, otherwise the session
// falls back to local persistence.
func (e *Engine) Start(ctx context.Context) error {
	e.mode = ModeLocal
	e.active = e.fallback

	if e.cloud != nil {
		pingCtx, cancel := context.WithTimeout(ctx, e.cfg.AuthTimeout)
		err := e.cloud.Ping(pingCtx)
		cancel()
		if err != nil {
			e.log.Warn().Err(err).Str("backend", e.cloud.Name()).Msg("Cloud backend unreachable, running in local mode")
		} else {
			e.mode = ModeCloud
			e.active = e.cloud
		}
	}

	if err := e.loadPersonalMeta(ctx); err != nil {
		return err
	}

	if e.mode == ModeCloud {
		listCtx, cancel := context.WithCancel(context.Background())
		e.cancelList = cancel
		go e.pollList(listCtx)
		return nil
	}
	return e.loadLocalList(ctx)
}

// Mode returns the storage mode the session runs in.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Profile returns the identity the engine serves.
func (e *Engine) Profile() identity.Profile { return e.profile }

// Notifications exposes the engine's notification feed.
func (e *Engine) Notifications() *notify.Service { return e.notifier }

// Open switches the engine to a workspace: tears down the previous
// subscription, resets the per-workspace baselines and subscribes to the new
// document. A safety timer force-initializes defaults in local mode if no
// snapshot arrives in time; in cloud mode the session keeps waiting so real
// data is never shadowed by defaults.
func (e *Engine) Open(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if id == e.workspaceID && e.cancelSub != nil {
		return
	}

	if e.cancelSub != nil {
		e.cancelSub()
		e.cancelSub = nil
	}
	if e.loadTimer != nil {
		e.loadTimer.Stop()
	}

	e.subSeq++
	seq := e.subSeq
	e.pendingSeq++
	e.pendingLocal = false
	e.workspaceID = id
	e.doc = domain.WorkspaceDocument{}
	e.loaded = false
	e.syncing = e.mode == ModeCloud
	e.initialLoad = true
	e.prevTasks = nil

	subCtx, cancel := context.WithCancel(context.Background())
	e.cancelSub = cancel
	go e.run(subCtx, e.active, seq, id)

	e.loadTimer = time.AfterFunc(e.cfg.LoadTimeout, func() { e.onLoadTimeout(seq, id) })
}

func (e *Engine) run(ctx context.Context, st store.Store, seq uint64, id string) {
	ch, err := st.Subscribe(ctx, id)
	if err != nil {
		e.log.Error().Err(err).Str("workspace", id).Msg("Failed to subscribe to workspace")
		return
	}
	for snap := range ch {
		e.handleSnapshot(seq, id, snap)
	}
}

func (e *Engine) handleSnapshot(seq uint64, id string, snap store.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.subSeq {
		return
	}

	switch {
	case snap.Err != nil:
		// Keep current state. In cloud mode the session stays in its
		// loading phase rather than initializing defaults over data
		// that may well exist.
		e.log.Error().Err(snap.Err).Str("workspace", id).Msg("Workspace snapshot error")
		return
	case snap.NotFound:
		e.initializeDefaultsLocked(id)
		return
	}

	if e.pendingLocal {
		// A local mutation is in flight; this snapshot is its echo or
		// predates it. The optimistic state wins.
		return
	}

	doc := cloneDoc(snap.Doc)
	for i := range doc.Users {
		doc.Users[i].Name = domain.RepairMojibake(doc.Users[i].Name)
	}

	if e.mode == ModeCloud && !e.initialLoad {
		for _, t := range newlyAssigned(e.prevTasks, doc.Tasks, e.profile.Sub) {
			e.notifier.Add(fmt.Sprintf("You have been assigned the task: %q", t.Title), notify.TypeInfo)
		}
	}
	e.prevTasks = indexTasks(doc.Tasks)
	e.initialLoad = false

	migrated := reconcileIdentity(doc, e.profile)
	ensureMember(doc, e.profile)
	e.refreshSelfLocked(doc)
	if migrated {
		e.scheduleWriteBack(id, cloneDoc(doc))
	}

	e.doc = *doc
	e.loaded = true
	e.syncing = false
	if e.loadTimer != nil {
		e.loadTimer.Stop()
	}
}

// refreshSelfLocked keeps the identity's own member entry in step with the
// live auth profile.
func (e *Engine) refreshSelfLocked(doc *domain.WorkspaceDocument) {
	for i := range doc.Users {
		if doc.Users[i].ID != e.profile.Sub {
			continue
		}
		doc.Users[i].Name = domain.RepairMojibake(e.profile.Name)
		doc.Users[i].Picture = e.profile.Picture
		if e.profile.Email != "" {
			doc.Users[i].Email = e.profile.Email
		}
		return
	}
}

// scheduleWriteBack persists an identity migration after a short delay, off
// the snapshot path, so a burst of snapshots does not trigger a save per
// snapshot.
func (e *Engine) scheduleWriteBack(id string, doc *domain.WorkspaceDocument) {
	st := e.active
	time.AfterFunc(e.cfg.ReconcileDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SaveTimeout)
		defer cancel()
		if err := st.Save(ctx, id, doc); err != nil {
			e.log.Error().Err(err).Str("workspace", id).Msg("Failed to persist identity migration")
			return
		}
		e.log.Info().Str("workspace", id).Msg("Persisted identity migration")
	})
}

// initializeDefaultsLocked seeds a workspace that the backend explicitly
// reported as absent. Personal workspaces get the demo board; collaborative
// ones start empty with the member roster from the list entry. The defaults
// are scheduled for save, which is how a new document gets created lazily.
func (e *Engine) initializeDefaultsLocked(id string) {
	var doc domain.WorkspaceDocument
	if domain.IsPersonalID(id) {
		doc.Tasks = domain.SampleTasks()
		doc.Projects = domain.SampleProjects()
		doc.Users = append([]domain.User{e.selfUser()}, domain.SampleUsers()...)
	} else {
		doc.Users = []domain.User{e.selfUser()}
		for _, w := range e.collab {
			if w.ID != id {
				continue
			}
			if len(w.Members) > 0 {
				doc.Users = append([]domain.User(nil), w.Members...)
				ensureMember(&doc, e.profile)
			}
			break
		}
	}
	e.applyMetaLocked(id, &doc)

	e.doc = doc
	e.prevTasks = indexTasks(doc.Tasks)
	e.initialLoad = false
	e.loaded = true
	e.syncing = false
	if e.loadTimer != nil {
		e.loadTimer.Stop()
	}
	e.scheduleSaveLocked()
}

func (e *Engine) onLoadTimeout(seq uint64, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.subSeq || e.loaded {
		return
	}
	if e.mode == ModeCloud {
		e.log.Warn().Str("workspace", id).Msg("Workspace load timed out, still waiting for backend")
		return
	}
	e.log.Warn().Str("workspace", id).Msg("Workspace load timed out, initializing defaults")
	e.initializeDefaultsLocked(id)
}

func (e *Engine) selfUser() domain.User {
	return domain.User{
		ID:          e.profile.Sub,
		Name:        domain.RepairMojibake(e.profile.Name),
		Picture:     e.profile.Picture,
		Email:       e.profile.Email,
		AvatarColor: memberColor(0),
	}
}

// mutate applies a local change to the open document, refreshes the
// notification baseline and schedules a debounced save.
func (e *Engine) mutate(fn func(doc *domain.WorkspaceDocument)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return ErrNotLoaded
	}
	fn(&e.doc)
	e.prevTasks = indexTasks(e.doc.Tasks)
	e.scheduleSaveLocked()
	return nil
}

// SetTasks replaces the task collection.
func (e *Engine) SetTasks(tasks []domain.Task) error {
	return e.mutate(func(doc *domain.WorkspaceDocument) { doc.Tasks = tasks })
}

// SetProjects replaces the project collection.
func (e *Engine) SetProjects(projects []domain.Project) error {
	return e.mutate(func(doc *domain.WorkspaceDocument) { doc.Projects = projects })
}

// SetUsers replaces the user collection.
func (e *Engine) SetUsers(users []domain.User) error {
	return e.mutate(func(doc *domain.WorkspaceDocument) { doc.Users = users })
}

// SetMessages replaces the message collection.
func (e *Engine) SetMessages(messages []domain.Message) error {
	return e.mutate(func(doc *domain.WorkspaceDocument) { doc.Messages = messages })
}

// AddUser creates a board member with a generated id and the next palette
// color, for people who have no account of their own.
func (e *Engine) AddUser(name string) (domain.User, error) {
	u := domain.User{
		ID:   "user-" + uuid.NewString(),
		Name: name,
	}
	err := e.mutate(func(doc *domain.WorkspaceDocument) {
		u.AvatarColor = memberColor(len(doc.Users))
		doc.Users = append(doc.Users, u)
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// MoveTask relocates a task to a column position, stamping or clearing its
// completion time on Done transitions.
func (e *Engine) MoveTask(taskID string, status domain.Status, index int) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	moved := false
	if err := e.mutate(func(doc *domain.WorkspaceDocument) {
		doc.Tasks, moved = moveTask(doc.Tasks, taskID, status, index, time.Now())
	}); err != nil {
		return err
	}
	if !moved {
		return ErrTaskNotFound
	}
	return nil
}

func (e *Engine) scheduleSaveLocked() {
	e.pendingLocal = true
	e.pendingSeq++
	seq := e.pendingSeq
	if e.saveTimer != nil {
		e.saveTimer.Stop()
	}
	e.saveTimer = time.AfterFunc(e.cfg.SaveDebounce, func() { e.flush(seq) })
}

func (e *Engine) flush(seq uint64) {
	e.mu.Lock()
	if seq != e.pendingSeq || !e.loaded {
		e.mu.Unlock()
		return
	}
	id := e.workspaceID
	st := e.active
	doc := cloneDoc(&e.doc)
	e.applyMetaLocked(id, doc)
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SaveTimeout)
	defer cancel()
	if err := st.Save(ctx, id, doc); err != nil {
		e.log.Error().Err(err).Str("workspace", id).Str("backend", st.Name()).Msg("Failed to save workspace")
		e.notifier.Add("Your latest changes could not be saved", notify.TypeInfo)
	}

	// The grace window outlives the write so the echo of our own save does
	// not bounce the in-memory state backwards.
	time.AfterFunc(e.cfg.SaveGrace, func() {
		e.mu.Lock()
		if seq == e.pendingSeq {
			e.pendingLocal = false
		}
		e.mu.Unlock()
	})
}

// applyMetaLocked stamps the saved document with the workspace's list-entry
// metadata so every full-document write carries current name, icon and theme.
func (e *Engine) applyMetaLocked(id string, doc *domain.WorkspaceDocument) {
	if id == e.personal.ID {
		doc.Name = e.personal.Name
		doc.IsPersonal = true
		doc.Icon = e.personal.Icon
		doc.Theme = e.personal.Theme
		return
	}
	for _, w := range e.collab {
		if w.ID == id {
			doc.Name = w.Name
			doc.IsPersonal = false
			doc.Icon = w.Icon
			doc.Theme = w.Theme
			doc.Order = w.Order
			return
		}
	}
}

// State is the engine's current view of the open workspace.
type State struct {
	WorkspaceID string           `json:"workspaceId"`
	Mode        Mode             `json:"mode"`
	Loaded      bool             `json:"loaded"`
	Syncing     bool             `json:"syncing"`
	Tasks       []domain.Task    `json:"tasks"`
	Projects    []domain.Project `json:"projects"`
	Users       []domain.User    `json:"users"`
	Messages    []domain.Message `json:"messages"`
}

// State returns a copy of the open workspace's state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc := cloneDoc(&e.doc)
	return State{
		WorkspaceID: e.workspaceID,
		Mode:        e.mode,
		Loaded:      e.loaded,
		Syncing:     e.syncing,
		Tasks:       doc.Tasks,
		Projects:    doc.Projects,
		Users:       doc.Users,
		Messages:    doc.Messages,
	}
}

// Close tears down subscriptions and invalidates pending timers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.cancelSub != nil {
		e.cancelSub()
		e.cancelSub = nil
	}
	if e.cancelList != nil {
		e.cancelList()
		e.cancelList = nil
	}
	if e.saveTimer != nil {
		e.saveTimer.Stop()
	}
	if e.loadTimer != nil {
		e.loadTimer.Stop()
	}
	e.subSeq++
	e.pendingSeq++
}
