package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/notify"
	"github.com/google/uuid"
)

const listKey = "workspaces"

func personalMetaKey(sub string) string { return "personal_meta:" + sub }

const (
	defaultPersonalName = "My Workspace"
	defaultIcon         = "🚀"
	defaultTheme        = "#4A90E2"
	personalIcon        = "🏠"
	personalTheme       = "#254467"
)

// WorkspaceList is the selector view: the synthetic personal workspace plus
// the collaborative memberships.
type WorkspaceList struct {
	Personal      domain.Workspace   `json:"personal"`
	Collaborative []domain.Workspace `json:"collaborative"`
	Loaded        bool               `json:"loaded"`
	Mode          Mode               `json:"mode"`
}

// WorkspaceUpdate carries a partial metadata change; nil fields stay as they
// are.
type WorkspaceUpdate struct {
	Name  *string `json:"name"`
	Icon  *string `json:"icon"`
	Theme *string `json:"theme"`
}

// Workspaces returns the current workspace list, collaborative entries sorted
// by order.
func (e *Engine) Workspaces() WorkspaceList {
	e.mu.Lock()
	defer e.mu.Unlock()
	collab := append([]domain.Workspace(nil), e.collab...)
	sort.SliceStable(collab, func(i, j int) bool { return collab[i].Order < collab[j].Order })
	return WorkspaceList{
		Personal:      e.personal,
		Collaborative: collab,
		Loaded:        e.listLoaded,
		Mode:          e.mode,
	}
}

// loadPersonalMeta restores the personal workspace's metadata from the local
// adapter. The personal workspace never appears in backend list queries; it
// is synthesized from the subject claim.
func (e *Engine) loadPersonalMeta(ctx context.Context) error {
	meta := domain.Workspace{
		ID:         domain.PersonalWorkspaceID(e.profile.Sub),
		Name:       defaultPersonalName,
		IsPersonal: true,
		Icon:       personalIcon,
		Theme:      personalTheme,
	}

	raw, ok, err := e.kv.Get(ctx, personalMetaKey(e.profile.Sub))
	if err != nil {
		return fmt.Errorf("failed to load personal workspace metadata: %w", err)
	}
	if ok {
		var stored domain.Workspace
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			e.log.Warn().Err(err).Msg("Malformed personal workspace metadata, using defaults")
		} else {
			if stored.Name != "" {
				meta.Name = stored.Name
			}
			if stored.Icon != "" {
				meta.Icon = stored.Icon
			}
			if stored.Theme != "" {
				meta.Theme = stored.Theme
			}
		}
	}

	e.mu.Lock()
	e.personal = meta
	e.mu.Unlock()
	return nil
}

// pollList keeps the collaborative list fresh against the cloud backend. A
// failed query keeps the previous list; an empty membership is a valid result.
func (e *Engine) pollList(ctx context.Context) {
	e.refreshList(ctx)

	ticker := time.NewTicker(e.cfg.ListPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.refreshList(ctx)
		}
	}
}

func (e *Engine) refreshList(ctx context.Context) {
	list, err := e.active.ListForMember(ctx, e.profile.Sub, e.profile.Email)
	if err != nil {
		e.log.Warn().Err(err).Msg("Workspace list query failed, keeping previous list")
		return
	}

	collab := list[:0:0]
	for _, w := range list {
		if !w.IsPersonal && !domain.IsPersonalID(w.ID) {
			collab = append(collab, w)
		}
	}
	sort.SliceStable(collab, func(i, j int) bool { return collab[i].Order < collab[j].Order })

	e.mu.Lock()
	e.collab = collab
	e.listLoaded = true
	e.mu.Unlock()
}

// loadLocalList restores the collaborative list from the local adapter,
// seeding the demo workspaces on first run or when the stored payload is
// malformed.
func (e *Engine) loadLocalList(ctx context.Context) error {
	raw, ok, err := e.kv.Get(ctx, listKey)
	if err != nil {
		return fmt.Errorf("failed to load workspace list: %w", err)
	}

	var collab []domain.Workspace
	seeded := false
	if !ok {
		collab = domain.SampleWorkspaces()
		seeded = true
	} else if err := json.Unmarshal([]byte(raw), &collab); err != nil {
		e.log.Warn().Err(err).Msg("Malformed workspace list, reseeding demo workspaces")
		collab = domain.SampleWorkspaces()
		seeded = true
	}
	sort.SliceStable(collab, func(i, j int) bool { return collab[i].Order < collab[j].Order })

	e.mu.Lock()
	e.collab = collab
	e.listLoaded = true
	e.mu.Unlock()

	if seeded {
		return e.persistLocalList(ctx)
	}
	return nil
}

func (e *Engine) persistLocalList(ctx context.Context) error {
	e.mu.Lock()
	raw, err := json.Marshal(e.collab)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal workspace list: %w", err)
	}
	return e.kv.Set(ctx, listKey, string(raw))
}

// AddWorkspace creates a collaborative workspace with the identity as its
// sole member and appends it to the list optimistically.
func (e *Engine) AddWorkspace(ctx context.Context, name string) (domain.Workspace, error) {
	e.mu.Lock()
	creator := e.selfUser()
	ws := domain.Workspace{
		ID:      domain.CollabPrefix + uuid.NewString(),
		Name:    name,
		Members: []domain.User{creator},
		Icon:    defaultIcon,
		Theme:   defaultTheme,
		Order:   len(e.collab),
	}
	mode := e.mode
	st := e.active
	e.mu.Unlock()

	if mode == ModeCloud {
		doc := &domain.WorkspaceDocument{
			Tasks:    []domain.Task{},
			Projects: []domain.Project{},
			Users:    []domain.User{creator},
			Messages: []domain.Message{},
			Name:     ws.Name,
			Icon:     ws.Icon,
			Theme:    ws.Theme,
			Order:    ws.Order,
		}
		if err := st.Save(ctx, ws.ID, doc); err != nil {
			return domain.Workspace{}, fmt.Errorf("failed to create workspace: %w", err)
		}
	}

	e.mu.Lock()
	e.collab = append(e.collab, ws)
	e.mu.Unlock()

	if mode == ModeLocal {
		if err := e.persistLocalList(ctx); err != nil {
			return ws, err
		}
	}
	e.notifier.Add(fmt.Sprintf("Workspace %q created", name), notify.TypeSuccess)
	return ws, nil
}

// UpdateWorkspace applies a metadata change. Personal metadata lives in the
// local adapter only; collaborative metadata rides the document save path so
// other members pick it up.
func (e *Engine) UpdateWorkspace(ctx context.Context, id string, upd WorkspaceUpdate) error {
	e.mu.Lock()
	if id == e.personal.ID {
		applyUpdate(&e.personal, upd)
		meta := e.personal
		if e.workspaceID == id && e.loaded {
			e.applyMetaLocked(id, &e.doc)
		}
		e.mu.Unlock()

		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal personal workspace metadata: %w", err)
		}
		return e.kv.Set(ctx, personalMetaKey(e.profile.Sub), string(raw))
	}

	found := false
	for i := range e.collab {
		if e.collab[i].ID == id {
			applyUpdate(&e.collab[i], upd)
			found = true
			break
		}
	}
	if !found {
		e.mu.Unlock()
		return ErrUnknownWorkspace
	}

	mode := e.mode
	st := e.active
	open := e.workspaceID == id && e.loaded
	if open {
		e.applyMetaLocked(id, &e.doc)
		e.scheduleSaveLocked()
	}
	e.mu.Unlock()

	if mode == ModeLocal {
		return e.persistLocalList(ctx)
	}
	if open {
		return nil
	}

	// Workspace is not open: patch the stored document directly.
	snap := st.Get(ctx, id)
	if snap.Err != nil {
		return fmt.Errorf("failed to load workspace for update: %w", snap.Err)
	}
	if snap.Doc == nil {
		return nil
	}
	e.mu.Lock()
	e.applyMetaLocked(id, snap.Doc)
	e.mu.Unlock()
	return st.Save(ctx, id, snap.Doc)
}

func applyUpdate(w *domain.Workspace, upd WorkspaceUpdate) {
	if upd.Name != nil {
		w.Name = *upd.Name
	}
	if upd.Icon != nil {
		w.Icon = *upd.Icon
	}
	if upd.Theme != nil {
		w.Theme = *upd.Theme
	}
}

// DeleteWorkspace removes the identity from a collaborative workspace. The
// list entry goes away immediately; in cloud mode the backend decides between
// leaving and hard-deleting based on the remaining members.
func (e *Engine) DeleteWorkspace(ctx context.Context, id string) error {
	if domain.IsPersonalID(id) {
		return errors.New("personal workspace cannot be deleted")
	}

	e.mu.Lock()
	idx := -1
	for i, w := range e.collab {
		if w.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		e.mu.Unlock()
		return ErrUnknownWorkspace
	}
	e.collab = append(e.collab[:idx], e.collab[idx+1:]...)
	mode := e.mode
	st := e.active

	if e.workspaceID == id {
		if e.cancelSub != nil {
			e.cancelSub()
			e.cancelSub = nil
		}
		e.subSeq++
		e.pendingSeq++
		e.pendingLocal = false
		e.workspaceID = ""
		e.doc = domain.WorkspaceDocument{}
		e.loaded = false
		e.syncing = false
	}
	e.mu.Unlock()

	if mode == ModeCloud {
		if err := st.RemoveMember(ctx, id, e.profile.Sub); err != nil {
			return fmt.Errorf("failed to leave workspace: %w", err)
		}
		return nil
	}
	if err := e.persistLocalList(ctx); err != nil {
		return err
	}
	return e.fallback.Delete(ctx, id)
}

// ReorderWorkspaces renumbers the collaborative list densely in the given
// order. Omitted workspaces keep their relative order at the tail. In cloud
// mode the new positions are written through to each changed document.
func (e *Engine) ReorderWorkspaces(ctx context.Context, ids []string) error {
	e.mu.Lock()
	prev := make(map[string]int, len(e.collab))
	byID := make(map[string]domain.Workspace, len(e.collab))
	for _, w := range e.collab {
		prev[w.ID] = w.Order
		byID[w.ID] = w
	}

	ordered := make([]domain.Workspace, 0, len(e.collab))
	for _, id := range ids {
		w, ok := byID[id]
		if !ok {
			continue
		}
		w.Order = len(ordered)
		ordered = append(ordered, w)
		delete(byID, id)
	}
	for _, w := range e.collab {
		if _, ok := byID[w.ID]; ok {
			w.Order = len(ordered)
			ordered = append(ordered, w)
		}
	}

	var changed []domain.Workspace
	for _, w := range ordered {
		if prev[w.ID] != w.Order {
			changed = append(changed, w)
		}
	}
	e.collab = ordered
	mode := e.mode
	st := e.active
	e.mu.Unlock()

	if mode == ModeLocal {
		return e.persistLocalList(ctx)
	}

	for _, w := range changed {
		snap := st.Get(ctx, w.ID)
		if snap.Err != nil {
			e.log.Warn().Err(snap.Err).Str("workspace", w.ID).Msg("Failed to load workspace for reorder")
			continue
		}
		if snap.Doc == nil {
			continue
		}
		snap.Doc.Order = w.Order
		if err := st.Save(ctx, w.ID, snap.Doc); err != nil {
			e.log.Warn().Err(err).Str("workspace", w.ID).Msg("Failed to persist workspace order")
		}
	}
	return nil
}
