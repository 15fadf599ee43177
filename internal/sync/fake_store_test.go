package sync

import (
	"context"
	"sync"

	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/store"
)

// fakeStore is a channel-driven in-memory backend for engine tests. Snapshots
// are pushed by hand so tests control exactly when remote state arrives.
type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]*domain.WorkspaceDocument
	saves   map[string]int
	subs    map[string][]chan store.Snapshot
	pingErr error
	silent  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:  make(map[string]*domain.WorkspaceDocument),
		saves: make(map[string]int),
		subs:  make(map[string][]chan store.Snapshot),
	}
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) Get(ctx context.Context, id string) store.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return store.Snapshot{NotFound: true}
	}
	return store.Snapshot{Doc: cloneDoc(doc)}
}

func (f *fakeStore) Save(ctx context.Context, id string, doc *domain.WorkspaceDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = cloneDoc(doc)
	f.saves[id]++
	return nil
}

func (f *fakeStore) Subscribe(ctx context.Context, id string) (<-chan store.Snapshot, error) {
	ch := make(chan store.Snapshot, 16)

	f.mu.Lock()
	f.subs[id] = append(f.subs[id], ch)
	if !f.silent {
		if doc, ok := f.docs[id]; ok {
			ch <- store.Snapshot{Doc: cloneDoc(doc)}
		} else {
			ch <- store.Snapshot{NotFound: true}
		}
	}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		chans := f.subs[id]
		for i, c := range chans {
			if c == ch {
				f.subs[id] = append(chans[:i], chans[i+1:]...)
				close(ch)
				break
			}
		}
	}()

	return ch, nil
}

func (f *fakeStore) ListForMember(ctx context.Context, memberID, email string) ([]domain.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []domain.Workspace
	for id, doc := range f.docs {
		for _, u := range doc.Users {
			if u.ID == memberID || (email != "" && u.Email == email) {
				list = append(list, doc.Meta(id))
				break
			}
		}
	}
	return store.DedupeWorkspaces(list), nil
}

func (f *fakeStore) RemoveMember(ctx context.Context, workspaceID, memberID string) error {
	return store.Leave(ctx, f, workspaceID, memberID)
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

// push delivers a snapshot to every subscriber of the workspace, as if a
// remote writer had changed the document.
func (f *fakeStore) push(id string, doc *domain.WorkspaceDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = cloneDoc(doc)
	for _, ch := range f.subs[id] {
		ch <- store.Snapshot{Doc: cloneDoc(doc)}
	}
}

func (f *fakeStore) saveCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[id]
}

func (f *fakeStore) storedDoc(id string) *domain.WorkspaceDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil
	}
	return cloneDoc(doc)
}

func (f *fakeStore) hasDoc(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[id]
	return ok
}
