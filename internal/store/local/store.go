package local

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/localstore"
	"github.com/Rrens/taskboard/internal/store"
	"github.com/rs/zerolog"
)

// Store satisfies the workspace store contract on top of the local key-value
// adapter. It is scoped to one identity: personal workspace data is keyed per
// subject claim so two identities on the same machine do not share boards.
type Store struct {
	kv  *localstore.KV
	sub string
	log zerolog.Logger
}

// New returns a local store view for the given subject claim.
func New(kv *localstore.KV, sub string, log zerolog.Logger) *Store {
	return &Store{kv: kv, sub: sub, log: log}
}

func (s *Store) dataKey(id string) string {
	if domain.IsPersonalID(id) {
		return "data:" + s.sub + ":" + id
	}
	return "data:" + id
}

func (s *Store) Name() string { return "local" }

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Get(ctx context.Context, id string) store.Snapshot {
	raw, ok, err := s.kv.Get(ctx, s.dataKey(id))
	if err != nil {
		return store.Snapshot{Err: err}
	}
	if !ok {
		return store.Snapshot{NotFound: true}
	}

	var doc domain.WorkspaceDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		// A corrupt payload only loses this workspace: report not-found
		// so defaults get initialized, instead of failing the session.
		s.log.Warn().Err(err).Str("workspace", id).Msg("Malformed local workspace payload, reinitializing")
		return store.Snapshot{NotFound: true}
	}
	return store.Snapshot{Doc: &doc}
}

func (s *Store) Save(ctx context.Context, id string, doc *domain.WorkspaceDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}
	return s.kv.Set(ctx, s.dataKey(id), string(raw))
}

// Subscribe delivers the stored document and then relays sibling-process
// writes from the key-value change feed.
func (s *Store) Subscribe(ctx context.Context, id string) (<-chan store.Snapshot, error) {
	ch := make(chan store.Snapshot, 1)
	watch := s.kv.Watch(ctx, s.dataKey(id))

	go func() {
		defer close(ch)

		emit := func(snap store.Snapshot) bool {
			select {
			case ch <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(s.Get(ctx, id)) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-watch:
				if !ok {
					return
				}
				var doc domain.WorkspaceDocument
				if err := json.Unmarshal([]byte(raw), &doc); err != nil {
					s.log.Warn().Err(err).Str("workspace", id).Msg("Failed to parse updated workspace data")
					continue
				}
				if !emit(store.Snapshot{Doc: &doc}) {
					return
				}
			}
		}
	}()

	return ch, nil
}

// ListForMember scans stored collaborative documents. The engine normally
// reads the local workspace list key directly; this keeps the fallback store
// honest against the full contract.
func (s *Store) ListForMember(ctx context.Context, memberID, email string) ([]domain.Workspace, error) {
	keys, err := s.kv.Keys(ctx, "data:"+domain.CollabPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspaces: %w", err)
	}

	var list []domain.Workspace
	for _, key := range keys {
		raw, ok, err := s.kv.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var doc domain.WorkspaceDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue
		}
		for _, u := range doc.Users {
			if u.ID == memberID || (email != "" && u.Email == email) {
				list = append(list, doc.Meta(key[len("data:"):]))
				break
			}
		}
	}
	return store.DedupeWorkspaces(list), nil
}

func (s *Store) RemoveMember(ctx context.Context, workspaceID, memberID string) error {
	return store.Leave(ctx, s, workspaceID, memberID)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.Remove(ctx, s.dataKey(id))
}
