package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/redis"
	"github.com/Rrens/taskboard/internal/store"
	"github.com/jackc/pgx/v5"
)

// Store keeps each workspace as a single JSONB row. Subscriptions poll the
// revision column; when a Redis client is configured, saves additionally
// publish on a per-workspace channel so other subscribers refetch without
// waiting for the next poll tick.
type Store struct {
	db           *DB
	rdb          *redis.Client // optional push channel, may be nil
	pollInterval time.Duration
}

// New returns a postgres-backed workspace store. rdb may be nil.
func New(db *DB, rdb *redis.Client, pollInterval time.Duration) *Store {
	return &Store{db: db, rdb: rdb, pollInterval: pollInterval}
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Get(ctx context.Context, id string) store.Snapshot {
	doc, _, err := s.fetch(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Snapshot{NotFound: true}
	}
	if err != nil {
		return store.Snapshot{Err: err}
	}
	return store.Snapshot{Doc: doc}
}

func (s *Store) fetch(ctx context.Context, id string) (*domain.WorkspaceDocument, int64, error) {
	query := `SELECT data, rev FROM workspaces WHERE id = $1`

	var raw []byte
	var rev int64
	if err := s.db.Pool.QueryRow(ctx, query, id).Scan(&raw, &rev); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("failed to fetch workspace: %w", err)
	}

	var doc domain.WorkspaceDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal workspace: %w", err)
	}
	return &doc, rev, nil
}

func (s *Store) revision(ctx context.Context, id string) (int64, error) {
	var rev int64
	err := s.db.Pool.QueryRow(ctx, `SELECT rev FROM workspaces WHERE id = $1`, id).Scan(&rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return rev, err
}

func (s *Store) Save(ctx context.Context, id string, doc *domain.WorkspaceDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}

	query := `
		INSERT INTO workspaces (id, data, rev, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			rev = workspaces.rev + 1,
			updated_at = NOW()
	`
	if _, err := s.db.Pool.Exec(ctx, query, id, raw); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}

	if s.rdb != nil {
		// Best effort; pollers converge anyway.
		_ = s.rdb.Publish(ctx, changeChannel(id), id)
	}
	return nil
}

func changeChannel(id string) string {
	return "workspace:" + id
}

// Subscribe delivers the current row and then re-fetches whenever the
// revision advances, woken either by the poll ticker or a Redis publish.
func (s *Store) Subscribe(ctx context.Context, id string) (<-chan store.Snapshot, error) {
	ch := make(chan store.Snapshot, 1)

	var wake <-chan string
	if s.rdb != nil {
		wake = s.rdb.Subscribe(ctx, changeChannel(id))
	}

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

		var lastRev int64
		doc, rev, err := s.fetch(ctx, id)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if !emit(store.Snapshot{NotFound: true}) {
				return
			}
		case err != nil:
			if !emit(store.Snapshot{Err: err}) {
				return
			}
		default:
			lastRev = rev
			if !emit(store.Snapshot{Doc: doc}) {
				return
			}
		}

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case _, ok := <-wake:
				if !ok {
					wake = nil
					continue
				}
			}

			rev, err := s.revision(ctx, id)
			if err != nil || rev == lastRev {
				continue
			}

			doc, rev, err := s.fetch(ctx, id)
			if err != nil {
				continue
			}
			lastRev = rev
			if !emit(store.Snapshot{Doc: doc}) {
				return
			}
		}
	}()

	return ch, nil
}

func (s *Store) ListForMember(ctx context.Context, memberID, email string) ([]domain.Workspace, error) {
	byID, err := json.Marshal([]map[string]string{{"id": memberID}})
	if err != nil {
		return nil, fmt.Errorf("failed to build member filter: %w", err)
	}

	query := `SELECT id, data FROM workspaces WHERE data->'users' @> $1::jsonb`
	args := []any{string(byID)}

	if email != "" {
		byEmail, err := json.Marshal([]map[string]string{{"email": email}})
		if err != nil {
			return nil, fmt.Errorf("failed to build email filter: %w", err)
		}
		query += ` OR data->'users' @> $2::jsonb`
		args = append(args, string(byEmail))
	}

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var list []domain.Workspace
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}

		var doc domain.WorkspaceDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if doc.Name == "" {
			continue
		}
		list = append(list, doc.Meta(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workspaces: %w", err)
	}

	return store.DedupeWorkspaces(list), nil
}

func (s *Store) RemoveMember(ctx context.Context, workspaceID, memberID string) error {
	return store.Leave(ctx, s, workspaceID, memberID)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if s.rdb != nil {
		_ = s.rdb.Publish(ctx, changeChannel(id), id)
	}
	return nil
}
