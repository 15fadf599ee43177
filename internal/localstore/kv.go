package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// KV is the local persistence adapter: a sqlite-backed key-value store with a
// cross-process change feed. Every write records a revision and the id of the
// writing process; watchers only see revisions written by other processes,
// matching the browser storage event that fires in sibling tabs but never in
// the writer itself.
type KV struct {
	db           *sql.DB
	writerID     string
	pollInterval time.Duration
}

// Option configures a KV.
type Option func(*KV)

// WithPollInterval overrides how often watchers check for foreign revisions.
func WithPollInterval(d time.Duration) Option {
	return func(kv *KV) { kv.pollInterval = d }
}

// Open opens (creating if needed) the store at path.
func Open(path string, opts ...Option) (*KV, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			rev        INTEGER NOT NULL DEFAULT 1,
			writer     TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	kv := &KV{
		db:           db,
		writerID:     uuid.NewString(),
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(kv)
	}
	return kv, nil
}

// Close closes the store.
func (kv *KV) Close() error {
	return kv.db.Close()
}

// Get returns the value for key. The second return is false when the key is
// absent.
func (kv *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := kv.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key: %w", err)
	}
	return value, true, nil
}

// Set stores value under key, bumping the revision so sibling processes see
// the change.
func (kv *KV) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv (key, value, rev, writer, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			rev = kv.rev + 1,
			writer = excluded.writer,
			updated_at = excluded.updated_at
	`
	_, err := kv.db.ExecContext(ctx, query, key, value, kv.writerID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Remove deletes key.
func (kv *KV) Remove(ctx context.Context, key string) error {
	if _, err := kv.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove key: %w", err)
	}
	return nil
}

// Keys returns all keys with the given prefix.
func (kv *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := kv.db.QueryContext(ctx, `SELECT key FROM kv WHERE key LIKE ? || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Watch delivers the value of key whenever another process writes it. The
// channel closes when ctx is done. Writes made through this KV instance are
// never delivered.
func (kv *KV) Watch(ctx context.Context, key string) <-chan string {
	ch := make(chan string, 1)

	go func() {
		defer close(ch)

		lastRev, _, _ := kv.revision(ctx, key)
		ticker := time.NewTicker(kv.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			rev, writer, err := kv.revision(ctx, key)
			if err != nil || rev == lastRev {
				continue
			}
			lastRev = rev
			if writer == kv.writerID {
				continue
			}

			value, ok, err := kv.Get(ctx, key)
			if err != nil || !ok {
				continue
			}
			select {
			case ch <- value:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

func (kv *KV) revision(ctx context.Context, key string) (int64, string, error) {
	var rev int64
	var writer string
	err := kv.db.QueryRowContext(ctx, `SELECT rev, writer FROM kv WHERE key = ?`, key).Scan(&rev, &writer)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	return rev, writer, nil
}
