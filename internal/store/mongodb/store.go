package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/taskboard/internal/config"
	"github.com/Rrens/taskboard/internal/domain"
	"github.com/Rrens/taskboard/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the MongoDB-backed workspace document store: one document per
// workspace, replaced wholesale on save.
type Store struct {
	client       *mongo.Client
	coll         *mongo.Collection
	pollInterval time.Duration
}

// envelope is the stored shape: the workspace payload plus bookkeeping used
// by the polling subscription.
type envelope struct {
	ID        string                    `bson:"_id"`
	Data      *domain.WorkspaceDocument `bson:"data"`
	UpdatedAt time.Time                 `bson:"updated_at"`
}

// New connects to MongoDB and returns the store.
func New(ctx context.Context, cfg config.MongoConfig, pollInterval time.Duration) (*Store, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return &Store{
		client:       client,
		coll:         client.Database(cfg.Database).Collection(cfg.Collection),
		pollInterval: pollInterval,
	}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Name() string { return "mongodb" }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Get(ctx context.Context, id string) store.Snapshot {
	var env envelope
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&env)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Snapshot{NotFound: true}
	}
	if err != nil {
		return store.Snapshot{Err: fmt.Errorf("failed to fetch workspace: %w", err)}
	}
	return store.Snapshot{Doc: env.Data}
}

func (s *Store) Save(ctx context.Context, id string, doc *domain.WorkspaceDocument) error {
	env := envelope{ID: id, Data: doc, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, env, opts); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}
	return nil
}

// Subscribe delivers the current document and then polls for foreign writes,
// emitting a snapshot whenever the stored updated_at moves.
func (s *Store) Subscribe(ctx context.Context, id string) (<-chan store.Snapshot, error) {
	ch := make(chan store.Snapshot, 1)

	go func() {
		defer close(ch)

		var lastSeen time.Time

		emit := func(snap store.Snapshot) bool {
			select {
			case ch <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var env envelope
		err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&env)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			if !emit(store.Snapshot{NotFound: true}) {
				return
			}
		case err != nil:
			if !emit(store.Snapshot{Err: fmt.Errorf("failed to fetch workspace: %w", err)}) {
				return
			}
		default:
			lastSeen = env.UpdatedAt
			if !emit(store.Snapshot{Doc: env.Data}) {
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
			}

			var env envelope
			err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&env)
			if err != nil {
				// Transient failures are not surfaced mid-stream; the
				// next tick retries.
				continue
			}
			if !env.UpdatedAt.After(lastSeen) {
				continue
			}
			lastSeen = env.UpdatedAt
			if !emit(store.Snapshot{Doc: env.Data}) {
				return
			}
		}
	}()

	return ch, nil
}

func (s *Store) ListForMember(ctx context.Context, memberID, email string) ([]domain.Workspace, error) {
	match := []bson.M{{"data.users.id": memberID}}
	if email != "" {
		match = append(match, bson.M{"data.users.email": email})
	}

	cursor, err := s.coll.Find(ctx, bson.M{"$or": match})
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer cursor.Close(ctx)

	var list []domain.Workspace
	for cursor.Next(ctx) {
		var env envelope
		if err := cursor.Decode(&env); err != nil {
			return nil, fmt.Errorf("failed to decode workspace: %w", err)
		}
		if env.Data == nil || env.Data.Name == "" {
			continue
		}
		list = append(list, env.Data.Meta(env.ID))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workspaces: %w", err)
	}

	return store.DedupeWorkspaces(list), nil
}

func (s *Store) RemoveMember(ctx context.Context, workspaceID, memberID string) error {
	return store.Leave(ctx, s, workspaceID, memberID)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	return nil
}
