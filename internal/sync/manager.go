package sync

import (
	"context"
	"sync"

	"github.com/Rrens/taskboard/internal/config"
	"github.com/Rrens/taskboard/internal/identity"
	"github.com/Rrens/taskboard/internal/localstore"
	"github.com/Rrens/taskboard/internal/store"
	"github.com/rs/zerolog"
)

// Manager owns one engine per identity. Keying by subject claim makes the
// storage mode sticky: re-authenticating with the same identity reuses the
// running engine, a different identity gets a fresh mode decision.
type Manager struct {
	cfg   config.SyncConfig
	log   zerolog.Logger
	cloud store.Store
	kv    *localstore.KV

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewManager creates the engine registry. cloud may be nil when no backend is
// configured.
func NewManager(cfg config.SyncConfig, log zerolog.Logger, cloud store.Store, kv *localstore.KV) *Manager {
	return &Manager{
		cfg:     cfg,
		log:     log,
		cloud:   cloud,
		kv:      kv,
		engines: make(map[string]*Engine),
	}
}

// Engine returns the running engine for the identity, starting one on first
// use.
func (m *Manager) Engine(ctx context.Context, p identity.Profile) (*Engine, error) {
	m.mu.Lock()
	if eng, ok := m.engines[p.Sub]; ok {
		m.mu.Unlock()
		return eng, nil
	}
	m.mu.Unlock()

	eng := NewEngine(m.cfg, m.log, p, m.cloud, m.kv)
	if err := eng.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.engines[p.Sub]; ok {
		// Lost the race to a concurrent first request.
		eng.Close()
		return existing, nil
	}
	m.engines[p.Sub] = eng
	return eng, nil
}

// Close shuts down every engine.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, eng := range m.engines {
		eng.Close()
	}
	m.engines = make(map[string]*Engine)
}
