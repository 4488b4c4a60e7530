package orderbook

import (
	"context"
	"sync"

	"canonflow/internal/symbols"
	"canonflow/logger"
)

// Manager indexes one engine per (exchange, symbol) key. Engines own their
// state exclusively; the manager only controls their lifecycle. There are no
// cross-symbol locks, so throughput scales with the number of keys.
type Manager struct {
	ctx     context.Context
	opts    Options
	fetcher SnapshotFetcher
	emit    EmitFunc
	log     *logger.Log

	mu      sync.RWMutex
	engines map[string]*Engine
}

// NewManager creates an empty engine index.
func NewManager(ctx context.Context, opts Options, fetcher SnapshotFetcher, emit EmitFunc) *Manager {
	return &Manager{
		ctx:     ctx,
		opts:    opts,
		fetcher: fetcher,
		emit:    emit,
		log:     logger.GetLogger(),
		engines: make(map[string]*Engine),
	}
}

func key(exchange, instrument string) string {
	return exchange + "|" + instrument
}

// Get returns the engine for the key, creating it on first use.
func (m *Manager) Get(exchange, instrument string, marketType symbols.MarketType) *Engine {
	k := key(exchange, instrument)

	m.mu.RLock()
	e, ok := m.engines[k]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.engines[k]; ok {
		return e
	}
	e = NewEngine(m.ctx, exchange, instrument, marketType, m.opts, m.fetcher, m.emit)
	m.engines[k] = e
	m.log.WithComponent("book_manager").WithFields(logger.Fields{
		"exchange": exchange,
		"symbol":   instrument,
	}).Info("order book engine created")
	return e
}

// Remove tears down the engine for a key when its subscription goes away.
func (m *Manager) Remove(exchange, instrument string) {
	k := key(exchange, instrument)

	m.mu.Lock()
	e, ok := m.engines[k]
	if ok {
		delete(m.engines, k)
	}
	m.mu.Unlock()

	if ok {
		e.Close()
		m.log.WithComponent("book_manager").WithFields(logger.Fields{
			"exchange": exchange,
			"symbol":   instrument,
		}).Info("order book engine removed")
	}
}

// CloseAll tears down every engine.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]*Engine)
	m.mu.Unlock()

	for _, e := range engines {
		e.Close()
	}
}

// Health reports the diagnostic surface of every live engine.
func (m *Manager) Health() []Health {
	m.mu.RLock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	m.mu.RUnlock()

	out := make([]Health, 0, len(engines))
	for _, e := range engines {
		out = append(out, e.Health())
	}
	return out
}
