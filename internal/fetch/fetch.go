// Package fetch provides the REST snapshot sources the order-book engines
// resynchronize from.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"canonflow/internal/orderbook"
	"canonflow/internal/symbols"
)

const defaultTimeout = 10 * time.Second

// userAgentTransport pins a plain user agent on outgoing requests; some
// venues reject Go's default.
type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: userAgentTransport{agent: "curl/8.5.0", base: &http.Transport{}},
		Timeout:   defaultTimeout,
	}
}

// MultiFetcher routes snapshot requests to the fetcher registered for the
// requesting engine's exchange. It satisfies orderbook.SnapshotFetcher so a
// single manager can serve every venue.
type MultiFetcher struct {
	mu       sync.RWMutex
	fetchers map[string]orderbook.SnapshotFetcher
}

func NewMultiFetcher() *MultiFetcher {
	return &MultiFetcher{fetchers: make(map[string]orderbook.SnapshotFetcher)}
}

func (m *MultiFetcher) Register(exchange string, f orderbook.SnapshotFetcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchers[symbols.BaseExchange(symbols.NormalizeExchange(exchange))] = f
}

func (m *MultiFetcher) FetchSnapshot(ctx context.Context, exchange, symbol string) (orderbook.Snapshot, error) {
	m.mu.RLock()
	f, ok := m.fetchers[symbols.BaseExchange(symbols.NormalizeExchange(exchange))]
	m.mu.RUnlock()
	if !ok {
		return orderbook.Snapshot{}, fmt.Errorf("no snapshot source registered for %s", exchange)
	}
	return f.FetchSnapshot(ctx, exchange, symbol)
}

// NewFetcher returns the snapshot fetcher for exchange. restURL overrides the
// venue's default REST base when non-empty; limit caps the snapshot depth.
func NewFetcher(exchange, restURL string, limit int) (orderbook.SnapshotFetcher, error) {
	switch symbols.BaseExchange(symbols.NormalizeExchange(exchange)) {
	case "binance":
		return NewBinanceFetcher(restURL, limit), nil
	case "okx":
		return NewOkxFetcher(restURL, limit), nil
	case "bybit":
		return NewBybitFetcher(restURL, limit), nil
	case "kucoin":
		return NewKucoinFetcher(restURL), nil
	default:
		return nil, fmt.Errorf("no snapshot source for exchange %s", exchange)
	}
}
