package fetch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	futures "github.com/adshao/go-binance/v2/futures"

	"canonflow/internal/canonical"
	"canonflow/internal/orderbook"
)

// BinanceFetcher pulls futures depth snapshots through the official REST
// endpoint.
type BinanceFetcher struct {
	client *futures.Client
	limit  int
}

func NewBinanceFetcher(restURL string, limit int) *BinanceFetcher {
	client := futures.NewClient("", "")
	client.HTTPClient = newHTTPClient()
	if parsed, err := url.Parse(restURL); err == nil && parsed.Host != "" {
		client.SetApiEndpoint(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host))
	}
	if limit <= 0 {
		limit = 1000
	}
	return &BinanceFetcher{client: client, limit: limit}
}

func (f *BinanceFetcher) FetchSnapshot(ctx context.Context, _ string, symbol string) (orderbook.Snapshot, error) {
	res, err := f.client.NewDepthService().Symbol(symbol).Limit(f.limit).Do(ctx)
	if err != nil {
		return orderbook.Snapshot{}, fmt.Errorf("binance depth %s: %w", symbol, err)
	}

	snap := orderbook.Snapshot{
		LastUpdateID: res.LastUpdateID,
		EventTime:    time.UnixMilli(res.Time),
		Bids:         make([]canonical.PriceLevel, 0, len(res.Bids)),
		Asks:         make([]canonical.PriceLevel, 0, len(res.Asks)),
	}
	for _, b := range res.Bids {
		lvl, err := canonical.ParseLevel(b.Price, b.Quantity)
		if err != nil {
			continue
		}
		snap.Bids = append(snap.Bids, lvl)
	}
	for _, a := range res.Asks {
		lvl, err := canonical.ParseLevel(a.Price, a.Quantity)
		if err != nil {
			continue
		}
		snap.Asks = append(snap.Asks, lvl)
	}
	return snap, nil
}
