package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"canonflow/internal/canonical"
	"canonflow/internal/orderbook"
	"canonflow/internal/timestamp"
)

// getJSON performs one GET and decodes the response body into out.
func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// OkxFetcher pulls full books from the market/books endpoint.
type OkxFetcher struct {
	client  *http.Client
	baseURL string
	limit   int
}

func NewOkxFetcher(restURL string, limit int) *OkxFetcher {
	if restURL == "" {
		restURL = "https://www.okx.com"
	}
	if limit <= 0 || limit > 400 {
		limit = 400
	}
	return &OkxFetcher{client: newHTTPClient(), baseURL: restURL, limit: limit}
}

func (f *OkxFetcher) FetchSnapshot(ctx context.Context, _ string, symbol string) (orderbook.Snapshot, error) {
	u := fmt.Sprintf("%s/api/v5/market/books?instId=%s&sz=%d", f.baseURL, url.QueryEscape(symbol), f.limit)

	var resp struct {
		Code string `json:"code"`
		Data []struct {
			Asks  [][]string `json:"asks"`
			Bids  [][]string `json:"bids"`
			Ts    string     `json:"ts"`
			SeqID int64      `json:"seqId"`
		} `json:"data"`
	}
	if err := getJSON(ctx, f.client, u, &resp); err != nil {
		return orderbook.Snapshot{}, fmt.Errorf("okx books %s: %w", symbol, err)
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return orderbook.Snapshot{}, fmt.Errorf("okx books %s: code %s, %d rows", symbol, resp.Code, len(resp.Data))
	}

	row := resp.Data[0]
	bids, _ := canonical.ParseLevels(row.Bids)
	asks, _ := canonical.ParseLevels(row.Asks)
	snap := orderbook.Snapshot{
		Bids:         bids,
		Asks:         asks,
		LastUpdateID: row.SeqID,
	}
	if t, ok := timestamp.Parse(row.Ts); ok {
		snap.EventTime = t
	}
	return snap, nil
}

// BybitFetcher pulls linear-contract books from the v5 market endpoint.
type BybitFetcher struct {
	client  *http.Client
	baseURL string
	limit   int
}

func NewBybitFetcher(restURL string, limit int) *BybitFetcher {
	if restURL == "" {
		restURL = "https://api.bybit.com"
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	return &BybitFetcher{client: newHTTPClient(), baseURL: restURL, limit: limit}
}

func (f *BybitFetcher) FetchSnapshot(ctx context.Context, _ string, symbol string) (orderbook.Snapshot, error) {
	u := fmt.Sprintf("%s/v5/market/orderbook?category=linear&symbol=%s&limit=%d",
		f.baseURL, url.QueryEscape(symbol), f.limit)

	var resp struct {
		RetCode int `json:"retCode"`
		Result  struct {
			Symbol   string     `json:"s"`
			Bids     [][]string `json:"b"`
			Asks     [][]string `json:"a"`
			Ts       int64      `json:"ts"`
			UpdateID int64      `json:"u"`
		} `json:"result"`
	}
	if err := getJSON(ctx, f.client, u, &resp); err != nil {
		return orderbook.Snapshot{}, fmt.Errorf("bybit orderbook %s: %w", symbol, err)
	}
	if resp.RetCode != 0 {
		return orderbook.Snapshot{}, fmt.Errorf("bybit orderbook %s: retCode %d", symbol, resp.RetCode)
	}

	bids, _ := canonical.ParseLevels(resp.Result.Bids)
	asks, _ := canonical.ParseLevels(resp.Result.Asks)
	snap := orderbook.Snapshot{
		Bids:         bids,
		Asks:         asks,
		LastUpdateID: resp.Result.UpdateID,
	}
	if t, ok := timestamp.Parse(resp.Result.Ts); ok {
		snap.EventTime = t
	}
	return snap, nil
}

// KucoinFetcher pulls futures level2 snapshots.
type KucoinFetcher struct {
	client  *http.Client
	baseURL string
}

func NewKucoinFetcher(restURL string) *KucoinFetcher {
	if restURL == "" {
		restURL = "https://api-futures.kucoin.com"
	}
	return &KucoinFetcher{client: newHTTPClient(), baseURL: restURL}
}

func (f *KucoinFetcher) FetchSnapshot(ctx context.Context, _ string, symbol string) (orderbook.Snapshot, error) {
	u := fmt.Sprintf("%s/api/v1/level2/snapshot?symbol=%s", f.baseURL, url.QueryEscape(symbol))

	var resp struct {
		Code string `json:"code"`
		Data struct {
			Symbol   string          `json:"symbol"`
			Sequence int64           `json:"sequence"`
			Ts       int64           `json:"ts"`
			Bids     [][]json.Number `json:"bids"`
			Asks     [][]json.Number `json:"asks"`
		} `json:"data"`
	}
	if err := getJSON(ctx, f.client, u, &resp); err != nil {
		return orderbook.Snapshot{}, fmt.Errorf("kucoin level2 %s: %w", symbol, err)
	}
	if resp.Code != "200000" {
		return orderbook.Snapshot{}, fmt.Errorf("kucoin level2 %s: code %s", symbol, resp.Code)
	}

	snap := orderbook.Snapshot{
		Bids:         numberLevels(resp.Data.Bids),
		Asks:         numberLevels(resp.Data.Asks),
		LastUpdateID: resp.Data.Sequence,
	}
	if t, ok := timestamp.Parse(resp.Data.Ts); ok {
		snap.EventTime = t
	}
	return snap, nil
}

// numberLevels converts KuCoin's numeric level pairs, which arrive as JSON
// numbers rather than strings.
func numberLevels(rows [][]json.Number) []canonical.PriceLevel {
	levels := make([]canonical.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		lvl, err := canonical.ParseLevel(row[0].String(), row[1].String())
		if err != nil {
			continue
		}
		levels = append(levels, lvl)
	}
	return levels
}
