package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOkxFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("instId") != "BTC-USDT-SWAP" {
			t.Errorf("instId = %s", r.URL.Query().Get("instId"))
		}
		w.Write([]byte(`{"code":"0","data":[{"asks":[["42001","2","0","1"]],"bids":[["42000","1","0","1"]],"ts":"1704085200000","seqId":77}]}`))
	}))
	defer srv.Close()

	f := NewOkxFetcher(srv.URL, 400)
	snap, err := f.FetchSnapshot(context.Background(), "okx", "BTC-USDT-SWAP")
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if snap.LastUpdateID != 77 || len(snap.Bids) != 1 || len(snap.Asks) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.EventTime.IsZero() {
		t.Error("event time not decoded")
	}
}

func TestOkxFetchSnapshotErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","data":[]}`))
	}))
	defer srv.Close()

	f := NewOkxFetcher(srv.URL, 400)
	if _, err := f.FetchSnapshot(context.Background(), "okx", "NOPE-USDT-SWAP"); err == nil {
		t.Fatal("expected error for non-zero code")
	}
}

func TestBybitFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"result":{"s":"BTCUSDT","b":[["42000","1"]],"a":[["42001","1"]],"ts":1704085200000,"u":9001}}`))
	}))
	defer srv.Close()

	f := NewBybitFetcher(srv.URL, 200)
	snap, err := f.FetchSnapshot(context.Background(), "bybit", "BTCUSDT")
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if snap.LastUpdateID != 9001 {
		t.Errorf("last update id = %d", snap.LastUpdateID)
	}
}

func TestKucoinFetchSnapshotNumericLevels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"200000","data":{"symbol":"XBTUSDTM","sequence":545,"ts":1704085200000,"bids":[[42000.5,10]],"asks":[[42001,5]]}}`))
	}))
	defer srv.Close()

	f := NewKucoinFetcher(srv.URL)
	snap, err := f.FetchSnapshot(context.Background(), "kucoin", "XBTUSDTM")
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if snap.LastUpdateID != 545 {
		t.Errorf("sequence = %d", snap.LastUpdateID)
	}
	if len(snap.Bids) != 1 || snap.Bids[0].Price.String() != "42000.5" {
		t.Errorf("bids = %+v", snap.Bids)
	}
}

func TestNewFetcherUnknownExchange(t *testing.T) {
	if _, err := NewFetcher("deribit", "", 0); err == nil {
		t.Fatal("expected error for venue without a snapshot source")
	}
}
