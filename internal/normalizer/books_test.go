package normalizer

import (
	"testing"

	"canonflow/internal/canonical"
)

func TestDecodeBinanceDepthDelta(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("binance_derivatives", canonical.DataTypeOrderBookDelta, "BTCUSDT",
		`{"e":"depthUpdate","E":1704085200000,"s":"BTCUSDT","U":157,"u":160,"pu":149,
		  "b":[["42000.5","1.5"],["41999","0"]],"a":[["42001","2"]]}`)

	update, err := r.DecodeBook(raw)
	if err != nil {
		t.Fatalf("DecodeBook: %v", err)
	}
	if update.Snapshot != nil || len(update.Deltas) != 1 {
		t.Fatalf("expected one delta, got %+v", update)
	}

	d := update.Deltas[0]
	if d.FirstUpdateID != 157 || d.LastUpdateID != 160 || d.PrevUpdateID != 149 {
		t.Errorf("ids = %d/%d/%d", d.FirstUpdateID, d.LastUpdateID, d.PrevUpdateID)
	}
	// Zero-quantity levels survive decoding; removal is the engine's job.
	if len(d.Bids) != 2 || len(d.Asks) != 1 {
		t.Errorf("levels = %d bids, %d asks", len(d.Bids), len(d.Asks))
	}
	if update.Instrument != "BTCUSDT" {
		t.Errorf("instrument = %s", update.Instrument)
	}
}

func TestDecodeBinanceDepthSnapshot(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("binance", canonical.DataTypeOrderBookSnapshot, "BTCUSDT",
		`{"lastUpdateId":1027024,"E":1704085200000,"bids":[["42000","1"]],"asks":[["42001","1"]]}`)

	update, err := r.DecodeBook(raw)
	if err != nil {
		t.Fatalf("DecodeBook: %v", err)
	}
	if update.Snapshot == nil {
		t.Fatal("expected snapshot")
	}
	if update.Snapshot.LastUpdateID != 1027024 {
		t.Errorf("last update id = %d", update.Snapshot.LastUpdateID)
	}
	if update.Snapshot.EventTime.IsZero() {
		t.Error("event time not decoded")
	}
}

func TestDecodeOkxBookCarriesChecksum(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("okx", canonical.DataTypeOrderBookDelta, "BTC-USDT-SWAP",
		`{"action":"update","data":[{"asks":[["42001","2","0","1"]],"bids":[["42000","1","0","1"]],
		  "ts":"1704085200000","checksum":-855196043,"prevSeqId":10,"seqId":11}]}`)

	update, err := r.DecodeBook(raw)
	if err != nil {
		t.Fatalf("DecodeBook: %v", err)
	}
	if len(update.Deltas) != 1 {
		t.Fatalf("expected one delta, got %+v", update)
	}
	d := update.Deltas[0]
	if d.PrevUpdateID != 10 || d.LastUpdateID != 11 {
		t.Errorf("ids = %d/%d", d.PrevUpdateID, d.LastUpdateID)
	}
	if d.Checksum == nil || *d.Checksum != -855196043 {
		t.Errorf("checksum = %v", d.Checksum)
	}
}

func TestDecodeOkxBookSnapshotAction(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("okx", canonical.DataTypeOrderBookSnapshot, "BTC-USDT-SWAP",
		`{"action":"snapshot","data":[{"asks":[["42001","2"]],"bids":[["42000","1"]],"ts":"1704085200000","seqId":7}]}`)

	update, err := r.DecodeBook(raw)
	if err != nil {
		t.Fatalf("DecodeBook: %v", err)
	}
	if update.Snapshot == nil || update.Snapshot.LastUpdateID != 7 {
		t.Fatalf("snapshot not decoded: %+v", update)
	}
}

func TestDecodeBybitBookSnapshotOnReset(t *testing.T) {
	r := NewRegistry()

	// An explicit snapshot and the u=1 reset resend both install a full book.
	for _, payload := range []string{
		`{"topic":"orderbook.50.BTCUSDT","type":"snapshot","ts":1704085200000,
		  "data":{"s":"BTCUSDT","b":[["42000","1"]],"a":[["42001","1"]],"u":5000,"seq":9}}`,
		`{"topic":"orderbook.50.BTCUSDT","type":"delta","ts":1704085200000,
		  "data":{"s":"BTCUSDT","b":[["42000","1"]],"a":[["42001","1"]],"u":1,"seq":9}}`,
	} {
		update, err := r.DecodeBook(rawMsg("bybit", canonical.DataTypeOrderBookDelta, "BTCUSDT", payload))
		if err != nil {
			t.Fatalf("DecodeBook: %v", err)
		}
		if update.Snapshot == nil {
			t.Errorf("expected snapshot for payload %s", payload)
		}
	}
}

func TestDecodeKucoinSequenceChain(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("kucoin", canonical.DataTypeOrderBookDelta, "XBTUSDTM",
		`{"symbol":"XBTUSDTM","sequence":545,"timestamp":1704085200000,
		  "bids":[["42000","10"]],"asks":[]}`)

	update, err := r.DecodeBook(raw)
	if err != nil {
		t.Fatalf("DecodeBook: %v", err)
	}
	if len(update.Deltas) != 1 {
		t.Fatalf("expected one delta")
	}
	d := update.Deltas[0]
	if d.LastUpdateID != 545 || d.PrevUpdateID != 0 || d.FirstUpdateID != 0 {
		t.Errorf("kucoin deltas chain by bare sequence, got %+v", d)
	}
}

func TestDecodeBookUnknownExchange(t *testing.T) {
	r := NewRegistry()
	if _, err := r.DecodeBook(rawMsg("deribit", canonical.DataTypeOrderBookDelta, "BTC-PERPETUAL", `{}`)); err == nil {
		t.Fatal("expected error for exchange without a book decoder")
	}
}
