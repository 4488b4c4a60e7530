package feed

import (
	"encoding/json"
	"testing"

	"canonflow/internal/canonical"
)

func TestOkxHandleClassifiesChannels(t *testing.T) {
	a := NewOkxAdapter()

	tests := []struct {
		name   string
		msg    string
		want   canonical.DataType
		symbol string
		count  int
	}{
		{
			name:   "book update",
			msg:    `{"arg":{"channel":"books-l2-tbt","instId":"BTC-USDT-SWAP"},"action":"update","data":[{"seqId":2,"prevSeqId":1,"bids":[],"asks":[]}]}`,
			want:   canonical.DataTypeOrderBookDelta,
			symbol: "BTC-USDT-SWAP",
			count:  1,
		},
		{
			name:   "book snapshot action",
			msg:    `{"arg":{"channel":"books-l2-tbt","instId":"BTC-USDT-SWAP"},"action":"snapshot","data":[{"seqId":1,"bids":[],"asks":[]}]}`,
			want:   canonical.DataTypeOrderBookSnapshot,
			symbol: "BTC-USDT-SWAP",
			count:  1,
		},
		{
			name:   "trades",
			msg:    `{"arg":{"channel":"trades","instId":"BTC-USDT-SWAP"},"data":[{"instId":"BTC-USDT-SWAP","px":"42000","sz":"1","side":"buy","ts":"1"}]}`,
			want:   canonical.DataTypeTrade,
			symbol: "BTC-USDT-SWAP",
			count:  1,
		},
		{
			name:  "subscription ack dropped",
			msg:   `{"event":"subscribe","arg":{"channel":"trades","instId":"BTC-USDT-SWAP"}}`,
			count: 0,
		},
		{
			name:  "pong dropped",
			msg:   `pong`,
			count: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := a.Handle([]byte(tt.msg), nil)
			if len(events) != tt.count {
				t.Fatalf("got %d events, want %d", len(events), tt.count)
			}
			if tt.count == 0 {
				return
			}
			if events[0].DataType != tt.want || events[0].Symbol != tt.symbol {
				t.Errorf("classified as (%s, %s), want (%s, %s)",
					events[0].DataType, events[0].Symbol, tt.want, tt.symbol)
			}
		})
	}
}

func TestBinanceHandleCombinedStream(t *testing.T) {
	a := NewBinanceAdapter()

	msg := `{"stream":"btcusdt@depth@100ms","data":{"e":"depthUpdate","s":"BTCUSDT","U":1,"u":2,"pu":0,"b":[],"a":[]}}`
	events := a.Handle([]byte(msg), nil)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].DataType != canonical.DataTypeOrderBookDelta || events[0].Symbol != "BTCUSDT" {
		t.Errorf("classified as (%s, %s)", events[0].DataType, events[0].Symbol)
	}

	// The payload is the inner event, ready for the book decoder.
	var ev struct {
		Event string `json:"e"`
	}
	if err := json.Unmarshal(events[0].Payload, &ev); err != nil || ev.Event != "depthUpdate" {
		t.Errorf("payload not unwrapped: %s", events[0].Payload)
	}
}

func TestBinanceHandleForceOrderSymbol(t *testing.T) {
	a := NewBinanceAdapter()
	msg := `{"e":"forceOrder","E":1,"o":{"s":"BTCUSDT","S":"SELL","q":"1","p":"42000","ap":"42000","T":1}}`

	events := a.Handle([]byte(msg), nil)
	if len(events) != 1 || events[0].Symbol != "BTCUSDT" {
		t.Fatalf("force order symbol not extracted: %+v", events)
	}
	if events[0].DataType != canonical.DataTypeLiquidation {
		t.Errorf("data type = %s", events[0].DataType)
	}
}

func TestBybitHandleTickerFansOut(t *testing.T) {
	a := NewBybitAdapter()
	msg := `{"topic":"tickers.BTCUSDT","type":"snapshot","ts":1,"data":{"symbol":"BTCUSDT","fundingRate":"0.0001","openInterest":"5000"}}`

	events := a.Handle([]byte(msg), nil)
	if len(events) != 2 {
		t.Fatalf("ticker should fan out to 2 events, got %d", len(events))
	}
	if events[0].DataType != canonical.DataTypeFundingRate || events[1].DataType != canonical.DataTypeOpenInterest {
		t.Errorf("fan-out types: %s, %s", events[0].DataType, events[1].DataType)
	}
}

func TestBybitHandleOrderbookSnapshot(t *testing.T) {
	a := NewBybitAdapter()
	msg := `{"topic":"orderbook.50.BTCUSDT","type":"snapshot","ts":1,"data":{"s":"BTCUSDT","b":[],"a":[],"u":1,"seq":1}}`

	events := a.Handle([]byte(msg), nil)
	if len(events) != 1 || events[0].DataType != canonical.DataTypeOrderBookSnapshot {
		t.Fatalf("snapshot not classified: %+v", events)
	}
	if events[0].Symbol != "BTCUSDT" {
		t.Errorf("symbol = %s", events[0].Symbol)
	}
}

func TestKucoinHandleInstrumentSubjects(t *testing.T) {
	a := NewKucoinAdapter()

	funding := `{"type":"message","topic":"/contract/instrument:XBTUSDTM","subject":"funding.rate","data":{"symbol":"XBTUSDTM","fundingRate":0.0001,"timestamp":1}}`
	events := a.Handle([]byte(funding), nil)
	if len(events) != 1 || events[0].DataType != canonical.DataTypeFundingRate {
		t.Fatalf("funding subject not classified: %+v", events)
	}
	if events[0].Symbol != "XBTUSDTM" {
		t.Errorf("symbol = %s", events[0].Symbol)
	}

	welcome := `{"type":"welcome","id":"x"}`
	if events := a.Handle([]byte(welcome), nil); len(events) != 0 {
		t.Errorf("welcome frame should be dropped")
	}
}

func TestDeribitHandleVolatilityIndex(t *testing.T) {
	a := NewDeribitAdapter()
	msg := `{"jsonrpc":"2.0","method":"subscription","params":{"channel":"deribit_volatility_index.btc_usd","data":{"timestamp":1,"index_name":"btc_usd","volatility":52.1}}}`

	events := a.Handle([]byte(msg), nil)
	if len(events) != 1 || events[0].DataType != canonical.DataTypeVolatilityIndex {
		t.Fatalf("volatility index not classified: %+v", events)
	}
	if events[0].Symbol != "btc_usd" {
		t.Errorf("symbol = %s", events[0].Symbol)
	}
}

func TestSubscriptionsShapes(t *testing.T) {
	okxSubs, err := NewOkxAdapter().Subscriptions([]string{"BTC-USDT-SWAP"}, []string{"books-l2-tbt", "trades"})
	if err != nil || len(okxSubs) != 1 {
		t.Fatalf("okx subs: %v, %v", okxSubs, err)
	}

	bybitSubs, err := NewBybitAdapter().Subscriptions([]string{"BTCUSDT"}, []string{"orderbook", "ticker"})
	if err != nil || len(bybitSubs) != 1 {
		t.Fatalf("bybit subs: %v, %v", bybitSubs, err)
	}

	kucoinSubs, err := NewKucoinAdapter().Subscriptions([]string{"XBTUSDTM"}, []string{"orderbook", "trade"})
	if err != nil || len(kucoinSubs) != 2 {
		t.Fatalf("kucoin sends one subscribe per topic, got %d", len(kucoinSubs))
	}
}
