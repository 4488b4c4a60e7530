package normalizer

import (
	"testing"
	"time"

	"canonflow/internal/canonical"
	"canonflow/models"
)

func rawMsg(exchange string, dt canonical.DataType, symbol, data string) *models.RawMessage {
	return &models.RawMessage{
		Exchange:   exchange,
		MarketType: "perpetual",
		DataType:   dt,
		Symbol:     symbol,
		Data:       []byte(data),
		ReceivedAt: time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC),
	}
}

func TestLookupResolvesAliasesAndDerivativeVenues(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		exchange string
		dataType canonical.DataType
		want     bool
	}{
		{"binance", canonical.DataTypeTrade, true},
		{"binance-futures", canonical.DataTypeTrade, true},
		{"binance_derivatives", canonical.DataTypeTrade, true},
		{"okex", canonical.DataTypeFundingRate, true},
		{"deribit", canonical.DataTypeVolatilityIndex, true},
		{"binance", canonical.DataTypeVolatilityIndex, false},
		{"unknown-venue", canonical.DataTypeTrade, false},
	}
	for _, tt := range tests {
		if _, ok := r.Lookup(tt.exchange, tt.dataType); ok != tt.want {
			t.Errorf("Lookup(%s, %s) dedicated = %v, want %v", tt.exchange, tt.dataType, ok, tt.want)
		}
	}
}

func TestFallbackKeepsMandatoryFields(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("binance", canonical.DataTypeVolatilityIndex, "BTCUSDT", `{"whatever":1}`)

	records, err := r.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	flat := records[0].Flatten()
	for _, field := range []string{"exchange", "market_type", "symbol", "instrument_id", "timestamp", "collected_at"} {
		if flat[field] == "" {
			t.Errorf("mandatory field %s missing from fallback record", field)
		}
	}
	if flat["payload"] != `{"whatever":1}` {
		t.Errorf("payload not preserved: %s", flat["payload"])
	}
}

func TestNormalizeBinanceTrade(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("binance_derivatives", canonical.DataTypeTrade, "BTCUSDT",
		`{"e":"aggTrade","E":1704085200000,"s":"BTCUSDT","a":26129,"p":"42000.5","q":"0.25","T":1704085200000,"m":true}`)

	records, err := r.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	tr, ok := records[0].(*canonical.Trade)
	if !ok {
		t.Fatalf("got %T, want Trade", records[0])
	}

	if tr.Side != "sell" {
		t.Errorf("maker-buyer trade side = %s, want sell", tr.Side)
	}
	if tr.TradeID != "26129" {
		t.Errorf("trade id = %s", tr.TradeID)
	}
	if tr.Notional.String() != "10500.125" {
		t.Errorf("notional = %s, want 10500.125", tr.Notional.String())
	}
	if tr.Symbol != "BTC-USDT" || tr.InstrumentID != "BTCUSDT" {
		t.Errorf("identity: symbol=%s instrument=%s", tr.Symbol, tr.InstrumentID)
	}
	if tr.Timestamp != "2024-01-01T05:00:00.000" {
		t.Errorf("timestamp = %s", tr.Timestamp)
	}
}

func TestNormalizeBinanceFundingDerivesNextBoundary(t *testing.T) {
	r := NewRegistry()
	// NextFundingTime absent: the payload observed at 05:00 UTC settles at the
	// next 8-hour boundary, 08:00.
	raw := rawMsg("binance", canonical.DataTypeFundingRate, "BTCUSDT",
		`{"e":"markPriceUpdate","E":1704085200000,"s":"BTCUSDT","p":"42001.1","i":"42000.9","r":"0.0001"}`)

	records, err := r.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	fr := records[0].(*canonical.FundingRate)

	if fr.Rate.String() != "0.0001" {
		t.Errorf("rate = %s", fr.Rate.String())
	}
	if fr.NextFundingTime != "2024-01-01T08:00:00.000" {
		t.Errorf("next funding time = %s, want 2024-01-01T08:00:00.000", fr.NextFundingTime)
	}
	if !fr.MarkPrice.Valid || fr.MarkPrice.Decimal.String() != "42001.1" {
		t.Errorf("mark price = %+v", fr.MarkPrice)
	}
}

func TestNormalizeBinanceFundingKeepsProvidedTime(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("binance", canonical.DataTypeFundingRate, "BTCUSDT",
		`{"e":"markPriceUpdate","E":1704085200000,"s":"BTCUSDT","r":"0.0001","T":1704096000000}`)

	records, err := r.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	fr := records[0].(*canonical.FundingRate)
	if fr.NextFundingTime != "2024-01-01T08:00:00.000" {
		t.Errorf("next funding time = %s", fr.NextFundingTime)
	}
}

func TestNextFundingBoundary(t *testing.T) {
	tests := []struct {
		at   string
		want string
	}{
		{"2024-01-01T05:00:00Z", "2024-01-01T08:00:00Z"},
		{"2024-01-01T08:00:00Z", "2024-01-01T16:00:00Z"},
		{"2024-01-01T23:59:59Z", "2024-01-02T00:00:00Z"},
		{"2024-01-01T00:00:00Z", "2024-01-01T08:00:00Z"},
	}
	for _, tt := range tests {
		at, _ := time.Parse(time.RFC3339, tt.at)
		want, _ := time.Parse(time.RFC3339, tt.want)
		if got := nextFundingBoundary(at); !got.Equal(want) {
			t.Errorf("nextFundingBoundary(%s) = %s, want %s", tt.at, got, want)
		}
	}
}

func TestNormalizeOkxLiquidationFansOut(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("okx", canonical.DataTypeLiquidation, "BTC-USDT-SWAP",
		`[{"instId":"BTC-USDT-SWAP","details":[
			{"side":"buy","sz":"10","bkPx":"42000","ts":"1704085200000"},
			{"side":"sell","sz":"5","bkPx":"41900","ts":"1704085201000"}]}]`)

	records, err := r.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	second := records[1].(*canonical.Liquidation)
	if second.Side != "sell" || second.Notional.String() != "209500" {
		t.Errorf("second liquidation: side=%s notional=%s", second.Side, second.Notional.String())
	}
}

func TestNormalizeOkxFundingRate(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("okx", canonical.DataTypeFundingRate, "BTC-USDT-SWAP",
		`[{"instId":"BTC-USDT-SWAP","fundingRate":"0.0002","nextFundingRate":"0.00025","fundingTime":"1704096000000","nextFundingTime":"1704124800000","ts":"1704085200000"}]`)

	records, err := r.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	fr := records[0].(*canonical.FundingRate)
	if fr.NextFundingTime != "2024-01-01T16:00:00.000" {
		t.Errorf("next funding time = %s", fr.NextFundingTime)
	}
	if !fr.EstimatedRate.Valid || fr.EstimatedRate.Decimal.String() != "0.00025" {
		t.Errorf("estimated rate = %+v", fr.EstimatedRate)
	}
	if fr.Symbol != "BTC-USDT-SWAP" {
		t.Errorf("symbol = %s", fr.Symbol)
	}
}

func TestNormalizeBybitTickerProjections(t *testing.T) {
	r := NewRegistry()
	payload := `{"symbol":"BTCUSDT","fundingRate":"0.0001","nextFundingTime":"1704096000000","markPrice":"42001","indexPrice":"42000","openInterest":"5000.5","openInterestValue":"210000000"}`

	funding, err := r.Normalize(rawMsg("bybit", canonical.DataTypeFundingRate, "BTCUSDT", payload))
	if err != nil {
		t.Fatalf("funding: %v", err)
	}
	fr := funding[0].(*canonical.FundingRate)
	if fr.Rate.String() != "0.0001" || fr.NextFundingTime != "2024-01-01T08:00:00.000" {
		t.Errorf("funding projection: rate=%s next=%s", fr.Rate.String(), fr.NextFundingTime)
	}

	oiRecs, err := r.Normalize(rawMsg("bybit", canonical.DataTypeOpenInterest, "BTCUSDT", payload))
	if err != nil {
		t.Fatalf("open interest: %v", err)
	}
	oi := oiRecs[0].(*canonical.OpenInterest)
	if oi.Value.String() != "5000.5" || oi.Currency != "BTC" {
		t.Errorf("oi projection: value=%s currency=%s", oi.Value.String(), oi.Currency)
	}
	if !oi.ValueUSD.Valid {
		t.Errorf("oi usd value should be present")
	}
}

func TestNormalizeDeribitVolatilityIndex(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("deribit", canonical.DataTypeVolatilityIndex, "btc_usd",
		`{"timestamp":1704085200000,"index_name":"btc_usd","volatility":52.34}`)

	records, err := r.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	vi := records[0].(*canonical.VolatilityIndex)
	if vi.Underlying != "BTC" {
		t.Errorf("underlying = %s", vi.Underlying)
	}
	if vi.Value.String() != "52.34" {
		t.Errorf("value = %s", vi.Value.String())
	}
}

func TestNormalizeRejectsMalformedMandatoryField(t *testing.T) {
	r := NewRegistry()
	raw := rawMsg("binance", canonical.DataTypeTrade, "BTCUSDT",
		`{"s":"BTCUSDT","p":"not-a-number","q":"1","T":1704085200000}`)

	if _, err := r.Normalize(raw); err == nil {
		t.Fatal("expected error for malformed price")
	}
}
