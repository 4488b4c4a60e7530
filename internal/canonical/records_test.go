package canonical

import (
	"testing"

	"github.com/shopspring/decimal"

	"canonflow/internal/symbols"
)

func testMeta() Meta {
	return Meta{
		Exchange:     "binance_derivatives",
		MarketType:   symbols.MarketTypePerpetual,
		Symbol:       "BTC-USDT",
		InstrumentID: "BTCUSDT",
		Timestamp:    "2024-01-01T05:00:00.000",
		CollectedAt:  "2024-01-01T05:00:00.123",
	}
}

func TestSubjectDerivation(t *testing.T) {
	trade := &Trade{Meta: testMeta()}
	want := "trade.binance_derivatives.perpetual.btc_usdt"
	if got := Subject(trade); got != want {
		t.Errorf("Subject=%q want %q", got, want)
	}

	snap := &OrderBookSnapshot{Meta: testMeta()}
	want = "orderbook_snapshot.binance_derivatives.perpetual.btc_usdt"
	if got := Subject(snap); got != want {
		t.Errorf("Subject=%q want %q", got, want)
	}
}

func TestFlattenCommonFields(t *testing.T) {
	records := []Record{
		&Trade{Meta: testMeta()},
		&OrderBookSnapshot{Meta: testMeta()},
		&OrderBookDelta{Meta: testMeta()},
		&FundingRate{Meta: testMeta()},
		&OpenInterest{Meta: testMeta()},
		&Liquidation{Meta: testMeta()},
		&LSRTopPosition{Meta: testMeta()},
		&LSRAllAccount{Meta: testMeta()},
		&VolatilityIndex{Meta: testMeta()},
	}
	for _, r := range records {
		flat := r.Flatten()
		for _, key := range []string{"exchange", "market_type", "symbol", "instrument_id", "timestamp", "collected_at"} {
			if flat[key] == "" {
				t.Errorf("%s: missing common field %q", r.Type(), key)
			}
		}
	}
}

func TestFlattenOmitsAbsentOptionals(t *testing.T) {
	fr := &FundingRate{
		Meta:            testMeta(),
		Rate:            decimal.RequireFromString("0.0001"),
		NextFundingTime: "2024-01-01T08:00:00.000",
	}
	flat := fr.Flatten()
	if _, ok := flat["mark_price"]; ok {
		t.Errorf("absent mark_price should be omitted")
	}
	if flat["rate"] != "0.0001" {
		t.Errorf("unexpected rate %q", flat["rate"])
	}

	fr.MarkPrice = decimal.NewNullDecimal(decimal.Zero)
	flat = fr.Flatten()
	if flat["mark_price"] != "0" {
		t.Errorf("explicit zero mark_price should survive, got %q", flat["mark_price"])
	}
}

func TestFlattenLevels(t *testing.T) {
	bid, err := ParseLevel("100", "1")
	if err != nil {
		t.Fatalf("ParseLevel: %v", err)
	}
	ask, err := ParseLevel("101", "2.5")
	if err != nil {
		t.Fatalf("ParseLevel: %v", err)
	}
	snap := &OrderBookSnapshot{
		Meta:         testMeta(),
		LastUpdateID: 10,
		Bids:         []PriceLevel{bid},
		Asks:         []PriceLevel{ask},
	}
	flat := snap.Flatten()
	if flat["bids"] != `[["100","1"]]` {
		t.Errorf("unexpected bids %q", flat["bids"])
	}
	if flat["asks"] != `[["101","2.5"]]` {
		t.Errorf("unexpected asks %q", flat["asks"])
	}
	if flat["last_update_id"] != "10" {
		t.Errorf("unexpected last_update_id %q", flat["last_update_id"])
	}
}

func TestParseLevelInvariants(t *testing.T) {
	if _, err := ParseLevel("0", "1"); err == nil {
		t.Errorf("zero price should be rejected")
	}
	if _, err := ParseLevel("-1", "1"); err == nil {
		t.Errorf("negative price should be rejected")
	}
	if _, err := ParseLevel("1", "-1"); err == nil {
		t.Errorf("negative quantity should be rejected")
	}
	lvl, err := ParseLevel("100.5", "0")
	if err != nil {
		t.Fatalf("zero quantity is a valid removal marker: %v", err)
	}
	if !lvl.Quantity.IsZero() {
		t.Errorf("expected zero quantity")
	}
}

func TestParseLevelsSkipsMalformed(t *testing.T) {
	levels, dropped := ParseLevels([][]string{
		{"100", "1"},
		{"bad", "1"},
		{"101"},
		{"102", "2"},
	})
	if len(levels) != 2 || dropped != 2 {
		t.Errorf("got %d levels %d dropped, want 2/2", len(levels), dropped)
	}
}
