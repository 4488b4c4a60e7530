// Package canonical defines the unified record schema emitted for every data
// type, independent of the source exchange. Records are immutable once
// constructed and carry no references back to live engine state.
package canonical

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"canonflow/internal/symbols"
)

// DataType enumerates the canonical record families.
type DataType string

const (
	DataTypeTrade             DataType = "trade"
	DataTypeOrderBookSnapshot DataType = "orderbook_snapshot"
	DataTypeOrderBookDelta    DataType = "orderbook_delta"
	DataTypeFundingRate       DataType = "funding_rate"
	DataTypeOpenInterest      DataType = "open_interest"
	DataTypeLiquidation       DataType = "liquidation"
	DataTypeLSRTopPosition    DataType = "lsr_top_position"
	DataTypeLSRAllAccount     DataType = "lsr_all_account"
	DataTypeVolatilityIndex   DataType = "volatility_index"
)

// Meta carries the mandatory fields every canonical record exposes.
type Meta struct {
	Exchange     string             `json:"exchange"`
	MarketType   symbols.MarketType `json:"market_type"`
	Symbol       string             `json:"symbol"`
	InstrumentID string             `json:"instrument_id"`
	Timestamp    string             `json:"timestamp"`
	CollectedAt  string             `json:"collected_at"`
}

// Record is the publication contract: a typed, immutable record that can be
// rendered as a flat field map under a deterministic subject.
type Record interface {
	Type() DataType
	Common() Meta
	Flatten() map[string]string
}

// Subject derives the hierarchical publication subject for a record, so that
// downstream consumers can subscribe per data type, exchange, market type or
// symbol.
func Subject(r Record) string {
	m := r.Common()
	sym := strings.ToLower(strings.ReplaceAll(m.Symbol, "-", "_"))
	if sym == "" {
		sym = "unknown"
	}
	return fmt.Sprintf("%s.%s.%s.%s", r.Type(), m.Exchange, m.MarketType, sym)
}

// flatten writes the common meta fields into dst.
func (m Meta) flatten(dst map[string]string) {
	dst["exchange"] = m.Exchange
	dst["market_type"] = string(m.MarketType)
	dst["symbol"] = m.Symbol
	dst["instrument_id"] = m.InstrumentID
	dst["timestamp"] = m.Timestamp
	dst["collected_at"] = m.CollectedAt
}

// putOptional adds an optional decimal field only when it carries a value.
// Absent is distinct from zero: zero is a valid reading, absence is omitted.
func putOptional(dst map[string]string, key string, v decimal.NullDecimal) {
	if v.Valid {
		dst[key] = v.Decimal.String()
	}
}

// Trade is a single executed trade.
type Trade struct {
	Meta
	TradeID  string
	Side     string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Notional decimal.Decimal
}

func (t *Trade) Type() DataType { return DataTypeTrade }
func (t *Trade) Common() Meta   { return t.Meta }

func (t *Trade) Flatten() map[string]string {
	out := make(map[string]string, 12)
	t.Meta.flatten(out)
	out["trade_id"] = t.TradeID
	out["side"] = t.Side
	out["price"] = t.Price.String()
	out["quantity"] = t.Quantity.String()
	out["notional"] = t.Notional.String()
	return out
}

// OrderBookSnapshot is a consistent book state at a sequence id, depth-capped
// for publication.
type OrderBookSnapshot struct {
	Meta
	LastUpdateID int64
	Bids         []PriceLevel
	Asks         []PriceLevel
}

func (s *OrderBookSnapshot) Type() DataType { return DataTypeOrderBookSnapshot }
func (s *OrderBookSnapshot) Common() Meta   { return s.Meta }

func (s *OrderBookSnapshot) Flatten() map[string]string {
	out := make(map[string]string, 10)
	s.Meta.flatten(out)
	out["last_update_id"] = fmt.Sprintf("%d", s.LastUpdateID)
	out["bids"] = encodeLevels(s.Bids)
	out["asks"] = encodeLevels(s.Asks)
	return out
}

// OrderBookDelta is an incremental book update referencing its predecessor
// sequence id.
type OrderBookDelta struct {
	Meta
	FirstUpdateID int64
	LastUpdateID  int64
	PrevUpdateID  int64
	Bids          []PriceLevel
	Asks          []PriceLevel
}

func (d *OrderBookDelta) Type() DataType { return DataTypeOrderBookDelta }
func (d *OrderBookDelta) Common() Meta   { return d.Meta }

func (d *OrderBookDelta) Flatten() map[string]string {
	out := make(map[string]string, 12)
	d.Meta.flatten(out)
	out["first_update_id"] = fmt.Sprintf("%d", d.FirstUpdateID)
	out["last_update_id"] = fmt.Sprintf("%d", d.LastUpdateID)
	out["prev_update_id"] = fmt.Sprintf("%d", d.PrevUpdateID)
	out["bids"] = encodeLevels(d.Bids)
	out["asks"] = encodeLevels(d.Asks)
	return out
}

// FundingRate is a perpetual funding observation.
type FundingRate struct {
	Meta
	Rate            decimal.Decimal
	EstimatedRate   decimal.NullDecimal
	MarkPrice       decimal.NullDecimal
	IndexPrice      decimal.NullDecimal
	NextFundingTime string
}

func (f *FundingRate) Type() DataType { return DataTypeFundingRate }
func (f *FundingRate) Common() Meta   { return f.Meta }

func (f *FundingRate) Flatten() map[string]string {
	out := make(map[string]string, 12)
	f.Meta.flatten(out)
	out["rate"] = f.Rate.String()
	out["next_funding_time"] = f.NextFundingTime
	putOptional(out, "estimated_rate", f.EstimatedRate)
	putOptional(out, "mark_price", f.MarkPrice)
	putOptional(out, "index_price", f.IndexPrice)
	return out
}

// OpenInterest is the outstanding contract volume for an instrument.
type OpenInterest struct {
	Meta
	Value    decimal.Decimal
	ValueUSD decimal.NullDecimal
	Currency string
}

func (o *OpenInterest) Type() DataType { return DataTypeOpenInterest }
func (o *OpenInterest) Common() Meta   { return o.Meta }

func (o *OpenInterest) Flatten() map[string]string {
	out := make(map[string]string, 10)
	o.Meta.flatten(out)
	out["value"] = o.Value.String()
	out["currency"] = o.Currency
	putOptional(out, "value_usd", o.ValueUSD)
	return out
}

// Liquidation is a forced position close.
type Liquidation struct {
	Meta
	Side     string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Notional decimal.Decimal
}

func (l *Liquidation) Type() DataType { return DataTypeLiquidation }
func (l *Liquidation) Common() Meta   { return l.Meta }

func (l *Liquidation) Flatten() map[string]string {
	out := make(map[string]string, 10)
	l.Meta.flatten(out)
	out["side"] = l.Side
	out["price"] = l.Price.String()
	out["quantity"] = l.Quantity.String()
	out["notional"] = l.Notional.String()
	return out
}

// LSRTopPosition is the long/short ratio of top traders by position.
type LSRTopPosition struct {
	Meta
	LongShortRatio decimal.Decimal
	LongRatio      decimal.NullDecimal
	ShortRatio     decimal.NullDecimal
}

func (r *LSRTopPosition) Type() DataType { return DataTypeLSRTopPosition }
func (r *LSRTopPosition) Common() Meta   { return r.Meta }

func (r *LSRTopPosition) Flatten() map[string]string {
	out := make(map[string]string, 10)
	r.Meta.flatten(out)
	out["long_short_ratio"] = r.LongShortRatio.String()
	putOptional(out, "long_ratio", r.LongRatio)
	putOptional(out, "short_ratio", r.ShortRatio)
	return out
}

// LSRAllAccount is the long/short ratio across all accounts.
type LSRAllAccount struct {
	Meta
	LongShortRatio decimal.Decimal
	LongRatio      decimal.NullDecimal
	ShortRatio     decimal.NullDecimal
}

func (r *LSRAllAccount) Type() DataType { return DataTypeLSRAllAccount }
func (r *LSRAllAccount) Common() Meta   { return r.Meta }

func (r *LSRAllAccount) Flatten() map[string]string {
	out := make(map[string]string, 10)
	r.Meta.flatten(out)
	out["long_short_ratio"] = r.LongShortRatio.String()
	putOptional(out, "long_ratio", r.LongRatio)
	putOptional(out, "short_ratio", r.ShortRatio)
	return out
}

// Passthrough wraps a payload no dedicated normalizer claimed. The mandatory
// meta fields are still resolved; the original payload rides along verbatim.
type Passthrough struct {
	Meta
	DataType DataType
	Payload  []byte
}

func (p *Passthrough) Type() DataType { return p.DataType }
func (p *Passthrough) Common() Meta   { return p.Meta }

func (p *Passthrough) Flatten() map[string]string {
	out := make(map[string]string, 8)
	p.Meta.flatten(out)
	out["payload"] = string(p.Payload)
	return out
}

// VolatilityIndex is a volatility index reading for an underlying.
type VolatilityIndex struct {
	Meta
	Value      decimal.Decimal
	Underlying string
}

func (v *VolatilityIndex) Type() DataType { return DataTypeVolatilityIndex }
func (v *VolatilityIndex) Common() Meta   { return v.Meta }

func (v *VolatilityIndex) Flatten() map[string]string {
	out := make(map[string]string, 9)
	v.Meta.flatten(out)
	out["value"] = v.Value.String()
	out["underlying"] = v.Underlying
	return out
}
