// Package normalizer converts exchange-native payloads into canonical
// records. Dispatch is a registry keyed by (exchange, data type), populated
// once at startup, so adding an exchange means registering functions rather
// than growing switch statements.
package normalizer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"canonflow/internal/canonical"
	"canonflow/internal/symbols"
	"canonflow/internal/timestamp"
	"canonflow/models"
)

// Func converts one raw payload into canonical records. A single payload may
// carry several events (trade batches, liquidation detail arrays), hence the
// slice.
type Func func(raw *models.RawMessage) ([]canonical.Record, error)

type key struct {
	exchange string
	dataType canonical.DataType
}

// Registry resolves the normalizer for a raw message. The zero value is
// empty; use NewRegistry for one preloaded with every built-in exchange.
type Registry struct {
	funcs     map[key]Func
	bookFuncs map[string]BookFunc
	fallback  Func
}

// NewRegistry returns a registry with all built-in normalizers registered.
func NewRegistry() *Registry {
	r := &Registry{
		funcs:     make(map[key]Func),
		bookFuncs: make(map[string]BookFunc),
		fallback:  normalizeFallback,
	}
	registerBinance(r)
	registerOkx(r)
	registerBybit(r)
	registerKucoin(r)
	registerDeribit(r)
	registerBooks(r)
	return r
}

// Register binds fn to (exchange, dataType). The exchange id is canonicalized
// first so registrations and lookups agree on aliases.
func (r *Registry) Register(exchange string, dataType canonical.DataType, fn Func) {
	r.funcs[key{symbols.NormalizeExchange(exchange), dataType}] = fn
}

// Lookup returns the normalizer for (exchange, dataType) and whether a
// dedicated one exists. When none does, the fallback is returned so callers
// always get a usable Func.
func (r *Registry) Lookup(exchange string, dataType canonical.DataType) (Func, bool) {
	ex := symbols.NormalizeExchange(exchange)
	if fn, ok := r.funcs[key{ex, dataType}]; ok {
		return fn, true
	}
	// Derivative venues share plumbing with their base exchange.
	if base := symbols.BaseExchange(ex); base != ex {
		if fn, ok := r.funcs[key{base, dataType}]; ok {
			return fn, true
		}
	}
	return r.fallback, false
}

// Normalize resolves and applies the normalizer for raw.
func (r *Registry) Normalize(raw *models.RawMessage) ([]canonical.Record, error) {
	fn, _ := r.Lookup(raw.Exchange, raw.DataType)
	return fn(raw)
}

// meta assembles the mandatory canonical fields shared by every record.
// instrument is the exchange-native id; ts is whatever timestamp shape the
// payload carried.
func meta(raw *models.RawMessage, instrument string, ts any) canonical.Meta {
	exchange := symbols.NormalizeExchange(raw.Exchange)
	if instrument == "" {
		instrument = raw.Symbol
	}
	collected := raw.ReceivedAt
	if collected.IsZero() {
		collected = time.Now()
	}
	return canonical.Meta{
		Exchange:     exchange,
		MarketType:   symbols.NormalizeMarketType(raw.MarketType),
		Symbol:       symbols.NormalizeSymbol(instrument, exchange),
		InstrumentID: instrument,
		Timestamp:    timestamp.Canonicalize(ts),
		CollectedAt:  timestamp.Format(collected),
	}
}

var errEmptyPayload = errors.New("payload carries no rows")

// normalizeSide lowercases exchange side markers into "buy"/"sell".
func normalizeSide(s string) string {
	return strings.ToLower(s)
}

// baseCurrency extracts the base leg of a delimited instrument id, e.g.
// "BTC-USDT-SWAP" yields "BTC". Undelimited ids come back unchanged.
func baseCurrency(instrument string) string {
	if i := strings.IndexAny(instrument, "-/"); i > 0 {
		return instrument[:i]
	}
	return instrument
}

// mustDecimal parses a mandatory numeric field.
func mustDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return d, nil
}

// optDecimal parses an optional numeric field; empty or malformed input
// yields an absent value rather than an error.
func optDecimal(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// fundingInterval is the settlement cadence assumed when an exchange omits
// the next funding time.
const fundingInterval = 8 * time.Hour

// nextFundingBoundary returns the first 8-hour UTC boundary (00:00, 08:00,
// 16:00) strictly after t.
func nextFundingBoundary(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for b := day; ; b = b.Add(fundingInterval) {
		if b.After(t) {
			return b
		}
	}
}

// fundingTime canonicalizes an exchange-provided next funding time, deriving
// the next 8-hour boundary from eventTime when the payload omitted it.
func fundingTime(provided any, eventTime any) string {
	if t, ok := timestamp.Parse(provided); ok {
		return timestamp.Format(t)
	}
	base, ok := timestamp.Parse(eventTime)
	if !ok {
		base = time.Now()
	}
	return timestamp.Format(nextFundingBoundary(base))
}
