package canonical

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceLevel is one (price, quantity) pair of an order book side. Price is
// always positive; a zero quantity denotes level removal in a delta.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// ParseLevel builds a PriceLevel from raw price/quantity strings, enforcing
// the price > 0 and quantity >= 0 invariants.
func ParseLevel(price, quantity string) (PriceLevel, error) {
	p, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return PriceLevel{}, fmt.Errorf("invalid price %q: %w", price, err)
	}
	q, err := decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil {
		return PriceLevel{}, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	if p.Sign() <= 0 {
		return PriceLevel{}, fmt.Errorf("price %s must be positive", p)
	}
	if q.Sign() < 0 {
		return PriceLevel{}, fmt.Errorf("quantity %s must not be negative", q)
	}
	return PriceLevel{Price: p, Quantity: q}, nil
}

// ParseLevels converts raw [price, quantity] string pairs, skipping malformed
// entries and reporting how many were dropped.
func ParseLevels(raw [][]string) ([]PriceLevel, int) {
	levels := make([]PriceLevel, 0, len(raw))
	dropped := 0
	for _, pair := range raw {
		if len(pair) < 2 {
			dropped++
			continue
		}
		lvl, err := ParseLevel(pair[0], pair[1])
		if err != nil {
			dropped++
			continue
		}
		levels = append(levels, lvl)
	}
	return levels, dropped
}

// encodeLevels renders levels as a compact JSON array of [price, quantity]
// string pairs for the flat-map contract.
func encodeLevels(levels []PriceLevel) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, lvl := range levels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`["`)
		b.WriteString(lvl.Price.String())
		b.WriteString(`","`)
		b.WriteString(lvl.Quantity.String())
		b.WriteString(`"]`)
	}
	b.WriteByte(']')
	return b.String()
}
