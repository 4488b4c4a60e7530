// Package orderbook maintains validated per-instrument book state from
// snapshots and sequenced incremental deltas.
package orderbook

import (
	"sort"
	"time"

	"canonflow/internal/canonical"
)

// SyncStatus is the consistency state of a book.
type SyncStatus string

const (
	StatusUnsynced SyncStatus = "UNSYNCED"
	StatusSyncing  SyncStatus = "SYNCING"
	StatusSynced   SyncStatus = "SYNCED"
)

// Snapshot is a full book state at a sequence id.
type Snapshot struct {
	Bids         []canonical.PriceLevel
	Asks         []canonical.PriceLevel
	LastUpdateID int64
	EventTime    time.Time
}

// Delta is an incremental update. PrevUpdateID chains to the engine's current
// lastUpdateId; exchanges that omit it set it to zero and provide the
// First/Last bounds instead. Checksum, when present, covers the top book
// levels after application.
type Delta struct {
	FirstUpdateID int64
	LastUpdateID  int64
	PrevUpdateID  int64
	Bids          []canonical.PriceLevel
	Asks          []canonical.PriceLevel
	Checksum      *int32
	EventTime     time.Time
}

// Book holds one instrument's price levels: bids descending, asks ascending.
type Book struct {
	bids []canonical.PriceLevel
	asks []canonical.PriceLevel
}

// Replace resets the book to the given snapshot levels. The inputs are copied
// and sorted; zero-quantity levels are dropped.
func (b *Book) Replace(bids, asks []canonical.PriceLevel) {
	b.bids = cloneNonEmpty(bids)
	b.asks = cloneNonEmpty(asks)
	sort.Slice(b.bids, func(i, j int) bool { return b.bids[i].Price.GreaterThan(b.bids[j].Price) })
	sort.Slice(b.asks, func(i, j int) bool { return b.asks[i].Price.LessThan(b.asks[j].Price) })
}

// Apply mutates the book with one delta's bid and ask sets, preserving sort
// order. Zero quantity removes the level, otherwise it is inserted or
// replaced.
func (b *Book) Apply(d Delta) {
	b.bids = applySide(b.bids, d.Bids, true)
	b.asks = applySide(b.asks, d.Asks, false)
}

// Top returns copies of at most n levels per side.
func (b *Book) Top(n int) ([]canonical.PriceLevel, []canonical.PriceLevel) {
	return copyLevels(b.bids, n), copyLevels(b.asks, n)
}

// Depth reports the retained level counts per side.
func (b *Book) Depth() (int, int) {
	return len(b.bids), len(b.asks)
}

// Clear drops all levels.
func (b *Book) Clear() {
	b.bids = nil
	b.asks = nil
}

func applySide(levels []canonical.PriceLevel, updates []canonical.PriceLevel, descending bool) []canonical.PriceLevel {
	for _, u := range updates {
		i := sort.Search(len(levels), func(i int) bool {
			if descending {
				return !levels[i].Price.GreaterThan(u.Price)
			}
			return !levels[i].Price.LessThan(u.Price)
		})
		found := i < len(levels) && levels[i].Price.Equal(u.Price)
		switch {
		case u.Quantity.IsZero() && found:
			levels = append(levels[:i], levels[i+1:]...)
		case u.Quantity.IsZero():
			// Removal of an unknown level is a no-op, not an error.
		case found:
			levels[i].Quantity = u.Quantity
		default:
			levels = append(levels, canonical.PriceLevel{})
			copy(levels[i+1:], levels[i:])
			levels[i] = u
		}
	}
	return levels
}

func cloneNonEmpty(levels []canonical.PriceLevel) []canonical.PriceLevel {
	out := make([]canonical.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		if !lvl.Quantity.IsZero() {
			out = append(out, lvl)
		}
	}
	return out
}

func copyLevels(levels []canonical.PriceLevel, n int) []canonical.PriceLevel {
	if n > len(levels) {
		n = len(levels)
	}
	out := make([]canonical.PriceLevel, n)
	copy(out, levels[:n])
	return out
}
