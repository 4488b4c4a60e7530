package orderbook

import (
	"hash/crc32"
	"strings"

	"canonflow/internal/canonical"
)

// Checksum computes the OKX-family book checksum: a CRC32 (IEEE) over the top
// depth levels, alternating bid and ask as "price:quantity" joined by colons.
// When one side runs out, the remaining levels of the other side follow.
func Checksum(bids, asks []canonical.PriceLevel, depth int) int32 {
	if len(bids) > depth {
		bids = bids[:depth]
	}
	if len(asks) > depth {
		asks = asks[:depth]
	}

	parts := make([]string, 0, 2*(len(bids)+len(asks)))
	for i := 0; i < len(bids) || i < len(asks); i++ {
		if i < len(bids) {
			parts = append(parts, bids[i].Price.String(), bids[i].Quantity.String())
		}
		if i < len(asks) {
			parts = append(parts, asks[i].Price.String(), asks[i].Quantity.String())
		}
	}
	return int32(crc32.ChecksumIEEE([]byte(strings.Join(parts, ":"))))
}
