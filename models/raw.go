package models

import (
	"time"

	"canonflow/internal/canonical"
)

// RawMessage is a container for a decoded payload fetched from an exchange,
// tagged with enough metadata to resolve a normalizer for it.
type RawMessage struct {
	Exchange   string
	MarketType string
	DataType   canonical.DataType
	Symbol     string
	Data       []byte
	ReceivedAt time.Time
}
