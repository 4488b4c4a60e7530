package feed

import (
	"encoding/json"
	"strings"
	"time"

	"canonflow/internal/canonical"
)

// bybitTopics maps configured channel names to topic prefixes.
var bybitTopics = map[string]string{
	"orderbook":   "orderbook.50",
	"trade":       "publicTrade",
	"ticker":      "tickers",
	"liquidation": "liquidation",
}

// BybitAdapter speaks the Bybit v5 public linear websocket protocol.
type BybitAdapter struct{}

func NewBybitAdapter() *BybitAdapter { return &BybitAdapter{} }

func (a *BybitAdapter) Name() string { return "bybit" }

func (a *BybitAdapter) Subscriptions(symbols, channels []string) ([]any, error) {
	args := make([]string, 0, len(symbols)*len(channels))
	for _, ch := range channels {
		prefix, ok := bybitTopics[ch]
		if !ok {
			continue
		}
		for _, sym := range symbols {
			args = append(args, prefix+"."+sym)
		}
	}
	return []any{map[string]any{"op": "subscribe", "args": args}}, nil
}

func (a *BybitAdapter) PingInterval() time.Duration { return 20 * time.Second }
func (a *BybitAdapter) PingMessage() []byte         { return []byte(`{"op":"ping"}`) }

func (a *BybitAdapter) Handle(msg []byte, _ func([]byte)) []Classified {
	var envelope struct {
		Op    string          `json:"op"`
		Topic string          `json:"topic"`
		Type  string          `json:"type"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		return nil
	}
	if envelope.Op != "" || envelope.Topic == "" || len(envelope.Data) == 0 {
		return nil
	}

	parts := strings.Split(envelope.Topic, ".")
	symbol := parts[len(parts)-1]

	switch {
	case strings.HasPrefix(envelope.Topic, "orderbook."):
		dataType := canonical.DataTypeOrderBookDelta
		if envelope.Type == "snapshot" {
			dataType = canonical.DataTypeOrderBookSnapshot
		}
		// The book decoder reads type and data from the whole event.
		return []Classified{{DataType: dataType, Symbol: symbol, Payload: msg}}
	case strings.HasPrefix(envelope.Topic, "publicTrade."):
		return []Classified{{DataType: canonical.DataTypeTrade, Symbol: symbol, Payload: []byte(envelope.Data)}}
	case strings.HasPrefix(envelope.Topic, "tickers."):
		// One ticker push carries both funding and open-interest readings.
		return []Classified{
			{DataType: canonical.DataTypeFundingRate, Symbol: symbol, Payload: []byte(envelope.Data)},
			{DataType: canonical.DataTypeOpenInterest, Symbol: symbol, Payload: []byte(envelope.Data)},
		}
	case strings.HasPrefix(envelope.Topic, "liquidation."):
		return []Classified{{DataType: canonical.DataTypeLiquidation, Symbol: symbol, Payload: []byte(envelope.Data)}}
	default:
		return nil
	}
}
