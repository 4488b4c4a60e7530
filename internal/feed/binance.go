package feed

import (
	"encoding/json"
	"strings"
	"time"

	"canonflow/internal/canonical"
)

// BinanceAdapter consumes the futures combined-stream endpoint
// (/stream?streams=...). Streams are chosen at subscribe time through the
// SUBSCRIBE method.
type BinanceAdapter struct {
	id int64
}

func NewBinanceAdapter() *BinanceAdapter { return &BinanceAdapter{} }

func (a *BinanceAdapter) Name() string { return "binance_derivatives" }

// binanceStreams maps configured channel names to stream name suffixes.
var binanceStreams = map[string]string{
	"trade":       "aggTrade",
	"orderbook":   "depth@100ms",
	"funding":     "markPrice",
	"liquidation": "forceOrder",
}

func (a *BinanceAdapter) Subscriptions(symbols, channels []string) ([]any, error) {
	params := make([]string, 0, len(symbols)*len(channels))
	for _, ch := range channels {
		suffix, ok := binanceStreams[ch]
		if !ok {
			continue
		}
		for _, sym := range symbols {
			params = append(params, strings.ToLower(sym)+"@"+suffix)
		}
	}
	a.id++
	return []any{map[string]any{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     a.id,
	}}, nil
}

// Binance answers protocol-level pings itself; no application keepalive.
func (a *BinanceAdapter) PingInterval() time.Duration { return 0 }
func (a *BinanceAdapter) PingMessage() []byte         { return nil }

func (a *BinanceAdapter) Handle(msg []byte, _ func([]byte)) []Classified {
	var envelope struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		return nil
	}

	payload := []byte(envelope.Data)
	event := msg
	if payload == nil {
		// Raw (non-combined) endpoint: the event is the whole message.
		payload = msg
	} else {
		event = payload
	}

	var head struct {
		Event  string `json:"e"`
		Symbol string `json:"s"`
	}
	if err := json.Unmarshal(event, &head); err != nil {
		return nil
	}

	var dataType canonical.DataType
	switch head.Event {
	case "aggTrade", "trade":
		dataType = canonical.DataTypeTrade
	case "depthUpdate":
		dataType = canonical.DataTypeOrderBookDelta
	case "markPriceUpdate":
		dataType = canonical.DataTypeFundingRate
	case "forceOrder":
		dataType = canonical.DataTypeLiquidation
	default:
		return nil
	}

	symbol := head.Symbol
	if symbol == "" && head.Event == "forceOrder" {
		var fo struct {
			Order struct {
				Symbol string `json:"s"`
			} `json:"o"`
		}
		if json.Unmarshal(event, &fo) == nil {
			symbol = fo.Order.Symbol
		}
	}

	return []Classified{{
		DataType: dataType,
		Symbol:   symbol,
		Payload:  payload,
	}}
}
