package feed

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"canonflow/internal/canonical"
)

// DeribitAdapter speaks Deribit's JSON-RPC websocket protocol. It feeds the
// volatility index and raw trade channels.
type DeribitAdapter struct{}

func NewDeribitAdapter() *DeribitAdapter { return &DeribitAdapter{} }

func (a *DeribitAdapter) Name() string { return "deribit" }

func (a *DeribitAdapter) Subscriptions(symbols, channels []string) ([]any, error) {
	subChannels := make([]string, 0, len(symbols)*len(channels))
	for _, ch := range channels {
		for _, sym := range symbols {
			switch ch {
			case "volatility_index":
				subChannels = append(subChannels, "deribit_volatility_index."+strings.ToLower(sym))
			case "trade":
				subChannels = append(subChannels, "trades."+sym+".raw")
			}
		}
	}
	return []any{map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  "public/subscribe",
		"params":  map[string]any{"channels": subChannels},
	}}, nil
}

func (a *DeribitAdapter) PingInterval() time.Duration { return 30 * time.Second }

func (a *DeribitAdapter) PingMessage() []byte {
	msg, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  "public/test",
	})
	return msg
}

func (a *DeribitAdapter) Handle(msg []byte, _ func([]byte)) []Classified {
	var envelope struct {
		Method string `json:"method"`
		Params struct {
			Channel string          `json:"channel"`
			Data    json.RawMessage `json:"data"`
		} `json:"params"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		return nil
	}
	if envelope.Method != "subscription" || len(envelope.Params.Data) == 0 {
		return nil
	}

	ch := envelope.Params.Channel
	payload := []byte(envelope.Params.Data)
	switch {
	case strings.HasPrefix(ch, "deribit_volatility_index."):
		return []Classified{{
			DataType: canonical.DataTypeVolatilityIndex,
			Symbol:   strings.TrimPrefix(ch, "deribit_volatility_index."),
			Payload:  payload,
		}}
	case strings.HasPrefix(ch, "trades."):
		symbol := strings.TrimSuffix(strings.TrimPrefix(ch, "trades."), ".raw")
		return []Classified{{
			DataType: canonical.DataTypeTrade,
			Symbol:   symbol,
			Payload:  payload,
		}}
	default:
		return nil
	}
}
