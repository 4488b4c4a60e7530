package feed

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"canonflow/internal/canonical"
)

// kucoinTopics maps configured channel names to futures topic prefixes.
var kucoinTopics = map[string]string{
	"orderbook": "/contractMarket/level2",
	"trade":     "/contractMarket/execution",
	"funding":   "/contract/instrument",
}

// KucoinAdapter speaks the KuCoin futures websocket protocol. The caller is
// expected to hand NewFeed a ws URL that already carries a connect token.
type KucoinAdapter struct{}

func NewKucoinAdapter() *KucoinAdapter { return &KucoinAdapter{} }

func (a *KucoinAdapter) Name() string { return "kucoin" }

func (a *KucoinAdapter) Subscriptions(symbols, channels []string) ([]any, error) {
	subs := make([]any, 0, len(symbols)*len(channels))
	for _, ch := range channels {
		prefix, ok := kucoinTopics[ch]
		if !ok {
			continue
		}
		for _, sym := range symbols {
			subs = append(subs, map[string]any{
				"id":       uuid.NewString(),
				"type":     "subscribe",
				"topic":    prefix + ":" + sym,
				"response": true,
			})
		}
	}
	return subs, nil
}

func (a *KucoinAdapter) PingInterval() time.Duration { return 18 * time.Second }

func (a *KucoinAdapter) PingMessage() []byte {
	msg, _ := json.Marshal(map[string]string{"id": uuid.NewString(), "type": "ping"})
	return msg
}

func (a *KucoinAdapter) Handle(msg []byte, _ func([]byte)) []Classified {
	var envelope struct {
		Type    string          `json:"type"`
		Topic   string          `json:"topic"`
		Subject string          `json:"subject"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		return nil
	}
	if envelope.Type != "message" || len(envelope.Data) == 0 {
		return nil
	}

	symbol := ""
	if i := strings.LastIndex(envelope.Topic, ":"); i >= 0 {
		symbol = envelope.Topic[i+1:]
	}
	payload := []byte(envelope.Data)

	switch {
	case strings.HasPrefix(envelope.Topic, "/contractMarket/level2"):
		return []Classified{{DataType: canonical.DataTypeOrderBookDelta, Symbol: symbol, Payload: payload}}
	case strings.HasPrefix(envelope.Topic, "/contractMarket/execution"):
		return []Classified{{DataType: canonical.DataTypeTrade, Symbol: symbol, Payload: payload}}
	case strings.HasPrefix(envelope.Topic, "/contract/instrument"):
		switch envelope.Subject {
		case "funding.rate":
			return []Classified{{DataType: canonical.DataTypeFundingRate, Symbol: symbol, Payload: payload}}
		case "open.interest":
			return []Classified{{DataType: canonical.DataTypeOpenInterest, Symbol: symbol, Payload: payload}}
		}
		return nil
	default:
		return nil
	}
}
