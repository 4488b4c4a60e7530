package feed

import (
	"encoding/json"
	"time"

	"canonflow/internal/canonical"
)

// okxChannels maps OKX channel names to canonical data types.
var okxChannels = map[string]canonical.DataType{
	"books":              canonical.DataTypeOrderBookDelta,
	"books-l2-tbt":       canonical.DataTypeOrderBookDelta,
	"trades":             canonical.DataTypeTrade,
	"funding-rate":       canonical.DataTypeFundingRate,
	"open-interest":      canonical.DataTypeOpenInterest,
	"liquidation-orders": canonical.DataTypeLiquidation,
}

// OkxAdapter speaks the OKX v5 public websocket protocol.
type OkxAdapter struct{}

func NewOkxAdapter() *OkxAdapter { return &OkxAdapter{} }

func (a *OkxAdapter) Name() string { return "okx" }

func (a *OkxAdapter) Subscriptions(symbols, channels []string) ([]any, error) {
	args := make([]map[string]string, 0, len(symbols)*len(channels))
	for _, ch := range channels {
		for _, sym := range symbols {
			arg := map[string]string{"channel": ch, "instId": sym}
			if ch == "liquidation-orders" {
				// Liquidations subscribe per instrument type, not per symbol.
				arg = map[string]string{"channel": ch, "instType": "SWAP"}
			}
			args = append(args, arg)
		}
	}
	return []any{map[string]any{"op": "subscribe", "args": args}}, nil
}

func (a *OkxAdapter) PingInterval() time.Duration { return 20 * time.Second }
func (a *OkxAdapter) PingMessage() []byte         { return []byte("ping") }

func (a *OkxAdapter) Handle(msg []byte, reply func([]byte)) []Classified {
	if string(msg) == "pong" {
		return nil
	}

	var envelope struct {
		Event string `json:"event"`
		Arg   struct {
			Channel string `json:"channel"`
			InstID  string `json:"instId"`
		} `json:"arg"`
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		return nil
	}
	if envelope.Event != "" || len(envelope.Data) == 0 {
		return nil
	}

	dataType, ok := okxChannels[envelope.Arg.Channel]
	if !ok {
		return nil
	}
	payload := []byte(envelope.Data)
	if dataType == canonical.DataTypeOrderBookDelta {
		if envelope.Action == "snapshot" {
			dataType = canonical.DataTypeOrderBookSnapshot
		}
		// The book decoder consumes the whole event to see the action field.
		payload = msg
	}

	return []Classified{{
		DataType: dataType,
		Symbol:   envelope.Arg.InstID,
		Payload:  payload,
	}}
}
