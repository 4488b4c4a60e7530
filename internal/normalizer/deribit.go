package normalizer

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"canonflow/internal/canonical"
	"canonflow/models"
)

func registerDeribit(r *Registry) {
	r.Register("deribit", canonical.DataTypeTrade, normalizeDeribitTrade)
	r.Register("deribit", canonical.DataTypeVolatilityIndex, normalizeDeribitVolatilityIndex)
}

func normalizeDeribitTrade(raw *models.RawMessage) ([]canonical.Record, error) {
	var rows []models.DeribitTrade
	if err := json.Unmarshal(raw.Data, &rows); err != nil {
		var row models.DeribitTrade
		if err := json.Unmarshal(raw.Data, &row); err != nil {
			return nil, err
		}
		rows = []models.DeribitTrade{row}
	}

	out := make([]canonical.Record, 0, len(rows))
	for _, tr := range rows {
		price := decimal.NewFromFloat(tr.Price)
		qty := decimal.NewFromFloat(tr.Amount)
		out = append(out, &canonical.Trade{
			Meta:     meta(raw, tr.InstrumentName, tr.Timestamp),
			TradeID:  tr.TradeID,
			Side:     normalizeSide(tr.Direction),
			Price:    price,
			Quantity: qty,
			Notional: price.Mul(qty),
		})
	}
	if len(out) == 0 {
		return nil, errEmptyPayload
	}
	return out, nil
}

func normalizeDeribitVolatilityIndex(raw *models.RawMessage) ([]canonical.Record, error) {
	var vi models.DeribitVolatilityIndex
	if err := json.Unmarshal(raw.Data, &vi); err != nil {
		return nil, err
	}

	instrument := vi.IndexName
	if instrument == "" {
		instrument = raw.Symbol
	}
	// Index names look like "btc_usd"; the underlying is the base currency.
	underlying := strings.ToUpper(baseCurrency(strings.ReplaceAll(instrument, "_", "-")))

	return []canonical.Record{&canonical.VolatilityIndex{
		Meta:       meta(raw, instrument, vi.Timestamp),
		Value:      decimal.NewFromFloat(vi.Volatility),
		Underlying: underlying,
	}}, nil
}
