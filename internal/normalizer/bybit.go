package normalizer

import (
	"encoding/json"

	"canonflow/internal/canonical"
	"canonflow/models"
)

func registerBybit(r *Registry) {
	r.Register("bybit", canonical.DataTypeTrade, normalizeBybitTrade)
	r.Register("bybit", canonical.DataTypeFundingRate, normalizeBybitFundingRate)
	r.Register("bybit", canonical.DataTypeOpenInterest, normalizeBybitOpenInterest)
	r.Register("bybit", canonical.DataTypeLiquidation, normalizeBybitLiquidation)
}

func normalizeBybitTrade(raw *models.RawMessage) ([]canonical.Record, error) {
	var rows []models.BybitTrade
	if err := json.Unmarshal(raw.Data, &rows); err != nil {
		var row models.BybitTrade
		if err := json.Unmarshal(raw.Data, &row); err != nil {
			return nil, err
		}
		rows = []models.BybitTrade{row}
	}

	out := make([]canonical.Record, 0, len(rows))
	for _, tr := range rows {
		price, err := mustDecimal("price", tr.Price)
		if err != nil {
			return nil, err
		}
		qty, err := mustDecimal("size", tr.Size)
		if err != nil {
			return nil, err
		}
		out = append(out, &canonical.Trade{
			Meta:     meta(raw, tr.Symbol, tr.TradeTime),
			TradeID:  tr.TradeID,
			Side:     normalizeSide(tr.Side),
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

// Bybit folds funding and open interest into its ticker stream; the two
// normalizers project different slices of the same payload.
func normalizeBybitFundingRate(raw *models.RawMessage) ([]canonical.Record, error) {
	var tk models.BybitTicker
	if err := json.Unmarshal(raw.Data, &tk); err != nil {
		return nil, err
	}

	rate, err := mustDecimal("funding rate", tk.FundingRate)
	if err != nil {
		return nil, err
	}

	return []canonical.Record{&canonical.FundingRate{
		Meta:            meta(raw, tk.Symbol, raw.ReceivedAt),
		Rate:            rate,
		MarkPrice:       optDecimal(tk.MarkPrice),
		IndexPrice:      optDecimal(tk.IndexPrice),
		NextFundingTime: fundingTime(tk.NextFundingTime, raw.ReceivedAt),
	}}, nil
}

func normalizeBybitOpenInterest(raw *models.RawMessage) ([]canonical.Record, error) {
	var tk models.BybitTicker
	if err := json.Unmarshal(raw.Data, &tk); err != nil {
		return nil, err
	}

	value, err := mustDecimal("open interest", tk.OpenInterest)
	if err != nil {
		return nil, err
	}

	m := meta(raw, tk.Symbol, raw.ReceivedAt)
	return []canonical.Record{&canonical.OpenInterest{
		Meta:     m,
		Value:    value,
		ValueUSD: optDecimal(tk.OpenInterestValue),
		Currency: baseCurrency(m.Symbol),
	}}, nil
}

func normalizeBybitLiquidation(raw *models.RawMessage) ([]canonical.Record, error) {
	var liq models.BybitLiquidation
	if err := json.Unmarshal(raw.Data, &liq); err != nil {
		return nil, err
	}

	price, err := mustDecimal("price", liq.Price)
	if err != nil {
		return nil, err
	}
	qty, err := mustDecimal("size", liq.Size)
	if err != nil {
		return nil, err
	}

	return []canonical.Record{&canonical.Liquidation{
		Meta:     meta(raw, liq.Symbol, liq.UpdatedTime),
		Side:     normalizeSide(liq.Side),
		Price:    price,
		Quantity: qty,
		Notional: price.Mul(qty),
	}}, nil
}
