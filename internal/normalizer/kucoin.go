package normalizer

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"canonflow/internal/canonical"
	"canonflow/models"
)

func registerKucoin(r *Registry) {
	r.Register("kucoin", canonical.DataTypeTrade, normalizeKucoinTrade)
	r.Register("kucoin", canonical.DataTypeFundingRate, normalizeKucoinFundingRate)
	r.Register("kucoin", canonical.DataTypeOpenInterest, normalizeKucoinOpenInterest)
}

func normalizeKucoinTrade(raw *models.RawMessage) ([]canonical.Record, error) {
	var tr models.KucoinTrade
	if err := json.Unmarshal(raw.Data, &tr); err != nil {
		return nil, err
	}

	price, err := mustDecimal("price", tr.Price)
	if err != nil {
		return nil, err
	}
	qty, err := mustDecimal("size", tr.Size)
	if err != nil {
		return nil, err
	}

	return []canonical.Record{&canonical.Trade{
		Meta:     meta(raw, tr.Symbol, tr.Ts),
		TradeID:  tr.TradeID,
		Side:     normalizeSide(tr.Side),
		Price:    price,
		Quantity: qty,
		Notional: price.Mul(qty),
	}}, nil
}

func normalizeKucoinFundingRate(raw *models.RawMessage) ([]canonical.Record, error) {
	var fr models.KucoinFundingRate
	if err := json.Unmarshal(raw.Data, &fr); err != nil {
		return nil, err
	}

	return []canonical.Record{&canonical.FundingRate{
		Meta:            meta(raw, fr.Symbol, fr.Timestamp),
		Rate:            decimal.NewFromFloat(fr.FundingRate),
		NextFundingTime: fundingTime(nil, fr.Timestamp),
	}}, nil
}

func normalizeKucoinOpenInterest(raw *models.RawMessage) ([]canonical.Record, error) {
	var oi models.KucoinOpenInterest
	if err := json.Unmarshal(raw.Data, &oi); err != nil {
		return nil, err
	}

	value, err := mustDecimal("open interest", oi.OpenInterest)
	if err != nil {
		return nil, err
	}

	return []canonical.Record{&canonical.OpenInterest{
		Meta:     meta(raw, oi.Symbol, oi.Ts),
		Value:    value,
		Currency: "contracts",
	}}, nil
}
