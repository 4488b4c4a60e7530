package normalizer

import (
	"encoding/json"

	"canonflow/internal/canonical"
	"canonflow/models"
)

func registerOkx(r *Registry) {
	r.Register("okx", canonical.DataTypeTrade, normalizeOkxTrade)
	r.Register("okx", canonical.DataTypeFundingRate, normalizeOkxFundingRate)
	r.Register("okx", canonical.DataTypeOpenInterest, normalizeOkxOpenInterest)
	r.Register("okx", canonical.DataTypeLiquidation, normalizeOkxLiquidation)
	r.Register("okx", canonical.DataTypeLSRAllAccount, normalizeOkxLSRAllAccount)
}

// okxRows decodes OKX payloads, which arrive either as the channel's data
// array or as a single unwrapped element.
func okxRows[T any](data []byte) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(data, &rows); err == nil {
		return rows, nil
	}
	var row T
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	return []T{row}, nil
}

func normalizeOkxTrade(raw *models.RawMessage) ([]canonical.Record, error) {
	rows, err := okxRows[models.OkxTrade](raw.Data)
	if err != nil {
		return nil, err
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
			Meta:     meta(raw, tr.InstID, tr.Ts),
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

func normalizeOkxFundingRate(raw *models.RawMessage) ([]canonical.Record, error) {
	rows, err := okxRows[models.OkxFundingRate](raw.Data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errEmptyPayload
	}

	fr := rows[len(rows)-1]
	rate, err := mustDecimal("funding rate", fr.FundingRate)
	if err != nil {
		return nil, err
	}

	ts := fr.Ts
	if ts == "" {
		ts = fr.FundingTime
	}
	return []canonical.Record{&canonical.FundingRate{
		Meta:            meta(raw, fr.InstID, ts),
		Rate:            rate,
		EstimatedRate:   optDecimal(fr.NextFundingRate),
		NextFundingTime: fundingTime(fr.NextFundingTime, ts),
	}}, nil
}

func normalizeOkxOpenInterest(raw *models.RawMessage) ([]canonical.Record, error) {
	rows, err := okxRows[models.OkxOpenInterest](raw.Data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errEmptyPayload
	}

	oi := rows[len(rows)-1]
	value, err := mustDecimal("open interest", oi.OICcy)
	if err != nil {
		// Contract-count fallback when the currency figure is absent.
		if value, err = mustDecimal("open interest", oi.OI); err != nil {
			return nil, err
		}
		return []canonical.Record{&canonical.OpenInterest{
			Meta:     meta(raw, oi.InstID, oi.Ts),
			Value:    value,
			ValueUSD: optDecimal(oi.OIUsd),
			Currency: "contracts",
		}}, nil
	}

	return []canonical.Record{&canonical.OpenInterest{
		Meta:     meta(raw, oi.InstID, oi.Ts),
		Value:    value,
		ValueUSD: optDecimal(oi.OIUsd),
		Currency: baseCurrency(oi.InstID),
	}}, nil
}

func normalizeOkxLiquidation(raw *models.RawMessage) ([]canonical.Record, error) {
	rows, err := okxRows[models.OkxLiquidation](raw.Data)
	if err != nil {
		return nil, err
	}

	var out []canonical.Record
	for _, liq := range rows {
		for _, d := range liq.Details {
			price, err := mustDecimal("price", d.BkPx)
			if err != nil {
				return nil, err
			}
			qty, err := mustDecimal("size", d.Size)
			if err != nil {
				return nil, err
			}
			out = append(out, &canonical.Liquidation{
				Meta:     meta(raw, liq.InstID, d.Ts),
				Side:     normalizeSide(d.Side),
				Price:    price,
				Quantity: qty,
				Notional: price.Mul(qty),
			})
		}
	}
	if len(out) == 0 {
		return nil, errEmptyPayload
	}
	return out, nil
}

func normalizeOkxLSRAllAccount(raw *models.RawMessage) ([]canonical.Record, error) {
	var rows models.OkxLongShortRatio
	if err := json.Unmarshal(raw.Data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errEmptyPayload
	}

	// Rows are [ts, ratio] pairs, newest first.
	row := rows[0]
	if len(row) < 2 {
		return nil, errEmptyPayload
	}
	ratio, err := mustDecimal("long/short ratio", row[1])
	if err != nil {
		return nil, err
	}

	return []canonical.Record{&canonical.LSRAllAccount{
		Meta:           meta(raw, raw.Symbol, row[0]),
		LongShortRatio: ratio,
	}}, nil
}
