package normalizer

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"canonflow/internal/canonical"
	"canonflow/models"
)

func registerBinance(r *Registry) {
	r.Register("binance", canonical.DataTypeTrade, normalizeBinanceTrade)
	r.Register("binance", canonical.DataTypeFundingRate, normalizeBinanceFundingRate)
	r.Register("binance", canonical.DataTypeOpenInterest, normalizeBinanceOpenInterest)
	r.Register("binance", canonical.DataTypeLiquidation, normalizeBinanceLiquidation)
	r.Register("binance", canonical.DataTypeLSRTopPosition, normalizeBinanceLSRTopPosition)
	r.Register("binance", canonical.DataTypeLSRAllAccount, normalizeBinanceLSRAllAccount)
}

func normalizeBinanceTrade(raw *models.RawMessage) ([]canonical.Record, error) {
	var ev models.BinanceTradeEvent
	if err := json.Unmarshal(raw.Data, &ev); err != nil {
		return nil, err
	}

	price, err := mustDecimal("price", ev.Price)
	if err != nil {
		return nil, err
	}
	qty, err := mustDecimal("quantity", ev.Quantity)
	if err != nil {
		return nil, err
	}

	side := "buy"
	if ev.IsBuyerMake {
		// The buyer was the maker, so the aggressor sold.
		side = "sell"
	}

	return []canonical.Record{&canonical.Trade{
		Meta:     meta(raw, ev.Symbol, ev.TradeTime),
		TradeID:  strconv.FormatInt(ev.TradeID, 10),
		Side:     side,
		Price:    price,
		Quantity: qty,
		Notional: price.Mul(qty),
	}}, nil
}

func normalizeBinanceFundingRate(raw *models.RawMessage) ([]canonical.Record, error) {
	var ev models.BinanceMarkPriceEvent
	if err := json.Unmarshal(raw.Data, &ev); err != nil {
		return nil, err
	}

	rate, err := mustDecimal("funding rate", ev.FundingRate)
	if err != nil {
		return nil, err
	}

	return []canonical.Record{&canonical.FundingRate{
		Meta:            meta(raw, ev.Symbol, ev.EventTime),
		Rate:            rate,
		MarkPrice:       optDecimal(ev.MarkPrice),
		IndexPrice:      optDecimal(ev.IndexPrice),
		NextFundingTime: fundingTime(ev.NextFundingTime, ev.EventTime),
	}}, nil
}

func normalizeBinanceOpenInterest(raw *models.RawMessage) ([]canonical.Record, error) {
	var oi models.BinanceOpenInterest
	if err := json.Unmarshal(raw.Data, &oi); err != nil {
		return nil, err
	}

	value, err := mustDecimal("open interest", oi.OpenInterest)
	if err != nil {
		return nil, err
	}

	m := meta(raw, oi.Symbol, oi.Time)
	return []canonical.Record{&canonical.OpenInterest{
		Meta:     m,
		Value:    value,
		Currency: "contracts",
	}}, nil
}

func normalizeBinanceLiquidation(raw *models.RawMessage) ([]canonical.Record, error) {
	var ev models.BinanceForceOrder
	if err := json.Unmarshal(raw.Data, &ev); err != nil {
		return nil, err
	}

	price, err := mustDecimal("price", ev.Order.AveragePrice)
	if err != nil {
		// Some statuses carry only the order price.
		if price, err = mustDecimal("price", ev.Order.Price); err != nil {
			return nil, err
		}
	}
	qty, err := mustDecimal("quantity", ev.Order.Quantity)
	if err != nil {
		return nil, err
	}

	return []canonical.Record{&canonical.Liquidation{
		Meta:     meta(raw, ev.Order.Symbol, ev.Order.TradeTime),
		Side:     normalizeSide(ev.Order.Side),
		Price:    price,
		Quantity: qty,
		Notional: price.Mul(qty),
	}}, nil
}

func normalizeBinanceLSRTopPosition(raw *models.RawMessage) ([]canonical.Record, error) {
	ratio, long, short, m, err := binanceLSR(raw)
	if err != nil {
		return nil, err
	}
	return []canonical.Record{&canonical.LSRTopPosition{
		Meta:           m,
		LongShortRatio: ratio,
		LongRatio:      long,
		ShortRatio:     short,
	}}, nil
}

func normalizeBinanceLSRAllAccount(raw *models.RawMessage) ([]canonical.Record, error) {
	ratio, long, short, m, err := binanceLSR(raw)
	if err != nil {
		return nil, err
	}
	return []canonical.Record{&canonical.LSRAllAccount{
		Meta:           m,
		LongShortRatio: ratio,
		LongRatio:      long,
		ShortRatio:     short,
	}}, nil
}

// binanceLSR decodes the shared shape of the top-position and all-account
// long/short ratio endpoints.
func binanceLSR(raw *models.RawMessage) (decimal.Decimal, decimal.NullDecimal, decimal.NullDecimal, canonical.Meta, error) {
	var rows []models.BinanceLongShortRatio
	if err := json.Unmarshal(raw.Data, &rows); err != nil {
		// Single-row payloads arrive unwrapped.
		var row models.BinanceLongShortRatio
		if err := json.Unmarshal(raw.Data, &row); err != nil {
			return decimal.Decimal{}, decimal.NullDecimal{}, decimal.NullDecimal{}, canonical.Meta{}, err
		}
		rows = []models.BinanceLongShortRatio{row}
	}
	if len(rows) == 0 {
		return decimal.Decimal{}, decimal.NullDecimal{}, decimal.NullDecimal{}, canonical.Meta{}, errEmptyPayload
	}

	// The endpoints return newest-last; take the most recent observation.
	row := rows[len(rows)-1]
	ratio, err := mustDecimal("long/short ratio", row.LongShortRatio)
	if err != nil {
		return decimal.Decimal{}, decimal.NullDecimal{}, decimal.NullDecimal{}, canonical.Meta{}, err
	}
	return ratio, optDecimal(row.LongAccount), optDecimal(row.ShortAccount), meta(raw, row.Symbol, row.Timestamp), nil
}
