package normalizer

import (
	"encoding/json"
	"fmt"

	"canonflow/internal/canonical"
	"canonflow/internal/orderbook"
	"canonflow/internal/symbols"
	"canonflow/internal/timestamp"
	"canonflow/logger"
	"canonflow/models"
)

// BookUpdate is the decoded form of an order-book payload, ready to feed the
// consistency engine. A payload yields a full snapshot, incremental deltas,
// or both (never in the same message in practice).
type BookUpdate struct {
	Instrument string
	Snapshot   *orderbook.Snapshot
	Deltas     []orderbook.Delta
}

// BookFunc decodes one exchange's order-book payloads. raw.DataType tells
// snapshots and deltas apart when the wire shape alone does not.
type BookFunc func(raw *models.RawMessage) (*BookUpdate, error)

func registerBooks(r *Registry) {
	r.RegisterBook("binance", decodeBinanceBook)
	r.RegisterBook("okx", decodeOkxBook)
	r.RegisterBook("bybit", decodeBybitBook)
	r.RegisterBook("kucoin", decodeKucoinBook)
}

// RegisterBook binds fn as the order-book decoder for exchange.
func (r *Registry) RegisterBook(exchange string, fn BookFunc) {
	r.bookFuncs[symbols.NormalizeExchange(exchange)] = fn
}

// DecodeBook resolves and applies the book decoder for raw.
func (r *Registry) DecodeBook(raw *models.RawMessage) (*BookUpdate, error) {
	ex := symbols.NormalizeExchange(raw.Exchange)
	fn, ok := r.bookFuncs[ex]
	if !ok {
		if fn, ok = r.bookFuncs[symbols.BaseExchange(ex)]; !ok {
			return nil, fmt.Errorf("no book decoder for exchange %s", raw.Exchange)
		}
	}
	return fn(raw)
}

// parseSide converts wire-format levels, logging how many were dropped as
// malformed rather than failing the whole payload.
func parseSide(raw *models.RawMessage, side string, rows [][]string) []canonical.PriceLevel {
	levels, dropped := canonical.ParseLevels(rows)
	if dropped > 0 {
		logger.GetLogger().WithComponent("book_decoder").WithFields(logger.Fields{
			"exchange": raw.Exchange,
			"symbol":   raw.Symbol,
			"side":     side,
			"dropped":  dropped,
		}).Warn("dropped malformed price levels")
	}
	return levels
}

func decodeBinanceBook(raw *models.RawMessage) (*BookUpdate, error) {
	if raw.DataType == canonical.DataTypeOrderBookSnapshot {
		var snap models.BinanceDepthSnapshot
		if err := json.Unmarshal(raw.Data, &snap); err != nil {
			return nil, err
		}
		s := &orderbook.Snapshot{
			Bids:         parseSide(raw, "bids", snap.Bids),
			Asks:         parseSide(raw, "asks", snap.Asks),
			LastUpdateID: snap.LastUpdateID,
		}
		if t, ok := timestamp.Parse(snap.EventTime); ok {
			s.EventTime = t
		}
		return &BookUpdate{Instrument: raw.Symbol, Snapshot: s}, nil
	}

	var ev models.BinanceDepthEvent
	if err := json.Unmarshal(raw.Data, &ev); err != nil {
		return nil, err
	}
	d := orderbook.Delta{
		FirstUpdateID: ev.FirstUpdateID,
		LastUpdateID:  ev.LastUpdateID,
		PrevUpdateID:  ev.PrevLastUpdateID,
		Bids:          parseSide(raw, "bids", ev.Bids),
		Asks:          parseSide(raw, "asks", ev.Asks),
	}
	if t, ok := timestamp.Parse(ev.EventTime); ok {
		d.EventTime = t
	}
	return &BookUpdate{Instrument: ev.Symbol, Deltas: []orderbook.Delta{d}}, nil
}

func decodeOkxBook(raw *models.RawMessage) (*BookUpdate, error) {
	var ev models.OkxBookEvent
	if err := json.Unmarshal(raw.Data, &ev); err != nil {
		return nil, err
	}
	rows := ev.Data
	if len(rows) == 0 {
		// Bare data arrays arrive without the action wrapper.
		if err := json.Unmarshal(raw.Data, &rows); err != nil || len(rows) == 0 {
			return nil, errEmptyPayload
		}
	}

	snapshot := ev.Action == "snapshot" ||
		(ev.Action == "" && raw.DataType == canonical.DataTypeOrderBookSnapshot)

	update := &BookUpdate{Instrument: raw.Symbol}
	for i := range rows {
		row := rows[i]
		eventTime, _ := timestamp.Parse(row.Ts)
		if snapshot && update.Snapshot == nil {
			update.Snapshot = &orderbook.Snapshot{
				Bids:         parseSide(raw, "bids", row.Bids),
				Asks:         parseSide(raw, "asks", row.Asks),
				LastUpdateID: row.SeqID,
				EventTime:    eventTime,
			}
			continue
		}
		d := orderbook.Delta{
			LastUpdateID: row.SeqID,
			PrevUpdateID: row.PrevSeqID,
			Bids:         parseSide(raw, "bids", row.Bids),
			Asks:         parseSide(raw, "asks", row.Asks),
			EventTime:    eventTime,
		}
		if row.Checksum != 0 {
			cs := row.Checksum
			d.Checksum = &cs
		}
		update.Deltas = append(update.Deltas, d)
	}
	return update, nil
}

func decodeBybitBook(raw *models.RawMessage) (*BookUpdate, error) {
	var ev models.BybitOrderbookEvent
	if err := json.Unmarshal(raw.Data, &ev); err != nil {
		return nil, err
	}
	eventTime, _ := timestamp.Parse(ev.Ts)

	// Bybit re-sends a snapshot with update id 1 after its own resets.
	if ev.Type == "snapshot" || ev.Data.UpdateID == 1 {
		return &BookUpdate{
			Instrument: ev.Data.Symbol,
			Snapshot: &orderbook.Snapshot{
				Bids:         parseSide(raw, "bids", ev.Data.Bids),
				Asks:         parseSide(raw, "asks", ev.Data.Asks),
				LastUpdateID: ev.Data.UpdateID,
				EventTime:    eventTime,
			},
		}, nil
	}

	return &BookUpdate{
		Instrument: ev.Data.Symbol,
		Deltas: []orderbook.Delta{{
			LastUpdateID: ev.Data.UpdateID,
			Bids:         parseSide(raw, "bids", ev.Data.Bids),
			Asks:         parseSide(raw, "asks", ev.Data.Asks),
			EventTime:    eventTime,
		}},
	}, nil
}

func decodeKucoinBook(raw *models.RawMessage) (*BookUpdate, error) {
	if raw.DataType == canonical.DataTypeOrderBookSnapshot {
		var snap models.KucoinDepthSnapshot
		if err := json.Unmarshal(raw.Data, &snap); err != nil {
			return nil, err
		}
		eventTime, _ := timestamp.Parse(snap.Ts)
		return &BookUpdate{
			Instrument: snap.Symbol,
			Snapshot: &orderbook.Snapshot{
				Bids:         parseSide(raw, "bids", snap.Bids),
				Asks:         parseSide(raw, "asks", snap.Asks),
				LastUpdateID: snap.Sequence,
				EventTime:    eventTime,
			},
		}, nil
	}

	var d models.KucoinDepthDelta
	if err := json.Unmarshal(raw.Data, &d); err != nil {
		return nil, err
	}
	eventTime, _ := timestamp.Parse(d.Timestamp)
	return &BookUpdate{
		Instrument: d.Symbol,
		Deltas: []orderbook.Delta{{
			LastUpdateID: d.Sequence,
			Bids:         parseSide(raw, "bids", d.Bids),
			Asks:         parseSide(raw, "asks", d.Asks),
			EventTime:    eventTime,
		}},
	}, nil
}
