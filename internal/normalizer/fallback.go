package normalizer

import (
	"canonflow/internal/canonical"
	"canonflow/logger"
	"canonflow/models"
)

// normalizeFallback handles payloads no dedicated normalizer claims. It never
// invents domain values; it emits a single record carrying only the mandatory
// meta fields plus the raw payload, so the message survives with provenance
// intact instead of being dropped silently.
func normalizeFallback(raw *models.RawMessage) ([]canonical.Record, error) {
	logger.IncrementFormatMiss()
	logger.GetLogger().WithComponent("normalizer").WithFields(logger.Fields{
		"exchange":  raw.Exchange,
		"data_type": raw.DataType,
		"symbol":    raw.Symbol,
	}).Debug("no normalizer registered, passing payload through")

	return []canonical.Record{&canonical.Passthrough{
		Meta:     meta(raw, raw.Symbol, raw.ReceivedAt),
		DataType: raw.DataType,
		Payload:  append([]byte(nil), raw.Data...),
	}}, nil
}
