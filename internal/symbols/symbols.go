package symbols

import (
	"strings"

	"canonflow/logger"
)

// MarketType identifies the product family a symbol trades under.
type MarketType string

const (
	MarketTypeSpot      MarketType = "spot"
	MarketTypePerpetual MarketType = "perpetual"
	MarketTypeFutures   MarketType = "futures"
)

// quoteCurrencies lists known quote currencies used to split concatenated
// BASEQUOTE identifiers. Ordered longest/most specific first so that e.g.
// FDUSD wins over USD.
var quoteCurrencies = []string{
	"FDUSD", "BUSD", "TUSD", "USDT", "USDC",
	"USD", "EUR", "GBP", "TRY", "BRL", "JPY", "KRW", "AUD",
	"BTC", "ETH", "BNB", "DAI",
}

// indexMarkers flag single-currency index identifiers (volatility indices and
// the like) that must bypass pair splitting entirely.
var indexMarkers = []string{"DVOL", "-INDEX"}

// exchangeAliases maps alternate exchange spellings to the canonical id.
var exchangeAliases = map[string]string{
	"binance-futures": "binance_derivatives",
	"binance_futures": "binance_derivatives",
	"binanceusdm":     "binance_derivatives",
	"okex":            "okx",
	"huobi":           "htx",
}

// symbolAliases resolves per-exchange multiplier quirks before splitting.
// Exchanges list thousand-multiplied contracts for low priced assets.
var symbolAliases = map[string]map[string]string{
	"binance": {
		"1000BONKUSDT": "BONKUSDT",
		"1000PEPEUSDT": "PEPEUSDT",
		"1000SHIBUSDT": "SHIBUSDT",
	},
	"bybit": {
		"1000BONKUSDT": "BONKUSDT",
		"1000PEPEUSDT": "PEPEUSDT",
		"SHIB1000USDT": "SHIBUSDT",
	},
}

// NormalizeExchange converts a raw exchange name to the canonical lower-case
// identifier, resolving alternate spellings.
func NormalizeExchange(raw string) string {
	ex := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := exchangeAliases[ex]; ok {
		return canonical
	}
	return ex
}

// BaseExchange projects a canonical exchange id onto its base exchange name,
// e.g. binance_derivatives -> binance. Used for display and aggregation.
func BaseExchange(id string) string {
	if i := strings.IndexByte(id, '_'); i > 0 {
		return id[:i]
	}
	return id
}

// NormalizeMarketType maps exchange-specific market type spellings onto the
// canonical set {spot, perpetual, futures}.
func NormalizeMarketType(raw string) MarketType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "spot", "margin", "cash":
		return MarketTypeSpot
	case "futures", "future", "delivery", "dated":
		return MarketTypeFutures
	default:
		// swap, perpetual, linear, inverse and anything unrecognized; this
		// collector is derivatives-first.
		return MarketTypePerpetual
	}
}

// NormalizeSymbol converts a raw exchange instrument identifier to the
// canonical BASE-QUOTE form. Perpetual contracts keep a normalized -SWAP
// suffix, index identifiers pass through unchanged, and inputs that cannot be
// confidently split are returned as-is with a format miss recorded.
func NormalizeSymbol(raw, exchange string) string {
	sym := strings.TrimSpace(raw)
	if sym == "" {
		return sym
	}
	base := BaseExchange(NormalizeExchange(exchange))
	token := strings.ToUpper(sym)

	if aliases, ok := symbolAliases[base]; ok {
		if mapped, ok := aliases[token]; ok {
			token = mapped
		}
	}

	for _, marker := range indexMarkers {
		if strings.HasSuffix(token, marker) {
			return sym
		}
	}

	suffix := ""
	switch {
	case strings.HasSuffix(token, "-SWAP"):
		suffix = "-SWAP"
		token = strings.TrimSuffix(token, "-SWAP")
	case strings.HasSuffix(token, "-PERPETUAL"):
		suffix = "-SWAP"
		token = strings.TrimSuffix(token, "-PERPETUAL")
	case strings.HasSuffix(token, "-PERP"):
		suffix = "-SWAP"
		token = strings.TrimSuffix(token, "-PERP")
	}

	if base == "kucoin" {
		// KuCoin futures append M to the quote currency (XBTUSDTM).
		if trimmed := strings.TrimSuffix(token, "M"); trimmed != token && hasKnownQuote(trimmed) {
			token = trimmed
		}
		if strings.HasPrefix(token, "XBT") {
			token = "BTC" + token[3:]
		}
	}

	if b, q, ok := splitPair(token); ok {
		return b + "-" + q + suffix
	}
	// Single-currency perpetuals (e.g. BTC-PERPETUAL) keep the canonical
	// suffix without pair splitting.
	if suffix != "" && !strings.ContainsAny(token, "-/") {
		return token + suffix
	}

	logger.IncrementFormatMiss()
	logger.GetLogger().WithComponent("symbols").WithFields(logger.Fields{
		"raw_symbol": raw,
		"exchange":   exchange,
	}).Debug("symbol format miss, passing through unchanged")
	return sym
}

// splitPair splits an upper-case instrument token into base and quote
// currencies. Tokens already in BASE-QUOTE form are accepted as-is; otherwise
// the known quote currency table is tried, longest match first.
func splitPair(token string) (string, string, bool) {
	if strings.ContainsRune(token, '-') {
		parts := strings.SplitN(token, "-", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" && !strings.Contains(parts[1], "-") {
			return parts[0], parts[1], true
		}
		return "", "", false
	}
	if strings.ContainsRune(token, '/') {
		parts := strings.SplitN(token, "/", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], true
		}
		return "", "", false
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(token, quote) && len(token) > len(quote) {
			return token[:len(token)-len(quote)], quote, true
		}
	}
	return "", "", false
}

func hasKnownQuote(token string) bool {
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(token, quote) && len(token) > len(quote) {
			return true
		}
	}
	return false
}
