package models

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// KUCOIN ////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// KucoinDepthDelta mirrors a level2 delta from KuCoin futures websocket. The
// event carries a single sequence identifier; deltas chain contiguously.
type KucoinDepthDelta struct {
	Symbol    string     `json:"symbol"`
	Sequence  int64      `json:"sequence"`
	Timestamp int64      `json:"timestamp"`
	Bids      [][]string `json:"bids"`
	Asks      [][]string `json:"asks"`
}

// KucoinDepthSnapshot mirrors the full level2 REST snapshot.
type KucoinDepthSnapshot struct {
	Symbol   string     `json:"symbol"`
	Sequence int64      `json:"sequence"`
	Ts       int64      `json:"ts"`
	Bids     [][]string `json:"bids"`
	Asks     [][]string `json:"asks"`
}

// KucoinTrade mirrors a match execution event.
type KucoinTrade struct {
	Symbol   string `json:"symbol"`
	Sequence int64  `json:"sequence"`
	Side     string `json:"side"`
	Size     string `json:"size"`
	Price    string `json:"price"`
	TradeID  string `json:"tradeId"`
	Ts       int64  `json:"ts"`
}

// KucoinFundingRate mirrors the contract funding rate event.
type KucoinFundingRate struct {
	Symbol      string  `json:"symbol"`
	FundingRate float64 `json:"fundingRate"`
	Granularity int64   `json:"granularity"`
	Timestamp   int64   `json:"timestamp"`
}

// KucoinOpenInterest carries the openInterest field of the contract detail.
type KucoinOpenInterest struct {
	Symbol        string  `json:"symbol"`
	OpenInterest  string  `json:"openInterest"`
	TurnoverOf24h float64 `json:"turnoverOf24h"`
	Ts            int64   `json:"ts"`
}
