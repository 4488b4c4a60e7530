package models

/////////////////////////////////////////////////////////////////////////////
////////////////////////////////// OKX //////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// OkxBookData mirrors one element of the books channel data array. The
// checksum is a CRC32 over the top levels; seqId/prevSeqId chain deltas.
type OkxBookData struct {
	Asks      [][]string `json:"asks"`
	Bids      [][]string `json:"bids"`
	Ts        string     `json:"ts"`
	Checksum  int32      `json:"checksum"`
	PrevSeqID int64      `json:"prevSeqId"`
	SeqID     int64      `json:"seqId"`
}

// OkxBookEvent wraps books channel pushes with their action type
// ("snapshot" or "update").
type OkxBookEvent struct {
	Action string        `json:"action"`
	Data   []OkxBookData `json:"data"`
}

// OkxTrade mirrors one element of the trades channel data array.
type OkxTrade struct {
	InstID  string `json:"instId"`
	TradeID string `json:"tradeId"`
	Price   string `json:"px"`
	Size    string `json:"sz"`
	Side    string `json:"side"`
	Ts      string `json:"ts"`
}

// OkxFundingRate mirrors one element of the funding-rate channel data array.
type OkxFundingRate struct {
	InstID          string `json:"instId"`
	FundingRate     string `json:"fundingRate"`
	NextFundingRate string `json:"nextFundingRate"`
	FundingTime     string `json:"fundingTime"`
	NextFundingTime string `json:"nextFundingTime"`
	Ts              string `json:"ts"`
}

// OkxOpenInterest mirrors one element of the open-interest channel data array.
type OkxOpenInterest struct {
	InstID   string `json:"instId"`
	InstType string `json:"instType"`
	OI       string `json:"oi"`
	OICcy    string `json:"oiCcy"`
	OIUsd    string `json:"oiUsd"`
	Ts       string `json:"ts"`
}

// OkxLiquidation mirrors one element of the liquidation-orders data array.
type OkxLiquidation struct {
	InstID  string `json:"instId"`
	Details []struct {
		Side   string `json:"side"`
		Size   string `json:"sz"`
		BkPx   string `json:"bkPx"`
		BkLoss string `json:"bkLoss"`
		Ts     string `json:"ts"`
	} `json:"details"`
}

// OkxLongShortRatio mirrors the long-short-account-ratio REST rows, which are
// [ts, ratio] string pairs.
type OkxLongShortRatio [][]string
