package models

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// BINANCE ///////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// BinanceTradeEvent mirrors Binance's aggTrade/trade websocket event.
type BinanceTradeEvent struct {
	Event       string `json:"e"`
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	TradeID     int64  `json:"a"`
	Price       string `json:"p"`
	Quantity    string `json:"q"`
	TradeTime   int64  `json:"T"`
	IsBuyerMake bool   `json:"m"`
}

// BinanceDepthSnapshot mirrors the REST depth endpoint response.
type BinanceDepthSnapshot struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	EventTime    int64      `json:"E"`
	TxTime       int64      `json:"T"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// BinanceDepthEvent mirrors Binance's depth update websocket event.
type BinanceDepthEvent struct {
	Event            string     `json:"e"`
	EventTime        int64      `json:"E"`
	TxTime           int64      `json:"T"`
	Symbol           string     `json:"s"`
	FirstUpdateID    int64      `json:"U"`
	LastUpdateID     int64      `json:"u"`
	PrevLastUpdateID int64      `json:"pu"`
	Bids             [][]string `json:"b"`
	Asks             [][]string `json:"a"`
}

// BinanceMarkPriceEvent mirrors the markPrice (premium index) stream.
type BinanceMarkPriceEvent struct {
	Event                string `json:"e"`
	EventTime            int64  `json:"E"`
	Symbol               string `json:"s"`
	MarkPrice            string `json:"p"`
	IndexPrice           string `json:"i"`
	EstimatedSettlePrice string `json:"P"`
	FundingRate          string `json:"r"`
	NextFundingTime      int64  `json:"T"`
}

// BinanceOpenInterest mirrors the futures openInterest REST response.
type BinanceOpenInterest struct {
	OpenInterest string `json:"openInterest"`
	Symbol       string `json:"symbol"`
	Time         int64  `json:"time"`
}

// BinanceForceOrder mirrors the forceOrder (liquidation) stream.
type BinanceForceOrder struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Order     struct {
		Symbol       string `json:"s"`
		Side         string `json:"S"`
		OrderType    string `json:"o"`
		Quantity     string `json:"q"`
		Price        string `json:"p"`
		AveragePrice string `json:"ap"`
		Status       string `json:"X"`
		TradeTime    int64  `json:"T"`
	} `json:"o"`
}

// BinanceLongShortRatio mirrors both the topLongShortPositionRatio and the
// globalLongShortAccountRatio REST responses, which share one shape.
type BinanceLongShortRatio struct {
	Symbol         string `json:"symbol"`
	LongShortRatio string `json:"longShortRatio"`
	LongAccount    string `json:"longAccount"`
	ShortAccount   string `json:"shortAccount"`
	Timestamp      int64  `json:"timestamp"`
}
