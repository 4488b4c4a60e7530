package models

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// DERIBIT ///////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// DeribitVolatilityIndex mirrors the deribit_volatility_index channel data.
type DeribitVolatilityIndex struct {
	Timestamp  int64   `json:"timestamp"`
	IndexName  string  `json:"index_name"`
	Volatility float64 `json:"volatility"`
}

// DeribitTrade mirrors one element of the trades channel data array.
type DeribitTrade struct {
	InstrumentName string  `json:"instrument_name"`
	TradeID        string  `json:"trade_id"`
	Price          float64 `json:"price"`
	Amount         float64 `json:"amount"`
	Direction      string  `json:"direction"`
	Timestamp      int64   `json:"timestamp"`
}
