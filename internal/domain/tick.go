package domain

// MarketTick is a single market data observation for an instrument.
type MarketTick struct {
	ISIN      string  `json:"isin"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix millis
}
