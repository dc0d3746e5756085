package domain

// TokenInfo is the metadata the opportunity predicate and token-info queries
// run against.
type TokenInfo struct {
	Mint      string  `json:"mint"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Decimals  int     `json:"decimals"`
	Price     float64 `json:"price"`
	Liquidity float64 `json:"liquidity"`
	Verified  bool    `json:"verified"`
	Honeypot  bool    `json:"honeypot"`
}

type PriceQuote struct {
	Mint      string  `json:"mint"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Volume24h float64 `json:"volume_24h"`
	MarketCap float64 `json:"market_cap"`
	Timestamp int64   `json:"timestamp"`
	Source    string  `json:"source,omitempty"`
}

type MarketData struct {
	Prices         []PriceQuote `json:"prices"`
	TotalVolume24h float64      `json:"total_volume_24h"`
	TotalMarketCap float64      `json:"total_market_cap"`
	Timestamp      int64        `json:"timestamp"`
}

// PriorityFees are the current fee tiers in micro-lamports per compute unit.
type PriorityFees struct {
	Slow     uint64 `json:"slow"`
	Standard uint64 `json:"standard"`
	Fast     uint64 `json:"fast"`
	Instant  uint64 `json:"instant"`
}

// SwapRequest describes a single swap against the DEX aggregator. Amount is
// in SOL for buys and in tokens for sells; zero amount on a sell means the
// full position.
type SwapRequest struct {
	TokenMint        string
	Amount           float64
	Slippage         float64
	WalletAddress    string
	PrivateKey       string
	Sell             bool
	PriorityFee      uint64
	ComputeUnitLimit uint32
}

type SwapResult struct {
	Signature        string
	ExecutedPrice    float64
	ExecutedAmount   float64
	ComputeUnitsUsed uint64
	TotalCost        float64
}

// WalletTrade is one trade observed on a tracked wallet, as produced by the
// chain client's recent-activity feed.
type WalletTrade struct {
	Wallet    string    `json:"wallet"`
	TokenMint string    `json:"token_mint"`
	Amount    float64   `json:"amount"`
	Side      OrderSide `json:"side"`
	Signature string    `json:"signature"`
	Timestamp int64     `json:"timestamp"`
}
