package domain

import (
	"context"
	"time"
)

// ChainClient is the capability surface the trading core consumes from the
// Solana RPC / DEX-aggregator layer.
type ChainClient interface {
	GetNativeBalance(ctx context.Context, wallet string) (*Balance, error)
	GetTokenBalances(ctx context.Context, wallet string) ([]TokenBalance, error)
	GetTokenInfo(ctx context.Context, mint string) (*TokenInfo, error)
	GetTokenPrice(ctx context.Context, mint string) (float64, error)
	GetPriorityFees(ctx context.Context) (*PriorityFees, error)
	ExecuteSwap(ctx context.Context, req *SwapRequest) (*SwapResult, error)
	// CancelPendingSwap attempts chain-side cancellation of an order that has
	// not settled yet.
	CancelPendingSwap(ctx context.Context, order *Order) error
	// GetRecentTrades returns the wallet's recent trade activity, newest
	// first.
	GetRecentTrades(ctx context.Context, wallet string, limit int) ([]WalletTrade, error)
}

// OrderRepository defines storage operations for orders.
type OrderRepository interface {
	SaveOrder(ctx context.Context, order *Order) error
	UpdateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, error)
}

// SniperRepository defines storage operations for sniper configs and history.
type SniperRepository interface {
	SaveSniperConfig(ctx context.Context, session *SniperSession) error
	SetSniperRunning(ctx context.Context, sniperID string, running bool) error
	SaveSnipeRecord(ctx context.Context, record *SnipeRecord) error
	// FinalizeSnipeRecord updates the open record matched on sniper id +
	// token mint + still-unset sell price.
	FinalizeSnipeRecord(ctx context.Context, sniperID, tokenMint string, sellPrice float64, sellSignature string, sellTime int64, profit, profitPercentage float64) error
	ListSnipeRecords(ctx context.Context, sniperID string) ([]*SnipeRecord, error)
	GetLastBuyPrice(ctx context.Context, sniperID, tokenMint string) (float64, error)
}

// CopyTradeRepository defines storage operations for copy-trade configs and
// history.
type CopyTradeRepository interface {
	SaveCopyTradeConfig(ctx context.Context, session *CopyTradeSession) error
	SetCopyTradeRunning(ctx context.Context, copyTradeID string, running bool) error
	SaveCopyTradeRecord(ctx context.Context, record *CopyTradeRecord) error
	ListCopyTradeRecords(ctx context.Context, copyTradeID string) ([]*CopyTradeRecord, error)
}

// Cache is the ephemeral key-value capability used for order mirroring and
// price/token-info memoization.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PriceSource is one provider in the market-data fallback chain.
type PriceSource interface {
	Name() string
	FetchPrice(ctx context.Context, mint string) (*PriceQuote, error)
}
