package domain

import "time"

// rolling trade-count window length in seconds
const copyTradeWindow = 3600

// CopyTradeConfig is the start-request payload for a copy-trade session.
type CopyTradeConfig struct {
	SourceWallet         string  `json:"source_wallet"`
	TargetWallet         string  `json:"target_wallet"`
	PrivateKey           string  `json:"private_key"`
	AllocationPercentage float64 `json:"allocation_percentage"`
	MaxPositionSize      float64 `json:"max_position_size"`
	MinTradeAmount       float64 `json:"min_trade_amount"`
	MaxTradesPerHour     int     `json:"max_trades_per_hour"`
	Cluster              string  `json:"cluster"`
}

// CopyTradeSession is a live copy-trade mirror held in the engine's registry.
type CopyTradeSession struct {
	ID                   string
	SourceWallet         string
	TargetWallet         string
	PrivateKey           string
	AllocationPercentage float64
	MaxPositionSize      float64
	MinTradeAmount       float64
	MaxTradesPerHour     int
	Cluster              string
	Running              bool
	CopiedTrades         int
	TotalProfit          float64
	TradesThisHour       int
	LastTradeTime        int64
	StartTime            time.Time
}

// Admit applies the replication predicate to one observed trade. It may reset
// the rolling-hour counter when the window has elapsed; all other state
// advances only after a successful replication (see RecordCopied).
func (s *CopyTradeSession) Admit(trade WalletTrade, now int64) bool {
	// replay guard
	if trade.Timestamp <= s.LastTradeTime {
		return false
	}

	if now-s.LastTradeTime < copyTradeWindow {
		if s.TradesThisHour >= s.MaxTradesPerHour {
			return false
		}
	} else {
		s.TradesThisHour = 0
	}

	return trade.Amount >= s.MinTradeAmount
}

// CopyAmount scales the source trade by the allocation percentage and caps it
// at the configured position size.
func (s *CopyTradeSession) CopyAmount(originalAmount float64) float64 {
	amount := originalAmount * s.AllocationPercentage
	if amount > s.MaxPositionSize {
		amount = s.MaxPositionSize
	}
	return amount
}

// RecordCopied advances the counters after a successful replication.
func (s *CopyTradeSession) RecordCopied(now int64) {
	s.CopiedTrades++
	s.TradesThisHour++
	s.LastTradeTime = now
}

// CopyTradeStatus is the externally visible snapshot of a session.
type CopyTradeStatus struct {
	CopyTradeID          string  `json:"copy_trade_id"`
	Running              bool    `json:"running"`
	SourceWallet         string  `json:"source_wallet"`
	TargetWallet         string  `json:"target_wallet"`
	CopiedTrades         int     `json:"copied_trades"`
	TotalProfit          float64 `json:"total_profit"`
	AllocationPercentage float64 `json:"allocation_percentage"`
	StartTime            int64   `json:"start_time"`
}

// CopyTradeRecord is one replication attempt, written for success and failure
// alike. Append-only.
type CopyTradeRecord struct {
	CopyTradeID  string    `json:"copy_trade_id"`
	SourceWallet string    `json:"source_wallet"`
	TargetWallet string    `json:"target_wallet"`
	TokenMint    string    `json:"token_mint"`
	Amount       float64   `json:"amount"`
	Side         OrderSide `json:"side"`
	Profit       float64   `json:"profit"`
	Signature    string    `json:"signature"`
	Timestamp    int64     `json:"timestamp"`
	Success      bool      `json:"success"`
}
