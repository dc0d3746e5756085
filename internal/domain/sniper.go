package domain

import "time"

// SniperConfig is the start-request payload for a sniper session.
type SniperConfig struct {
	WalletAddress    string   `json:"wallet_address"`
	PrivateKey       string   `json:"private_key"`
	TargetTokens     []string `json:"target_tokens"`
	BuyAmount        float64  `json:"buy_amount"`
	MaxSlippage      float64  `json:"max_slippage"`
	ProfitTarget     float64  `json:"profit_target"`
	StopLoss         float64  `json:"stop_loss"`
	AutoSell         bool     `json:"auto_sell"`
	ComputeUnitLimit uint32   `json:"compute_unit_limit"`
	Cluster          string   `json:"cluster"`
}

// SniperSession is a live sniper held in the engine's registry. The registry
// is the source of truth for liveness; storage keeps configuration and
// history only.
type SniperSession struct {
	ID               string
	WalletAddress    string
	PrivateKey       string
	TargetTokens     map[string]struct{}
	BuyAmount        float64
	MaxSlippage      float64
	ProfitTarget     float64
	StopLoss         float64
	AutoSell         bool
	ComputeUnitLimit uint32
	Cluster          string
	Running          bool
	SuccessfulSnipes int
	FailedSnipes     int
	TotalProfit      float64
	StartTime        time.Time
}

// Targets returns the target set as a slice. Order is unspecified.
func (s *SniperSession) Targets() []string {
	out := make([]string, 0, len(s.TargetTokens))
	for mint := range s.TargetTokens {
		out = append(out, mint)
	}
	return out
}

// SniperStatus is the externally visible snapshot of a session.
type SniperStatus struct {
	SniperID         string   `json:"sniper_id"`
	Running          bool     `json:"running"`
	ActiveTargets    []string `json:"active_targets"`
	SuccessfulSnipes int      `json:"successful_snipes"`
	FailedSnipes     int      `json:"failed_snipes"`
	TotalProfit      float64  `json:"total_profit"`
	StartTime        int64    `json:"start_time"`
}

// SnipeRecord is one buy and, once the position is closed, its matching sell.
// Sell fields stay zero until the sell-monitor finalizes the record.
type SnipeRecord struct {
	SniperID         string  `json:"sniper_id"`
	TokenMint        string  `json:"token_mint"`
	BuyAmount        float64 `json:"buy_amount"`
	BuyPrice         float64 `json:"buy_price"`
	BuySignature     string  `json:"buy_signature"`
	BuyTime          int64   `json:"buy_time"`
	SellPrice        float64 `json:"sell_price"`
	SellSignature    string  `json:"sell_signature"`
	SellTime         int64   `json:"sell_time"`
	Profit           float64 `json:"profit"`
	ProfitPercentage float64 `json:"profit_percentage"`
	Success          bool    `json:"success"`
}
