package domain

import "time"

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusExecuted  OrderStatus = "executed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusExecuted || s == OrderStatusFailed || s == OrderStatusCancelled
}

// Order is the unit of work of the execution pipeline. Persisted on creation
// and on every status transition.
type Order struct {
	ID               string      `json:"id"`
	TokenMint        string      `json:"token_mint"`
	Side             OrderSide   `json:"side"`
	Amount           float64     `json:"amount"`
	Slippage         float64     `json:"slippage"`
	PriorityFee      uint64      `json:"priority_fee"`
	ComputeUnitLimit uint32      `json:"compute_unit_limit"`
	WalletAddress    string      `json:"wallet_address"`
	Cluster          string      `json:"cluster"`
	Status           OrderStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	ExecutedPrice    float64     `json:"executed_price"`
	ExecutedAmount   float64     `json:"executed_amount"`
	Signature        string      `json:"signature"`
}

// OrderRequest carries the caller-supplied order parameters.
type OrderRequest struct {
	TokenMint        string    `json:"token_mint"`
	Side             OrderSide `json:"side"`
	Amount           float64   `json:"amount"`
	Slippage         float64   `json:"slippage"`
	PriorityFee      uint64    `json:"priority_fee"`
	ComputeUnitLimit uint32    `json:"compute_unit_limit"`
	WalletAddress    string    `json:"wallet_address"`
	Cluster          string    `json:"cluster"`
}

// OrderResult is the pipeline's answer to PlaceOrder/CancelOrder. Rejections
// (validation, risk) come back as Success=false with a reason in Message, not
// as errors.
type OrderResult struct {
	Success          bool    `json:"success"`
	Message          string  `json:"message"`
	OrderID          string  `json:"order_id,omitempty"`
	Signature        string  `json:"signature,omitempty"`
	ComputeUnitsUsed uint64  `json:"compute_units_used,omitempty"`
	TotalCost        float64 `json:"total_cost,omitempty"`
}

// OrderFilter narrows ListOrders. Zero values mean "no constraint".
type OrderFilter struct {
	WalletAddress string
	Status        OrderStatus
	StartTime     time.Time
	EndTime       time.Time
	Limit         int
	Offset        int
}

type Balance struct {
	WalletAddress string  `json:"wallet_address"`
	Amount        float64 `json:"amount"`
	Symbol        string  `json:"symbol"`
}

type TokenBalance struct {
	TokenMint string  `json:"token_mint"`
	Symbol    string  `json:"symbol"`
	Balance   float64 `json:"balance"`
	Price     float64 `json:"price"`
	Value     float64 `json:"value"`
}

type Portfolio struct {
	WalletAddress         string         `json:"wallet_address"`
	TotalValue            float64        `json:"total_value"`
	TotalProfit           float64        `json:"total_profit"`
	TotalProfitPercentage float64        `json:"total_profit_percentage"`
	Tokens                []TokenBalance `json:"tokens"`
}
