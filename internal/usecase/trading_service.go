package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

const orderCacheTTL = time.Hour

// TradingService runs the order execution pipeline: validate, risk-check,
// persist, execute on chain, finalize.
type TradingService struct {
	chain  domain.ChainClient
	orders domain.OrderRepository
	cache  domain.Cache
	risk   *RiskEvaluator
	logger *zap.Logger

	walletPrivateKey string
	defaultCluster   string
}

func NewTradingService(chain domain.ChainClient, orders domain.OrderRepository, cache domain.Cache, risk *RiskEvaluator, walletPrivateKey, defaultCluster string, logger *zap.Logger) *TradingService {
	return &TradingService{
		chain:            chain,
		orders:           orders,
		cache:            cache,
		risk:             risk,
		logger:           logger,
		walletPrivateKey: walletPrivateKey,
		defaultCluster:   defaultCluster,
	}
}

// ValidateOrderRequest applies the parameter checks every order must pass.
// The returned message is empty when the request is valid.
func ValidateOrderRequest(req *domain.OrderRequest) string {
	if !domain.ValidAddress(req.TokenMint) {
		return "Invalid token mint address"
	}
	if req.Amount <= 0 {
		return "Amount must be positive"
	}
	if req.Slippage <= 0 || req.Slippage > 0.5 {
		return "Slippage must be between 0 and 50%"
	}
	if !domain.ValidAddress(req.WalletAddress) {
		return "Invalid wallet address"
	}
	return ""
}

// PlaceOrder runs the full pipeline. Validation and risk rejections come back
// as Success=false results; only infrastructure failures surface as errors.
func (s *TradingService) PlaceOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	if msg := ValidateOrderRequest(req); msg != "" {
		return &domain.OrderResult{Message: msg}, nil
	}

	decision, err := s.risk.CheckOrderRisk(ctx, req)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return &domain.OrderResult{Message: decision.Reason}, nil
	}

	cluster := req.Cluster
	if cluster == "" {
		cluster = s.defaultCluster
	}

	order := &domain.Order{
		ID:               uuid.NewString(),
		TokenMint:        req.TokenMint,
		Side:             req.Side,
		Amount:           req.Amount,
		Slippage:         req.Slippage,
		PriorityFee:      req.PriorityFee,
		ComputeUnitLimit: req.ComputeUnitLimit,
		WalletAddress:    req.WalletAddress,
		Cluster:          cluster,
		Status:           domain.OrderStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
	if order.PriorityFee == 0 {
		if fees, err := s.chain.GetPriorityFees(ctx); err == nil {
			order.PriorityFee = fees.Standard
		}
	}

	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	s.mirrorOrder(ctx, order)

	swap, err := s.chain.ExecuteSwap(ctx, &domain.SwapRequest{
		TokenMint:        order.TokenMint,
		Amount:           order.Amount,
		Slippage:         order.Slippage,
		WalletAddress:    order.WalletAddress,
		PrivateKey:       s.walletPrivateKey,
		Sell:             order.Side == domain.OrderSideSell,
		PriorityFee:      order.PriorityFee,
		ComputeUnitLimit: order.ComputeUnitLimit,
	})
	if err != nil {
		s.logger.Error("Swap execution failed",
			zap.String("order_id", order.ID),
			zap.String("token", order.TokenMint),
			zap.Error(err))
		order.Status = domain.OrderStatusFailed
		s.finalizeOrder(ctx, order)
		return &domain.OrderResult{
			Message: fmt.Sprintf("Execution failed: %v", err),
			OrderID: order.ID,
		}, nil
	}

	order.Status = domain.OrderStatusExecuted
	order.Signature = swap.Signature
	order.ExecutedPrice = swap.ExecutedPrice
	order.ExecutedAmount = swap.ExecutedAmount
	s.finalizeOrder(ctx, order)

	s.logger.Info("Order executed",
		zap.String("order_id", order.ID),
		zap.String("token", order.TokenMint),
		zap.String("side", string(order.Side)),
		zap.String("signature", swap.Signature))

	return &domain.OrderResult{
		Success:          true,
		Message:          "Order executed",
		OrderID:          order.ID,
		Signature:        swap.Signature,
		ComputeUnitsUsed: swap.ComputeUnitsUsed,
		TotalCost:        swap.TotalCost,
	}, nil
}

// CancelOrder cancels a pending order. Chain-side cancellation runs first so
// a failure there leaves the order pending.
func (s *TradingService) CancelOrder(ctx context.Context, orderID string) (*domain.OrderResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPending {
		return &domain.OrderResult{
			Message: fmt.Sprintf("Order is %s and cannot be cancelled", order.Status),
			OrderID: order.ID,
		}, nil
	}

	if err := s.chain.CancelPendingSwap(ctx, order); err != nil {
		return &domain.OrderResult{
			Message: fmt.Sprintf("Cancellation failed: %v", err),
			OrderID: order.ID,
		}, nil
	}

	order.Status = domain.OrderStatusCancelled
	s.finalizeOrder(ctx, order)

	return &domain.OrderResult{
		Success: true,
		Message: "Order cancelled",
		OrderID: order.ID,
	}, nil
}

// GetOrder reads through the cache mirror first.
func (s *TradingService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if b, ok, err := s.cache.Get(ctx, orderCacheKey(orderID)); err == nil && ok {
		var order domain.Order
		if err := json.Unmarshal(b, &order); err == nil {
			return &order, nil
		}
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.mirrorOrder(ctx, order)
	return order, nil
}

func (s *TradingService) GetOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	return s.orders.ListOrders(ctx, filter)
}

func (s *TradingService) GetBalance(ctx context.Context, wallet string) (*domain.Balance, error) {
	if !domain.ValidAddress(wallet) {
		return nil, fmt.Errorf("invalid wallet address")
	}
	return s.chain.GetNativeBalance(ctx, wallet)
}

// GetPortfolio combines live holdings with realized profit from the order
// history. Profit uses per-mint average-cost lots.
func (s *TradingService) GetPortfolio(ctx context.Context, wallet string) (*domain.Portfolio, error) {
	if !domain.ValidAddress(wallet) {
		return nil, fmt.Errorf("invalid wallet address")
	}

	tokens, err := s.chain.GetTokenBalances(ctx, wallet)
	if err != nil {
		return nil, err
	}

	portfolio := &domain.Portfolio{
		WalletAddress: wallet,
		Tokens:        tokens,
	}
	for _, t := range tokens {
		portfolio.TotalValue += t.Value
	}

	executed, err := s.orders.ListOrders(ctx, domain.OrderFilter{
		WalletAddress: wallet,
		Status:        domain.OrderStatusExecuted,
	})
	if err != nil {
		return nil, err
	}

	profit, invested := realizedProfit(executed)
	portfolio.TotalProfit = profit
	if invested > 0 {
		portfolio.TotalProfitPercentage = profit / invested * 100
	}
	return portfolio, nil
}

// lot tracks one mint's open position at average cost.
type lot struct {
	quantity float64
	avgCost  float64
}

// realizedProfit replays executed orders oldest first and nets each sell
// against the mint's average cost at that moment.
func realizedProfit(executed []*domain.Order) (profit, invested float64) {
	lots := make(map[string]*lot)

	for i := len(executed) - 1; i >= 0; i-- {
		o := executed[i]
		if o.ExecutedAmount <= 0 {
			continue
		}

		l, ok := lots[o.TokenMint]
		if !ok {
			l = &lot{}
			lots[o.TokenMint] = l
		}

		if o.Side == domain.OrderSideBuy {
			cost := o.ExecutedAmount * o.ExecutedPrice
			invested += cost
			l.avgCost = (l.avgCost*l.quantity + cost) / (l.quantity + o.ExecutedAmount)
			l.quantity += o.ExecutedAmount
			continue
		}

		sold := o.ExecutedAmount
		if sold > l.quantity {
			sold = l.quantity
		}
		profit += (o.ExecutedPrice - l.avgCost) * sold
		l.quantity -= sold
	}
	return profit, invested
}

func (s *TradingService) mirrorOrder(ctx context.Context, order *domain.Order) {
	b, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, orderCacheKey(order.ID), b, orderCacheTTL); err != nil {
		s.logger.Warn("Order cache write failed", zap.String("order_id", order.ID), zap.Error(err))
	}
}

// finalizeOrder persists a status transition and refreshes the cache mirror.
func (s *TradingService) finalizeOrder(ctx context.Context, order *domain.Order) {
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		s.logger.Error("Order update failed", zap.String("order_id", order.ID), zap.Error(err))
	}
	s.mirrorOrder(ctx, order)
}

func orderCacheKey(id string) string {
	return "order:" + id
}
