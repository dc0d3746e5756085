package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

// RiskConfig bounds what the pipeline is allowed to execute. Zero values
// disable the corresponding check.
type RiskConfig struct {
	MaxPositionSize float64 `yaml:"max_position_size"`
	MaxDailyLoss    float64 `yaml:"max_daily_loss"`
	MaxOpenOrders   int     `yaml:"max_open_orders"`
}

// RiskDecision is the evaluator's verdict. A disallowed order carries the
// reason the caller reports back, it is not an error.
type RiskDecision struct {
	Allowed bool
	Reason  string
}

// RiskEvaluator gates orders before execution.
type RiskEvaluator struct {
	cfg    RiskConfig
	orders domain.OrderRepository
	logger *zap.Logger

	now func() time.Time
}

func NewRiskEvaluator(cfg RiskConfig, orders domain.OrderRepository, logger *zap.Logger) *RiskEvaluator {
	return &RiskEvaluator{
		cfg:    cfg,
		orders: orders,
		logger: logger,
		now:    time.Now,
	}
}

// CheckOrderRisk runs the position-size, open-order and daily-loss checks in
// that order and reports the first violation.
func (r *RiskEvaluator) CheckOrderRisk(ctx context.Context, req *domain.OrderRequest) (*RiskDecision, error) {
	if r.cfg.MaxPositionSize > 0 && req.Side == domain.OrderSideBuy && req.Amount > r.cfg.MaxPositionSize {
		return &RiskDecision{
			Reason: fmt.Sprintf("Order size %.4f exceeds maximum position size %.4f", req.Amount, r.cfg.MaxPositionSize),
		}, nil
	}

	if r.cfg.MaxOpenOrders > 0 {
		open, err := r.orders.ListOrders(ctx, domain.OrderFilter{
			WalletAddress: req.WalletAddress,
			Status:        domain.OrderStatusPending,
		})
		if err != nil {
			return nil, fmt.Errorf("count open orders: %w", err)
		}
		if len(open) >= r.cfg.MaxOpenOrders {
			return &RiskDecision{
				Reason: fmt.Sprintf("Open order limit reached (%d)", r.cfg.MaxOpenOrders),
			}, nil
		}
	}

	if r.cfg.MaxDailyLoss > 0 {
		loss, err := r.dailyRealizedLoss(ctx, req.WalletAddress)
		if err != nil {
			return nil, err
		}
		if loss >= r.cfg.MaxDailyLoss {
			r.logger.Warn("Daily loss limit reached",
				zap.String("wallet", req.WalletAddress),
				zap.Float64("loss", loss))
			return &RiskDecision{
				Reason: fmt.Sprintf("Daily loss limit reached (%.4f SOL)", r.cfg.MaxDailyLoss),
			}, nil
		}
	}

	return &RiskDecision{Allowed: true}, nil
}

// dailyRealizedLoss nets today's executed flows. Buys spend SOL, sells recover
// it, so a positive result is net SOL out of the wallet since midnight UTC.
func (r *RiskEvaluator) dailyRealizedLoss(ctx context.Context, wallet string) (float64, error) {
	midnight := r.now().UTC().Truncate(24 * time.Hour)
	executed, err := r.orders.ListOrders(ctx, domain.OrderFilter{
		WalletAddress: wallet,
		Status:        domain.OrderStatusExecuted,
		StartTime:     midnight,
	})
	if err != nil {
		return 0, fmt.Errorf("list executed orders: %w", err)
	}

	var net float64
	for _, o := range executed {
		proceeds := o.ExecutedAmount * o.ExecutedPrice
		if o.Side == domain.OrderSideBuy {
			net += proceeds
		} else {
			net -= proceeds
		}
	}
	if net < 0 {
		net = 0
	}
	return net, nil
}
