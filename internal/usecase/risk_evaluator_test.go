package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

func TestRiskPositionSize(t *testing.T) {
	risk := NewRiskEvaluator(RiskConfig{MaxPositionSize: 1}, NewMockOrderRepo(), zap.NewNop())
	ctx := context.Background()

	decision, err := risk.CheckOrderRisk(ctx, &domain.OrderRequest{Side: domain.OrderSideBuy, Amount: 2})
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Contains(t, decision.Reason, "maximum position size")

	decision, err = risk.CheckOrderRisk(ctx, &domain.OrderRequest{Side: domain.OrderSideBuy, Amount: 0.5})
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	// the cap binds buys only; a sell exits a position
	decision, err = risk.CheckOrderRisk(ctx, &domain.OrderRequest{Side: domain.OrderSideSell, Amount: 2})
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestRiskOpenOrderLimit(t *testing.T) {
	repo := NewMockOrderRepo()
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		require.NoError(t, repo.SaveOrder(ctx, &domain.Order{
			ID:            id,
			WalletAddress: testWallet,
			Status:        domain.OrderStatusPending,
		}))
	}

	risk := NewRiskEvaluator(RiskConfig{MaxOpenOrders: 2}, repo, zap.NewNop())

	decision, err := risk.CheckOrderRisk(ctx, &domain.OrderRequest{
		Side: domain.OrderSideBuy, Amount: 0.1, WalletAddress: testWallet,
	})
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Contains(t, decision.Reason, "Open order limit")
}

func TestRiskDailyLoss(t *testing.T) {
	repo := NewMockOrderRepo()
	ctx := context.Background()

	// today: bought 1 SOL worth, recovered 0.2
	now := time.Now().UTC()
	require.NoError(t, repo.SaveOrder(ctx, &domain.Order{
		ID: "buy", WalletAddress: testWallet, Status: domain.OrderStatusExecuted,
		Side: domain.OrderSideBuy, ExecutedAmount: 100, ExecutedPrice: 0.01, CreatedAt: now,
	}))
	require.NoError(t, repo.SaveOrder(ctx, &domain.Order{
		ID: "sell", WalletAddress: testWallet, Status: domain.OrderStatusExecuted,
		Side: domain.OrderSideSell, ExecutedAmount: 100, ExecutedPrice: 0.002, CreatedAt: now,
	}))

	risk := NewRiskEvaluator(RiskConfig{MaxDailyLoss: 0.5}, repo, zap.NewNop())

	decision, err := risk.CheckOrderRisk(ctx, &domain.OrderRequest{
		Side: domain.OrderSideBuy, Amount: 0.1, WalletAddress: testWallet,
	})
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Contains(t, decision.Reason, "Daily loss limit")

	// yesterday's flows do not count
	risk = NewRiskEvaluator(RiskConfig{MaxDailyLoss: 0.5}, repo, zap.NewNop())
	risk.now = func() time.Time { return now.Add(48 * time.Hour) }
	decision, err = risk.CheckOrderRisk(ctx, &domain.OrderRequest{
		Side: domain.OrderSideBuy, Amount: 0.1, WalletAddress: testWallet,
	})
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestRiskDisabledChecks(t *testing.T) {
	risk := NewRiskEvaluator(RiskConfig{}, NewMockOrderRepo(), zap.NewNop())

	decision, err := risk.CheckOrderRisk(context.Background(), &domain.OrderRequest{
		Side: domain.OrderSideBuy, Amount: 1e9, WalletAddress: testWallet,
	})
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}
