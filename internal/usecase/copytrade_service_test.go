package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

func newCopyTradeService(chain *MockChainClient, repo *MockCopyTradeRepo) *CopyTradeService {
	return NewCopyTradeService(chain, repo, CopyTradeEngineConfig{
		PollInterval: 5 * time.Millisecond,
		PollBackoff:  5 * time.Millisecond,
	}, zap.NewNop())
}

func copyTradeConfig() *domain.CopyTradeConfig {
	return &domain.CopyTradeConfig{
		SourceWallet:         testWallet,
		TargetWallet:         testWallet2,
		PrivateKey:           "key",
		AllocationPercentage: 0.1,
		MaxPositionSize:      0.05,
		MinTradeAmount:       0.1,
		MaxTradesPerHour:     10,
	}
}

func TestStartCopyTradeValidation(t *testing.T) {
	svc := newCopyTradeService(&MockChainClient{}, &MockCopyTradeRepo{})
	ctx := context.Background()

	cfg := copyTradeConfig()
	cfg.SourceWallet = "bad"
	_, err := svc.StartCopyTrade(ctx, cfg)
	require.ErrorContains(t, err, "source wallet")

	cfg = copyTradeConfig()
	cfg.TargetWallet = "bad"
	_, err = svc.StartCopyTrade(ctx, cfg)
	require.ErrorContains(t, err, "target wallet")

	cfg = copyTradeConfig()
	cfg.AllocationPercentage = 1.5
	_, err = svc.StartCopyTrade(ctx, cfg)
	require.ErrorContains(t, err, "allocation percentage")
}

func TestCopyTradeReplicates(t *testing.T) {
	chain := &MockChainClient{
		RecentTrades: []domain.WalletTrade{{
			Wallet:    testWallet,
			TokenMint: testMint,
			Amount:    1,
			Side:      domain.OrderSideBuy,
			Signature: "src-sig",
			Timestamp: time.Now().Unix(),
		}},
		SwapResult: &domain.SwapResult{Signature: "copy-sig"},
	}
	repo := &MockCopyTradeRepo{}
	svc := newCopyTradeService(chain, repo)
	ctx := context.Background()

	id, err := svc.StartCopyTrade(ctx, copyTradeConfig())
	require.NoError(t, err)
	defer svc.StopCopyTrade(ctx, id)

	require.Eventually(t, func() bool {
		return len(repo.SavedRecords()) >= 1
	}, time.Second, 5*time.Millisecond)

	records := repo.SavedRecords()
	require.True(t, records[0].Success)
	require.Equal(t, "copy-sig", records[0].Signature)
	// 10% allocation of 1.0 capped at the 0.05 position limit
	require.Equal(t, 0.05, records[0].Amount)

	swaps := chain.Swaps()
	require.NotEmpty(t, swaps)
	require.Equal(t, 0.05, swaps[0].Slippage, "copies run with fixed slippage")
	require.Equal(t, testWallet2, swaps[0].WalletAddress)

	// the replay guard admits each source trade once
	time.Sleep(50 * time.Millisecond)
	require.Len(t, repo.SavedRecords(), 1)

	status, err := svc.GetStatus(id)
	require.NoError(t, err)
	require.Equal(t, 1, status.CopiedTrades)
}

func TestCopyTradeSkipsSmallTrades(t *testing.T) {
	chain := &MockChainClient{
		RecentTrades: []domain.WalletTrade{{
			Wallet:    testWallet,
			TokenMint: testMint,
			Amount:    0.01, // below the 0.1 minimum
			Side:      domain.OrderSideBuy,
			Timestamp: time.Now().Unix(),
		}},
	}
	repo := &MockCopyTradeRepo{}
	svc := newCopyTradeService(chain, repo)
	ctx := context.Background()

	id, err := svc.StartCopyTrade(ctx, copyTradeConfig())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, svc.StopCopyTrade(ctx, id))
	require.Empty(t, chain.Swaps())
	require.Empty(t, repo.SavedRecords())
}

func TestCopyTradeRecordsFailures(t *testing.T) {
	chain := &MockChainClient{
		RecentTrades: []domain.WalletTrade{{
			Wallet:    testWallet,
			TokenMint: testMint,
			Amount:    1,
			Side:      domain.OrderSideSell,
			Timestamp: time.Now().Unix(),
		}},
		SwapErr: errors.New("no route"),
	}
	repo := &MockCopyTradeRepo{}
	svc := newCopyTradeService(chain, repo)
	ctx := context.Background()

	id, err := svc.StartCopyTrade(ctx, copyTradeConfig())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(repo.SavedRecords()) >= 1
	}, time.Second, 5*time.Millisecond)

	status, err := svc.GetStatus(id)
	require.NoError(t, err)
	require.Zero(t, status.CopiedTrades, "failed copies do not count")

	require.NoError(t, svc.StopCopyTrade(ctx, id))

	records := repo.SavedRecords()
	require.False(t, records[0].Success)
	require.True(t, records[0].Side == domain.OrderSideSell)
}

func TestAddTraderRepointsSource(t *testing.T) {
	repo := &MockCopyTradeRepo{}
	svc := newCopyTradeService(&MockChainClient{}, repo)
	ctx := context.Background()

	id, err := svc.StartCopyTrade(ctx, copyTradeConfig())
	require.NoError(t, err)
	defer svc.StopCopyTrade(ctx, id)

	require.Error(t, svc.AddTrader(ctx, id, "bad", 0.2))
	require.Error(t, svc.AddTrader(ctx, id, testMint, 3))
	require.NoError(t, svc.AddTrader(ctx, id, testMint, 0.2))

	status, err := svc.GetStatus(id)
	require.NoError(t, err)
	require.Equal(t, testMint, status.SourceWallet)
	require.Equal(t, 0.2, status.AllocationPercentage)
}

func TestRemoveTraderStopsMirroring(t *testing.T) {
	svc := newCopyTradeService(&MockChainClient{}, &MockCopyTradeRepo{})
	ctx := context.Background()

	id, err := svc.StartCopyTrade(ctx, copyTradeConfig())
	require.NoError(t, err)
	require.NoError(t, svc.RemoveTrader(ctx, id))

	// removal stops the session and drops it from the registry
	_, err = svc.GetStatus(id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
