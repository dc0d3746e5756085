package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitos/solana_trade_bot/internal/domain"
	"github.com/vitos/solana_trade_bot/internal/infrastructure/storage"
)

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOrderRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	order := &domain.Order{
		ID:            "ord-1",
		TokenMint:     "mint",
		Side:          domain.OrderSideBuy,
		Amount:        1.5,
		Slippage:      0.05,
		WalletAddress: "wallet",
		Cluster:       "mainnet-beta",
		Status:        domain.OrderStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.SaveOrder(ctx, order))

	got, err := store.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, got.Status)
	require.Equal(t, 1.5, got.Amount)

	order.Status = domain.OrderStatusExecuted
	order.Signature = "sig"
	order.ExecutedPrice = 0.002
	require.NoError(t, store.UpdateOrder(ctx, order))

	got, err = store.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusExecuted, got.Status)
	require.Equal(t, "sig", got.Signature)
}

func TestGetOrderNotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.GetOrder(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrdersFilter(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, status := range []domain.OrderStatus{
		domain.OrderStatusExecuted, domain.OrderStatusFailed, domain.OrderStatusExecuted,
	} {
		require.NoError(t, store.SaveOrder(ctx, &domain.Order{
			ID:            string(rune('a' + i)),
			TokenMint:     "mint",
			Side:          domain.OrderSideBuy,
			Amount:        1,
			Slippage:      0.01,
			WalletAddress: "w1",
			Cluster:       "mainnet-beta",
			Status:        status,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	orders, err := store.ListOrders(ctx, domain.OrderFilter{
		WalletAddress: "w1",
		Status:        domain.OrderStatusExecuted,
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	// newest first
	require.True(t, orders[0].CreatedAt.After(orders[1].CreatedAt))

	orders, err = store.ListOrders(ctx, domain.OrderFilter{WalletAddress: "w1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestSnipeRecordFinalize(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnipeRecord(ctx, &domain.SnipeRecord{
		SniperID:     "sn-1",
		TokenMint:    "mint",
		BuyAmount:    0.1,
		BuyPrice:     2.0,
		BuySignature: "buy-sig",
		BuyTime:      100,
		Success:      true,
	}))

	require.NoError(t, store.FinalizeSnipeRecord(ctx, "sn-1", "mint", 3.0, "sell-sig", 200, 0.1, 50))

	records, err := store.ListSnipeRecords(ctx, "sn-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 3.0, records[0].SellPrice)
	require.Equal(t, "sell-sig", records[0].SellSignature)
	require.Equal(t, 50.0, records[0].ProfitPercentage)

	// a second finalize must not touch the already-closed record
	require.NoError(t, store.FinalizeSnipeRecord(ctx, "sn-1", "mint", 9.0, "other", 300, 0, 0))
	records, err = store.ListSnipeRecords(ctx, "sn-1")
	require.NoError(t, err)
	require.Equal(t, 3.0, records[0].SellPrice)

	price, err := store.GetLastBuyPrice(ctx, "sn-1", "mint")
	require.NoError(t, err)
	require.Equal(t, 2.0, price)
}

func TestSnipeRecordFinalizeClosesOldestOpen(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// the same mint bought twice before either position closed
	for _, buyTime := range []int64{100, 200} {
		require.NoError(t, store.SaveSnipeRecord(ctx, &domain.SnipeRecord{
			SniperID:     "sn-1",
			TokenMint:    "mint",
			BuyAmount:    0.1,
			BuyPrice:     2.0,
			BuySignature: "buy-sig",
			BuyTime:      buyTime,
			Success:      true,
		}))
	}

	require.NoError(t, store.FinalizeSnipeRecord(ctx, "sn-1", "mint", 3.0, "sell-1", 300, 0.1, 50))

	records, err := store.ListSnipeRecords(ctx, "sn-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	// newest first: the later buy stays open, the earlier one is closed
	require.Equal(t, "", records[0].SellSignature)
	require.Equal(t, "sell-1", records[1].SellSignature)
	require.Equal(t, 3.0, records[1].SellPrice)

	require.NoError(t, store.FinalizeSnipeRecord(ctx, "sn-1", "mint", 4.0, "sell-2", 400, 0.2, 100))

	records, err = store.ListSnipeRecords(ctx, "sn-1")
	require.NoError(t, err)
	require.Equal(t, "sell-2", records[0].SellSignature)
	require.Equal(t, "sell-1", records[1].SellSignature)
}

func TestCopyTradeRecords(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCopyTradeConfig(ctx, &domain.CopyTradeSession{
		ID:           "ct-1",
		SourceWallet: "src",
		TargetWallet: "dst",
		Cluster:      "mainnet-beta",
		StartTime:    time.Now().UTC(),
		Running:      true,
	}))
	require.NoError(t, store.SetCopyTradeRunning(ctx, "ct-1", false))

	for i := int64(1); i <= 2; i++ {
		require.NoError(t, store.SaveCopyTradeRecord(ctx, &domain.CopyTradeRecord{
			CopyTradeID:  "ct-1",
			SourceWallet: "src",
			TargetWallet: "dst",
			TokenMint:    "mint",
			Amount:       0.02,
			Side:         domain.OrderSideBuy,
			Signature:    "sig",
			Timestamp:    i,
			Success:      i == 2,
		}))
	}

	records, err := store.ListCopyTradeRecords(ctx, "ct-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.True(t, records[0].Timestamp > records[1].Timestamp)
}
