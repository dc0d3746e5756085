package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

// MockChainClient for service tests
type MockChainClient struct {
	mu sync.Mutex

	Balance       *domain.Balance
	TokenBalances []domain.TokenBalance
	TokenInfos    map[string]*domain.TokenInfo
	Prices        map[string]float64
	Fees          *domain.PriorityFees
	SwapResult    *domain.SwapResult
	SwapErr       error
	RecentTrades  []domain.WalletTrade
	TradesErr     error

	ExecutedSwaps []*domain.SwapRequest
	CancelledIDs  []string
}

func (m *MockChainClient) GetNativeBalance(ctx context.Context, wallet string) (*domain.Balance, error) {
	return m.Balance, nil
}

func (m *MockChainClient) GetTokenBalances(ctx context.Context, wallet string) ([]domain.TokenBalance, error) {
	return m.TokenBalances, nil
}

func (m *MockChainClient) GetTokenInfo(ctx context.Context, mint string) (*domain.TokenInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.TokenInfos[mint]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return info, nil
}

func (m *MockChainClient) GetTokenPrice(ctx context.Context, mint string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.Prices[mint]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return price, nil
}

// SetTokenInfo swaps a mint's metadata while loops are running.
func (m *MockChainClient) SetTokenInfo(mint string, info *domain.TokenInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TokenInfos == nil {
		m.TokenInfos = make(map[string]*domain.TokenInfo)
	}
	m.TokenInfos[mint] = info
}

// SetPrice moves a mint's price while loops are running.
func (m *MockChainClient) SetPrice(mint string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Prices == nil {
		m.Prices = make(map[string]float64)
	}
	m.Prices[mint] = price
}

func (m *MockChainClient) GetPriorityFees(ctx context.Context) (*domain.PriorityFees, error) {
	if m.Fees == nil {
		return &domain.PriorityFees{Slow: 1000, Standard: 5000, Fast: 10000, Instant: 20000}, nil
	}
	return m.Fees, nil
}

func (m *MockChainClient) ExecuteSwap(ctx context.Context, req *domain.SwapRequest) (*domain.SwapResult, error) {
	m.mu.Lock()
	m.ExecutedSwaps = append(m.ExecutedSwaps, req)
	m.mu.Unlock()
	if m.SwapErr != nil {
		return nil, m.SwapErr
	}
	if m.SwapResult != nil {
		return m.SwapResult, nil
	}
	return &domain.SwapResult{Signature: "mock-sig"}, nil
}

func (m *MockChainClient) CancelPendingSwap(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	m.CancelledIDs = append(m.CancelledIDs, order.ID)
	m.mu.Unlock()
	return nil
}

func (m *MockChainClient) GetRecentTrades(ctx context.Context, wallet string, limit int) ([]domain.WalletTrade, error) {
	if m.TradesErr != nil {
		return nil, m.TradesErr
	}
	return m.RecentTrades, nil
}

func (m *MockChainClient) Swaps() []*domain.SwapRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.SwapRequest, len(m.ExecutedSwaps))
	copy(out, m.ExecutedSwaps)
	return out
}

// MockOrderRepo keeps orders in memory
type MockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{orders: make(map[string]*domain.Order)}
}

func (m *MockOrderRepo) SaveOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *MockOrderRepo) UpdateOrder(ctx context.Context, order *domain.Order) error {
	return m.SaveOrder(ctx, order)
}

func (m *MockOrderRepo) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *MockOrderRepo) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, order := range m.orders {
		if filter.WalletAddress != "" && order.WalletAddress != filter.WalletAddress {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if !filter.StartTime.IsZero() && order.CreatedAt.Before(filter.StartTime) {
			continue
		}
		cp := *order
		out = append(out, &cp)
	}
	// newest first, like the real store
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MockSniperRepo records calls
type MockSniperRepo struct {
	mu        sync.Mutex
	Configs   []*domain.SniperSession
	Records   []*domain.SnipeRecord
	Finalized []string
	LastBuy   map[string]float64
}

func NewMockSniperRepo() *MockSniperRepo {
	return &MockSniperRepo{LastBuy: make(map[string]float64)}
}

func (m *MockSniperRepo) SaveSniperConfig(ctx context.Context, session *domain.SniperSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Configs = append(m.Configs, session)
	return nil
}

func (m *MockSniperRepo) SetSniperRunning(ctx context.Context, sniperID string, running bool) error {
	return nil
}

func (m *MockSniperRepo) SaveSnipeRecord(ctx context.Context, record *domain.SnipeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, record)
	return nil
}

func (m *MockSniperRepo) FinalizeSnipeRecord(ctx context.Context, sniperID, tokenMint string, sellPrice float64, sellSignature string, sellTime int64, profit, profitPercentage float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Finalized = append(m.Finalized, tokenMint)
	return nil
}

func (m *MockSniperRepo) ListSnipeRecords(ctx context.Context, sniperID string) ([]*domain.SnipeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.SnipeRecord, len(m.Records))
	copy(out, m.Records)
	return out, nil
}

func (m *MockSniperRepo) GetLastBuyPrice(ctx context.Context, sniperID, tokenMint string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.LastBuy[tokenMint]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return price, nil
}

func (m *MockSniperRepo) SavedRecords() []*domain.SnipeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.SnipeRecord, len(m.Records))
	copy(out, m.Records)
	return out
}

func (m *MockSniperRepo) FinalizedMints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Finalized))
	copy(out, m.Finalized)
	return out
}

// MockCopyTradeRepo records calls
type MockCopyTradeRepo struct {
	mu      sync.Mutex
	Configs []*domain.CopyTradeSession
	Records []*domain.CopyTradeRecord
}

func (m *MockCopyTradeRepo) SaveCopyTradeConfig(ctx context.Context, session *domain.CopyTradeSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Configs = append(m.Configs, session)
	return nil
}

func (m *MockCopyTradeRepo) SetCopyTradeRunning(ctx context.Context, copyTradeID string, running bool) error {
	return nil
}

func (m *MockCopyTradeRepo) SaveCopyTradeRecord(ctx context.Context, record *domain.CopyTradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, record)
	return nil
}

func (m *MockCopyTradeRepo) ListCopyTradeRecords(ctx context.Context, copyTradeID string) ([]*domain.CopyTradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.CopyTradeRecord, len(m.Records))
	copy(out, m.Records)
	return out, nil
}

func (m *MockCopyTradeRepo) SavedRecords() []*domain.CopyTradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.CopyTradeRecord, len(m.Records))
	copy(out, m.Records)
	return out
}

// fakeCache is a minimal in-memory domain.Cache
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	return b, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// fakeSource is a scripted price source
type fakeSource struct {
	name  string
	quote *domain.PriceQuote
	err   error
	calls int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) FetchPrice(ctx context.Context, mint string) (*domain.PriceQuote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}
