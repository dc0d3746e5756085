package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

// copy trades always run with fixed slippage
const copyTradeSlippage = 0.05

// CopyTradeEngineConfig tunes the monitor loop.
type CopyTradeEngineConfig struct {
	PollInterval  time.Duration
	PollBackoff   time.Duration
	TradeLookback int
}

func (c *CopyTradeEngineConfig) withDefaults() CopyTradeEngineConfig {
	out := *c
	if out.PollInterval <= 0 {
		out.PollInterval = time.Second
	}
	if out.PollBackoff <= 0 {
		out.PollBackoff = 5 * time.Second
	}
	if out.TradeLookback <= 0 {
		out.TradeLookback = 10
	}
	return out
}

type copyTradeSession struct {
	mu sync.Mutex
	*domain.CopyTradeSession

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// CopyTradeService mirrors trades of tracked source wallets into the target
// wallet. One monitor loop per session.
type CopyTradeService struct {
	chain  domain.ChainClient
	repo   domain.CopyTradeRepository
	cfg    CopyTradeEngineConfig
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*copyTradeSession
}

func NewCopyTradeService(chain domain.ChainClient, repo domain.CopyTradeRepository, cfg CopyTradeEngineConfig, logger *zap.Logger) *CopyTradeService {
	return &CopyTradeService{
		chain:    chain,
		repo:     repo,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		sessions: make(map[string]*copyTradeSession),
	}
}

func (s *CopyTradeService) StartCopyTrade(ctx context.Context, cfg *domain.CopyTradeConfig) (string, error) {
	if !domain.ValidAddress(cfg.SourceWallet) {
		return "", fmt.Errorf("invalid source wallet address")
	}
	if !domain.ValidAddress(cfg.TargetWallet) {
		return "", fmt.Errorf("invalid target wallet address")
	}
	if cfg.AllocationPercentage <= 0 || cfg.AllocationPercentage > 1 {
		return "", fmt.Errorf("allocation percentage must be between 0 and 1")
	}

	entity := &domain.CopyTradeSession{
		ID:                   uuid.NewString(),
		SourceWallet:         cfg.SourceWallet,
		TargetWallet:         cfg.TargetWallet,
		PrivateKey:           cfg.PrivateKey,
		AllocationPercentage: cfg.AllocationPercentage,
		MaxPositionSize:      cfg.MaxPositionSize,
		MinTradeAmount:       cfg.MinTradeAmount,
		MaxTradesPerHour:     cfg.MaxTradesPerHour,
		Cluster:              cfg.Cluster,
		Running:              true,
		StartTime:            time.Now().UTC(),
	}
	if err := s.repo.SaveCopyTradeConfig(ctx, entity); err != nil {
		return "", fmt.Errorf("save copy-trade config: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sess := &copyTradeSession{
		CopyTradeSession: entity,
		cancel:           cancel,
	}

	s.mu.Lock()
	s.sessions[entity.ID] = sess
	s.mu.Unlock()

	sess.wg.Add(1)
	go s.run(loopCtx, sess)

	s.logger.Info("Copy trading started",
		zap.String("copy_trade_id", entity.ID),
		zap.String("source", entity.SourceWallet))
	return entity.ID, nil
}

// StopCopyTrade cancels the session's monitor loop and removes it from the
// registry. History stays in storage.
func (s *CopyTradeService) StopCopyTrade(ctx context.Context, copyTradeID string) error {
	sess, err := s.session(copyTradeID)
	if err != nil {
		return err
	}

	sess.cancel()
	sess.wg.Wait()

	sess.mu.Lock()
	sess.Running = false
	sess.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, copyTradeID)
	s.mu.Unlock()

	if err := s.repo.SetCopyTradeRunning(ctx, copyTradeID, false); err != nil {
		s.logger.Error("Copy-trade stop not persisted", zap.String("copy_trade_id", copyTradeID), zap.Error(err))
	}
	s.logger.Info("Copy trading stopped", zap.String("copy_trade_id", copyTradeID))
	return nil
}

// AddTrader re-points the session at a new source wallet and allocation. The
// replay guard resets so the new source's history is not mirrored.
func (s *CopyTradeService) AddTrader(ctx context.Context, copyTradeID, sourceWallet string, allocation float64) error {
	if !domain.ValidAddress(sourceWallet) {
		return fmt.Errorf("invalid source wallet address")
	}
	if allocation <= 0 || allocation > 1 {
		return fmt.Errorf("allocation percentage must be between 0 and 1")
	}
	sess, err := s.session(copyTradeID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	sess.SourceWallet = sourceWallet
	sess.AllocationPercentage = allocation
	sess.LastTradeTime = time.Now().Unix()
	sess.mu.Unlock()

	if err := s.repo.SaveCopyTradeConfig(ctx, sess.CopyTradeSession); err != nil {
		return fmt.Errorf("save copy-trade config: %w", err)
	}
	return nil
}

// RemoveTrader stops mirroring without discarding the session.
func (s *CopyTradeService) RemoveTrader(ctx context.Context, copyTradeID string) error {
	return s.StopCopyTrade(ctx, copyTradeID)
}

func (s *CopyTradeService) GetStatus(copyTradeID string) (*domain.CopyTradeStatus, error) {
	sess, err := s.session(copyTradeID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return &domain.CopyTradeStatus{
		CopyTradeID:          sess.ID,
		Running:              sess.Running,
		SourceWallet:         sess.SourceWallet,
		TargetWallet:         sess.TargetWallet,
		CopiedTrades:         sess.CopiedTrades,
		TotalProfit:          sess.TotalProfit,
		AllocationPercentage: sess.AllocationPercentage,
		StartTime:            sess.StartTime.Unix(),
	}, nil
}

func (s *CopyTradeService) ListCopyTrades() []*domain.CopyTradeStatus {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	out := make([]*domain.CopyTradeStatus, 0, len(ids))
	for _, id := range ids {
		if st, err := s.GetStatus(id); err == nil {
			out = append(out, st)
		}
	}
	return out
}

func (s *CopyTradeService) GetHistory(ctx context.Context, copyTradeID string) ([]*domain.CopyTradeRecord, error) {
	return s.repo.ListCopyTradeRecords(ctx, copyTradeID)
}

func (s *CopyTradeService) Shutdown(ctx context.Context) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id, sess := range s.sessions {
		if sess.Running {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if err := s.StopCopyTrade(ctx, id); err != nil {
			s.logger.Error("Copy-trade shutdown failed", zap.String("copy_trade_id", id), zap.Error(err))
		}
	}
}

func (s *CopyTradeService) session(copyTradeID string) (*copyTradeSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[copyTradeID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("copy trade %s: %w", copyTradeID, domain.ErrNotFound)
	}
	return sess, nil
}

// run polls the source wallet's recent trades. A poll error backs off longer
// than the regular interval.
func (s *CopyTradeService) run(ctx context.Context, sess *copyTradeSession) {
	defer sess.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.poll(ctx, sess); err != nil {
				s.logger.Warn("Copy-trade poll failed",
					zap.String("copy_trade_id", sess.ID),
					zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.cfg.PollBackoff):
				}
			}
		}
	}
}

func (s *CopyTradeService) poll(ctx context.Context, sess *copyTradeSession) error {
	sess.mu.Lock()
	source := sess.SourceWallet
	sess.mu.Unlock()

	trades, err := s.chain.GetRecentTrades(ctx, source, s.cfg.TradeLookback)
	if err != nil {
		return fmt.Errorf("recent trades for %s: %w", source, err)
	}

	// feed is newest first; replicate in chain order
	for i := len(trades) - 1; i >= 0; i-- {
		trade := trades[i]
		now := time.Now().Unix()

		sess.mu.Lock()
		admit := sess.Admit(trade, now)
		amount := sess.CopyAmount(trade.Amount)
		sess.mu.Unlock()

		if !admit {
			continue
		}
		s.replicate(ctx, sess, trade, amount)
	}
	return nil
}

// replicate mirrors one admitted trade and records the attempt either way.
func (s *CopyTradeService) replicate(ctx context.Context, sess *copyTradeSession, trade domain.WalletTrade, amount float64) {
	record := &domain.CopyTradeRecord{
		CopyTradeID:  sess.ID,
		SourceWallet: trade.Wallet,
		TargetWallet: sess.TargetWallet,
		TokenMint:    trade.TokenMint,
		Amount:       amount,
		Side:         trade.Side,
		Timestamp:    trade.Timestamp,
	}

	swap, err := s.chain.ExecuteSwap(ctx, &domain.SwapRequest{
		TokenMint:     trade.TokenMint,
		Amount:        amount,
		Slippage:      copyTradeSlippage,
		WalletAddress: sess.TargetWallet,
		PrivateKey:    sess.PrivateKey,
		Sell:          trade.Side == domain.OrderSideSell,
	})
	if err != nil {
		s.logger.Error("Trade replication failed",
			zap.String("copy_trade_id", sess.ID),
			zap.String("mint", trade.TokenMint),
			zap.Error(err))
	} else {
		record.Success = true
		record.Signature = swap.Signature

		sess.mu.Lock()
		sess.RecordCopied(trade.Timestamp)
		sess.mu.Unlock()

		s.logger.Info("Trade replicated",
			zap.String("copy_trade_id", sess.ID),
			zap.String("mint", trade.TokenMint),
			zap.String("side", string(trade.Side)),
			zap.Float64("amount", amount))
	}

	if err := s.repo.SaveCopyTradeRecord(ctx, record); err != nil {
		s.logger.Error("Copy-trade record not saved",
			zap.String("copy_trade_id", sess.ID),
			zap.Error(err))
	}
}
