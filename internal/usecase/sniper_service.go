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

// SniperEngineConfig tunes the scan loop and the opportunity predicate.
type SniperEngineConfig struct {
	ScanInterval    time.Duration
	ScanBackoff     time.Duration
	MonitorInterval time.Duration
	MinLiquidity    float64
	MaxConcurrent   int
}

func (c *SniperEngineConfig) withDefaults() SniperEngineConfig {
	out := *c
	if out.ScanInterval <= 0 {
		out.ScanInterval = 100 * time.Millisecond
	}
	if out.ScanBackoff <= 0 {
		out.ScanBackoff = time.Second
	}
	if out.MonitorInterval <= 0 {
		out.MonitorInterval = time.Second
	}
	if out.MinLiquidity <= 0 {
		out.MinLiquidity = 1000
	}
	if out.MaxConcurrent <= 0 {
		out.MaxConcurrent = 10
	}
	return out
}

// sniperSession wraps the registry entity with the loop handles that own it.
// Stopping a session cancels its scan loop and every sell monitor it spawned.
type sniperSession struct {
	mu sync.Mutex
	*domain.SniperSession

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	holding map[string]float64 // mint -> token amount under sell monitoring
}

// SniperService is the sniper engine: a registry of live sessions, each with
// its own scan loop and auto-sell monitors.
type SniperService struct {
	chain  domain.ChainClient
	market *MarketDataService
	repo   domain.SniperRepository
	cfg    SniperEngineConfig
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*sniperSession
}

func NewSniperService(chain domain.ChainClient, market *MarketDataService, repo domain.SniperRepository, cfg SniperEngineConfig, logger *zap.Logger) *SniperService {
	return &SniperService{
		chain:    chain,
		market:   market,
		repo:     repo,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		sessions: make(map[string]*sniperSession),
	}
}

// StartSniper registers a session and launches its scan loop. The loop runs
// until StopSniper or Shutdown.
func (s *SniperService) StartSniper(ctx context.Context, cfg *domain.SniperConfig) (string, error) {
	if !domain.ValidAddress(cfg.WalletAddress) {
		return "", fmt.Errorf("invalid wallet address")
	}
	if cfg.BuyAmount <= 0 {
		return "", fmt.Errorf("buy amount must be positive")
	}
	if cfg.ProfitTarget < 0 {
		return "", fmt.Errorf("profit target must be a positive fraction")
	}
	if cfg.StopLoss < 0 || cfg.StopLoss >= 1 {
		return "", fmt.Errorf("stop loss must be a fraction between 0 and 1")
	}
	targets := make(map[string]struct{}, len(cfg.TargetTokens))
	for _, mint := range cfg.TargetTokens {
		if !domain.ValidAddress(mint) {
			return "", fmt.Errorf("invalid target token mint %s", mint)
		}
		targets[mint] = struct{}{}
	}

	entity := &domain.SniperSession{
		ID:               uuid.NewString(),
		WalletAddress:    cfg.WalletAddress,
		PrivateKey:       cfg.PrivateKey,
		TargetTokens:     targets,
		BuyAmount:        cfg.BuyAmount,
		MaxSlippage:      cfg.MaxSlippage,
		ProfitTarget:     cfg.ProfitTarget,
		StopLoss:         cfg.StopLoss,
		AutoSell:         cfg.AutoSell,
		ComputeUnitLimit: cfg.ComputeUnitLimit,
		Cluster:          cfg.Cluster,
		Running:          true,
		StartTime:        time.Now().UTC(),
	}
	if err := s.repo.SaveSniperConfig(ctx, entity); err != nil {
		return "", fmt.Errorf("save sniper config: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sess := &sniperSession{
		SniperSession: entity,
		cancel:        cancel,
		holding:       make(map[string]float64),
	}

	s.mu.Lock()
	s.sessions[entity.ID] = sess
	s.mu.Unlock()

	sess.wg.Add(1)
	go s.run(loopCtx, sess)

	s.logger.Info("Sniper started",
		zap.String("sniper_id", entity.ID),
		zap.Int("targets", len(targets)))
	return entity.ID, nil
}

// StopSniper cancels the session's scan loop and every sell monitor it owns,
// then removes it from the registry. History stays in storage.
func (s *SniperService) StopSniper(ctx context.Context, sniperID string) error {
	sess, err := s.session(sniperID)
	if err != nil {
		return err
	}

	sess.cancel()
	sess.wg.Wait()

	sess.mu.Lock()
	sess.Running = false
	sess.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, sniperID)
	s.mu.Unlock()

	if err := s.repo.SetSniperRunning(ctx, sniperID, false); err != nil {
		s.logger.Error("Sniper stop not persisted", zap.String("sniper_id", sniperID), zap.Error(err))
	}
	s.logger.Info("Sniper stopped", zap.String("sniper_id", sniperID))
	return nil
}

func (s *SniperService) AddTarget(sniperID, mint string) error {
	if !domain.ValidAddress(mint) {
		return fmt.Errorf("invalid token mint address")
	}
	sess, err := s.session(sniperID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	sess.TargetTokens[mint] = struct{}{}
	sess.mu.Unlock()
	return nil
}

func (s *SniperService) RemoveTarget(sniperID, mint string) error {
	sess, err := s.session(sniperID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	delete(sess.TargetTokens, mint)
	sess.mu.Unlock()
	return nil
}

func (s *SniperService) GetStatus(sniperID string) (*domain.SniperStatus, error) {
	sess, err := s.session(sniperID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return &domain.SniperStatus{
		SniperID:         sess.ID,
		Running:          sess.Running,
		ActiveTargets:    sess.Targets(),
		SuccessfulSnipes: sess.SuccessfulSnipes,
		FailedSnipes:     sess.FailedSnipes,
		TotalProfit:      sess.TotalProfit,
		StartTime:        sess.StartTime.Unix(),
	}, nil
}

func (s *SniperService) ListSnipers() []*domain.SniperStatus {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	out := make([]*domain.SniperStatus, 0, len(ids))
	for _, id := range ids {
		if st, err := s.GetStatus(id); err == nil {
			out = append(out, st)
		}
	}
	return out
}

func (s *SniperService) GetHistory(ctx context.Context, sniperID string) ([]*domain.SnipeRecord, error) {
	return s.repo.ListSnipeRecords(ctx, sniperID)
}

// Shutdown stops every live session.
func (s *SniperService) Shutdown(ctx context.Context) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id, sess := range s.sessions {
		if sess.Running {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if err := s.StopSniper(ctx, id); err != nil {
			s.logger.Error("Sniper shutdown failed", zap.String("sniper_id", id), zap.Error(err))
		}
	}
}

func (s *SniperService) session(sniperID string) (*sniperSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sniperID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sniper %s: %w", sniperID, domain.ErrNotFound)
	}
	return sess, nil
}

// run is the scan loop. Each tick fans out over the current target set with
// bounded concurrency; a scan error backs the loop off before the next tick.
func (s *SniperService) run(ctx context.Context, sess *sniperSession) {
	defer sess.wg.Done()

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.scan(ctx, sess); err != nil {
				s.logger.Warn("Sniper scan failed",
					zap.String("sniper_id", sess.ID),
					zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.cfg.ScanBackoff):
				}
			}
		}
	}
}

func (s *SniperService) scan(ctx context.Context, sess *sniperSession) error {
	sess.mu.Lock()
	targets := sess.Targets()
	sess.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	var firstErr error
	var errMu sync.Mutex
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.cfg.MaxConcurrent)

	for _, mint := range targets {
		wg.Add(1)
		go func(mint string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := s.checkTarget(ctx, sess, mint); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}(mint)
	}
	wg.Wait()
	return firstErr
}

// checkTarget applies the opportunity predicate and fires the snipe when it
// passes. Metadata comes straight from the chain, not the cached facade, so a
// target rejected on one cycle is re-evaluated with live liquidity on the next.
func (s *SniperService) checkTarget(ctx context.Context, sess *sniperSession, mint string) error {
	info, err := s.chain.GetTokenInfo(ctx, mint)
	if err != nil {
		return fmt.Errorf("token info for %s: %w", mint, err)
	}

	if info.Liquidity < s.cfg.MinLiquidity || !info.Verified || info.Honeypot {
		return nil
	}

	s.executeSnipe(ctx, sess, mint, info.Price)
	return nil
}

func (s *SniperService) executeSnipe(ctx context.Context, sess *sniperSession, mint string, observedPrice float64) {
	// Claim the target before swapping so concurrent scans cannot double-buy.
	sess.mu.Lock()
	if _, ok := sess.TargetTokens[mint]; !ok {
		sess.mu.Unlock()
		return
	}
	delete(sess.TargetTokens, mint)
	sess.mu.Unlock()

	swap, err := s.chain.ExecuteSwap(ctx, &domain.SwapRequest{
		TokenMint:        mint,
		Amount:           sess.BuyAmount,
		Slippage:         sess.MaxSlippage,
		WalletAddress:    sess.WalletAddress,
		PrivateKey:       sess.PrivateKey,
		ComputeUnitLimit: sess.ComputeUnitLimit,
	})
	now := time.Now().Unix()

	if err != nil {
		s.logger.Error("Snipe buy failed",
			zap.String("sniper_id", sess.ID),
			zap.String("mint", mint),
			zap.Error(err))
		sess.mu.Lock()
		sess.FailedSnipes++
		sess.mu.Unlock()

		s.saveRecord(ctx, &domain.SnipeRecord{
			SniperID:  sess.ID,
			TokenMint: mint,
			BuyAmount: sess.BuyAmount,
			BuyTime:   now,
		})
		return
	}

	buyPrice := swap.ExecutedPrice
	if buyPrice == 0 {
		buyPrice = observedPrice
	}

	sess.mu.Lock()
	sess.SuccessfulSnipes++
	sess.holding[mint] = swap.ExecutedAmount
	sess.mu.Unlock()

	s.saveRecord(ctx, &domain.SnipeRecord{
		SniperID:     sess.ID,
		TokenMint:    mint,
		BuyAmount:    sess.BuyAmount,
		BuyPrice:     buyPrice,
		BuySignature: swap.Signature,
		BuyTime:      now,
		Success:      true,
	})

	s.logger.Info("Snipe executed",
		zap.String("sniper_id", sess.ID),
		zap.String("mint", mint),
		zap.Float64("buy_price", buyPrice),
		zap.String("signature", swap.Signature))

	if sess.AutoSell {
		sess.wg.Add(1)
		go s.monitorSell(ctx, sess, mint, buyPrice, swap.ExecutedAmount)
	}
}

// monitorSell polls the position until the profit target or stop loss trips,
// then closes it and finalizes the snipe record. Stopping the session cancels
// the monitor through the shared loop context.
func (s *SniperService) monitorSell(ctx context.Context, sess *sniperSession, mint string, buyPrice, tokenAmount float64) {
	defer sess.wg.Done()

	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			quote, err := s.market.LiveTokenPrice(ctx, mint)
			if err != nil {
				continue
			}

			hitTarget := sess.ProfitTarget > 0 && quote.Price >= buyPrice*(1+sess.ProfitTarget)
			hitStop := sess.StopLoss > 0 && quote.Price <= buyPrice*(1-sess.StopLoss)
			if !hitTarget && !hitStop {
				continue
			}

			s.closePosition(ctx, sess, mint, buyPrice, tokenAmount)
			return
		}
	}
}

func (s *SniperService) closePosition(ctx context.Context, sess *sniperSession, mint string, buyPrice, tokenAmount float64) {
	if buyPrice == 0 {
		if last, err := s.repo.GetLastBuyPrice(ctx, sess.ID, mint); err == nil {
			buyPrice = last
		}
	}

	swap, err := s.chain.ExecuteSwap(ctx, &domain.SwapRequest{
		TokenMint:     mint,
		Amount:        tokenAmount,
		Slippage:      sess.MaxSlippage,
		WalletAddress: sess.WalletAddress,
		PrivateKey:    sess.PrivateKey,
		Sell:          true,
	})
	if err != nil {
		s.logger.Error("Auto-sell failed",
			zap.String("sniper_id", sess.ID),
			zap.String("mint", mint),
			zap.Error(err))
		return
	}

	sellPrice := swap.ExecutedPrice
	profit := (sellPrice - buyPrice) * tokenAmount
	profitPct := 0.0
	if buyPrice > 0 {
		profitPct = (sellPrice/buyPrice - 1) * 100
	}

	if err := s.repo.FinalizeSnipeRecord(ctx, sess.ID, mint, sellPrice, swap.Signature, time.Now().Unix(), profit, profitPct); err != nil {
		s.logger.Error("Snipe record not finalized",
			zap.String("sniper_id", sess.ID),
			zap.String("mint", mint),
			zap.Error(err))
	}

	sess.mu.Lock()
	sess.TotalProfit += profit
	delete(sess.holding, mint)
	sess.mu.Unlock()

	s.logger.Info("Position closed",
		zap.String("sniper_id", sess.ID),
		zap.String("mint", mint),
		zap.Float64("profit", profit),
		zap.Float64("profit_pct", profitPct))
}

func (s *SniperService) saveRecord(ctx context.Context, record *domain.SnipeRecord) {
	if err := s.repo.SaveSnipeRecord(ctx, record); err != nil {
		s.logger.Error("Snipe record not saved",
			zap.String("sniper_id", record.SniperID),
			zap.String("mint", record.TokenMint),
			zap.Error(err))
	}
}
