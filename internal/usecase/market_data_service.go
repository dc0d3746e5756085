package usecase

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

const (
	priceCacheTTL     = 60 * time.Second
	tokenInfoCacheTTL = 5 * time.Minute
)

// MarketDataService is the cache-aside facade over the price-source fallback
// chain and the chain client's market endpoints.
type MarketDataService struct {
	chain   domain.ChainClient
	cache   domain.Cache
	sources []domain.PriceSource
	logger  *zap.Logger
}

// NewMarketDataService takes the price sources in fallback order; the first
// one that answers wins.
func NewMarketDataService(chain domain.ChainClient, cache domain.Cache, sources []domain.PriceSource, logger *zap.Logger) *MarketDataService {
	return &MarketDataService{
		chain:   chain,
		cache:   cache,
		sources: sources,
		logger:  logger,
	}
}

func (s *MarketDataService) GetTokenPrice(ctx context.Context, mint string) (*domain.PriceQuote, error) {
	key := "price:" + mint
	if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var quote domain.PriceQuote
		if err := json.Unmarshal(b, &quote); err == nil {
			return &quote, nil
		}
	}

	quote, err := s.fetchPrice(ctx, mint)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(quote); err == nil {
		if err := s.cache.Set(ctx, key, b, priceCacheTTL); err != nil {
			s.logger.Warn("Price cache write failed", zap.String("mint", mint), zap.Error(err))
		}
	}
	return quote, nil
}

// LiveTokenPrice walks the fallback chain directly, bypassing the cache.
// Sell monitors poll through this so a crash is visible on the next tick.
func (s *MarketDataService) LiveTokenPrice(ctx context.Context, mint string) (*domain.PriceQuote, error) {
	return s.fetchPrice(ctx, mint)
}

// fetchPrice walks the fallback chain in order.
func (s *MarketDataService) fetchPrice(ctx context.Context, mint string) (*domain.PriceQuote, error) {
	for _, src := range s.sources {
		quote, err := src.FetchPrice(ctx, mint)
		if err == nil {
			return quote, nil
		}
		s.logger.Debug("Price source miss",
			zap.String("source", src.Name()),
			zap.String("mint", mint),
			zap.Error(err))
	}
	return nil, domain.ErrPriceUnavailable
}

func (s *MarketDataService) GetTokenInfo(ctx context.Context, mint string) (*domain.TokenInfo, error) {
	key := "token_info:" + mint
	if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var info domain.TokenInfo
		if err := json.Unmarshal(b, &info); err == nil {
			return &info, nil
		}
	}

	info, err := s.chain.GetTokenInfo(ctx, mint)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(info); err == nil {
		if err := s.cache.Set(ctx, key, b, tokenInfoCacheTTL); err != nil {
			s.logger.Warn("Token info cache write failed", zap.String("mint", mint), zap.Error(err))
		}
	}
	return info, nil
}

// GetMarketData batches price lookups for the given mints. Mints with no
// available price are skipped rather than failing the batch.
func (s *MarketDataService) GetMarketData(ctx context.Context, mints []string) (*domain.MarketData, error) {
	data := &domain.MarketData{Timestamp: time.Now().Unix()}
	for _, mint := range mints {
		quote, err := s.GetTokenPrice(ctx, mint)
		if err != nil {
			s.logger.Warn("No price for market data entry", zap.String("mint", mint), zap.Error(err))
			continue
		}
		data.Prices = append(data.Prices, *quote)
		data.TotalVolume24h += quote.Volume24h
		data.TotalMarketCap += quote.MarketCap
	}
	return data, nil
}

func (s *MarketDataService) GetPriorityFees(ctx context.Context) (*domain.PriorityFees, error) {
	return s.chain.GetPriorityFees(ctx)
}

// StreamPrices pushes a quote for the mint every interval until ctx is
// cancelled or send fails. Misses are skipped, the stream stays up.
func (s *MarketDataService) StreamPrices(ctx context.Context, mint string, interval time.Duration, send func(*domain.PriceQuote) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			quote, err := s.GetTokenPrice(ctx, mint)
			if err != nil {
				s.logger.Debug("Stream tick without price", zap.String("mint", mint), zap.Error(err))
				continue
			}
			if err := send(quote); err != nil {
				return err
			}
		}
	}
}
