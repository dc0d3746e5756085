package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

// JupiterPriceSource serves quotes from the Jupiter price API.
type JupiterPriceSource struct {
	baseURL string
	http    *http.Client
}

func NewJupiterPriceSource(baseURL string) *JupiterPriceSource {
	return &JupiterPriceSource{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *JupiterPriceSource) Name() string { return "jupiter" }

func (s *JupiterPriceSource) FetchPrice(ctx context.Context, mint string) (*domain.PriceQuote, error) {
	params := url.Values{}
	params.Set("ids", mint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/price?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter price request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter price request failed: %s", resp.Status)
	}

	var payload struct {
		Data map[string]struct {
			Price float64 `json:"price"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode jupiter price: %w", err)
	}

	entry, ok := payload.Data[mint]
	if !ok || entry.Price == 0 {
		return nil, fmt.Errorf("jupiter has no price for %s", mint)
	}

	return &domain.PriceQuote{
		Mint:      mint,
		Price:     entry.Price,
		Timestamp: time.Now().Unix(),
		Source:    s.Name(),
	}, nil
}

// RaydiumPriceSource serves quotes from the Raydium price map.
type RaydiumPriceSource struct {
	baseURL string
	http    *http.Client
}

func NewRaydiumPriceSource(baseURL string) *RaydiumPriceSource {
	return &RaydiumPriceSource{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *RaydiumPriceSource) Name() string { return "raydium" }

func (s *RaydiumPriceSource) FetchPrice(ctx context.Context, mint string) (*domain.PriceQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/main/price", nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("raydium price request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("raydium price request failed: %s", resp.Status)
	}

	var prices map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return nil, fmt.Errorf("decode raydium prices: %w", err)
	}

	price, ok := prices[mint]
	if !ok || price == 0 {
		return nil, fmt.Errorf("raydium has no price for %s", mint)
	}

	return &domain.PriceQuote{
		Mint:      mint,
		Price:     price,
		Timestamp: time.Now().Unix(),
		Source:    s.Name(),
	}, nil
}

// ChainPriceSource is the last resort in the fallback chain. It asks the
// chain client directly.
type ChainPriceSource struct {
	client domain.ChainClient
}

func NewChainPriceSource(client domain.ChainClient) *ChainPriceSource {
	return &ChainPriceSource{client: client}
}

func (s *ChainPriceSource) Name() string { return "chain" }

func (s *ChainPriceSource) FetchPrice(ctx context.Context, mint string) (*domain.PriceQuote, error) {
	price, err := s.client.GetTokenPrice(ctx, mint)
	if err != nil {
		return nil, err
	}
	if price == 0 {
		return nil, fmt.Errorf("chain has no price for %s", mint)
	}

	return &domain.PriceQuote{
		Mint:      mint,
		Price:     price,
		Timestamp: time.Now().Unix(),
		Source:    s.Name(),
	}, nil
}
