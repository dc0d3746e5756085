package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

const (
	lamportsPerSOL = 1_000_000_000
	wrappedSOLMint = "So11111111111111111111111111111111111111112"
)

// Config holds the endpoints the client talks to.
type Config struct {
	RPCURL         string
	JupiterAPIURL  string // quote + token list base
	JupiterSwapURL string
}

// Client implements domain.ChainClient on top of the Solana RPC and the
// Jupiter aggregator.
type Client struct {
	rpc    *rpc.Client
	http   *http.Client
	cfg    Config
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(cfg.RPCURL),
		http:   &http.Client{Timeout: 15 * time.Second},
		cfg:    cfg,
		logger: logger,
	}
}

func (c *Client) GetNativeBalance(ctx context.Context, wallet string) (*domain.Balance, error) {
	pubkey, err := solanago.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}

	out, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	return &domain.Balance{
		WalletAddress: wallet,
		Amount:        float64(out.Value) / lamportsPerSOL,
		Symbol:        "SOL",
	}, nil
}

// parsedTokenAccount is the jsonParsed shape of an SPL token account.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				UIAmount float64 `json:"uiAmount"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

func (c *Client) GetTokenBalances(ctx context.Context, wallet string) ([]domain.TokenBalance, error) {
	pubkey, err := solanago.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}

	program := solanago.TokenProgramID
	out, err := c.rpc.GetTokenAccountsByOwner(ctx, pubkey,
		&rpc.GetTokenAccountsConfig{ProgramId: &program},
		&rpc.GetTokenAccountsOpts{Encoding: solanago.EncodingJSONParsed})
	if err != nil {
		return nil, fmt.Errorf("get token accounts: %w", err)
	}

	var balances []domain.TokenBalance
	for _, acc := range out.Value {
		var parsed parsedTokenAccount
		if err := json.Unmarshal(acc.Account.Data.GetRawJSON(), &parsed); err != nil {
			c.logger.Warn("Skipping unparseable token account", zap.Error(err))
			continue
		}
		if parsed.Parsed.Info.TokenAmount.UIAmount == 0 {
			continue
		}

		tb := domain.TokenBalance{
			TokenMint: parsed.Parsed.Info.Mint,
			Balance:   parsed.Parsed.Info.TokenAmount.UIAmount,
		}
		if info, err := c.GetTokenInfo(ctx, tb.TokenMint); err == nil {
			tb.Symbol = info.Symbol
			tb.Price = info.Price
			tb.Value = tb.Balance * info.Price
		}
		balances = append(balances, tb)
	}
	return balances, nil
}

// jupiterToken is one entry of the aggregator's token list.
type jupiterToken struct {
	Address   string  `json:"address"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Decimals  int     `json:"decimals"`
	Price     float64 `json:"price"`
	Liquidity float64 `json:"liquidity"`
	Verified  bool    `json:"verified"`
	Honeypot  bool    `json:"is_honeypot"`
}

func (c *Client) GetTokenInfo(ctx context.Context, mint string) (*domain.TokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.JupiterAPIURL+"/tokens", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token list request failed: %s", resp.Status)
	}

	var tokens []jupiterToken
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("decode token list: %w", err)
	}

	for _, tok := range tokens {
		if tok.Address == mint {
			return &domain.TokenInfo{
				Mint:      mint,
				Name:      tok.Name,
				Symbol:    tok.Symbol,
				Decimals:  tok.Decimals,
				Price:     tok.Price,
				Liquidity: tok.Liquidity,
				Verified:  tok.Verified,
				Honeypot:  tok.Honeypot,
			}, nil
		}
	}
	return nil, fmt.Errorf("token %s: %w", mint, domain.ErrNotFound)
}

func (c *Client) GetTokenPrice(ctx context.Context, mint string) (float64, error) {
	info, err := c.GetTokenInfo(ctx, mint)
	if err != nil {
		return 0, err
	}
	return info.Price, nil
}

func (c *Client) GetPriorityFees(ctx context.Context) (*domain.PriorityFees, error) {
	// Defaults when the fee feed is unavailable.
	fees := &domain.PriorityFees{
		Slow:     1000,
		Standard: 5000,
		Fast:     10000,
		Instant:  20000,
	}

	out, err := c.rpc.GetRecentPrioritizationFees(ctx, solanago.PublicKeySlice{solanago.SystemProgramID})
	if err != nil {
		c.logger.Warn("Prioritization fee query failed, using defaults", zap.Error(err))
		return fees, nil
	}

	var sum, n uint64
	for _, f := range out {
		sum += f.PrioritizationFee
		n++
	}
	if n == 0 {
		return fees, nil
	}

	avg := sum / n
	slow := avg / 2
	if slow < 1000 {
		slow = 1000
	}
	fees.Slow = slow
	fees.Standard = avg
	fees.Fast = avg * 2
	fees.Instant = avg * 4
	return fees, nil
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

type quoteResponse struct {
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`
}

func (c *Client) ExecuteSwap(ctx context.Context, req *domain.SwapRequest) (*domain.SwapResult, error) {
	keyBytes, err := base58.Decode(req.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	key := solanago.PrivateKey(keyBytes)
	owner := key.PublicKey()

	if req.Sell && req.Amount == 0 {
		req.Amount, err = c.fullPosition(ctx, owner.String(), req.TokenMint)
		if err != nil {
			return nil, err
		}
	}

	quoteRaw, quote, err := c.jupiterQuote(ctx, req)
	if err != nil {
		return nil, err
	}

	tx, err := c.jupiterSwapTransaction(ctx, quoteRaw, owner, req.PriorityFee)
	if err != nil {
		return nil, err
	}

	tx.Message.RecentBlockhash, err = c.latestBlockhash(ctx, tx.Message.RecentBlockhash)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Sign(func(pub solanago.PublicKey) *solanago.PrivateKey {
		if pub.Equals(owner) {
			return &key
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	if err := c.awaitConfirmation(ctx, sig); err != nil {
		return nil, err
	}

	result := &domain.SwapResult{Signature: sig.String()}
	out, _ := strconv.ParseFloat(quote.OutAmount, 64)
	if req.Sell {
		result.ExecutedAmount = req.Amount
		result.TotalCost = out / lamportsPerSOL
		if req.Amount > 0 {
			result.ExecutedPrice = result.TotalCost / req.Amount
		}
	} else {
		// Jupiter reports raw units; token decimals vary, SOL side is exact.
		result.ExecutedAmount = out / lamportsPerSOL
		result.TotalCost = req.Amount
		if result.ExecutedAmount > 0 {
			result.ExecutedPrice = req.Amount / result.ExecutedAmount
		}
	}
	return result, nil
}

// fullPosition resolves a zero-amount sell to the wallet's entire holding of
// the mint.
func (c *Client) fullPosition(ctx context.Context, wallet, mint string) (float64, error) {
	balances, err := c.GetTokenBalances(ctx, wallet)
	if err != nil {
		return 0, err
	}
	for _, b := range balances {
		if b.TokenMint == mint {
			return b.Balance, nil
		}
	}
	return 0, fmt.Errorf("no position in %s: %w", mint, domain.ErrNotFound)
}

func (c *Client) jupiterQuote(ctx context.Context, req *domain.SwapRequest) (json.RawMessage, *quoteResponse, error) {
	inputMint, outputMint := wrappedSOLMint, req.TokenMint
	if req.Sell {
		inputMint, outputMint = req.TokenMint, wrappedSOLMint
	}

	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatInt(int64(req.Amount*lamportsPerSOL), 10))
	params.Set("slippageBps", strconv.Itoa(int(req.Slippage*10000)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.JupiterAPIURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("quote request failed: %s", resp.Status)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("decode quote: %w", err)
	}
	var quote quoteResponse
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, nil, fmt.Errorf("decode quote: %w", err)
	}
	return raw, &quote, nil
}

func (c *Client) jupiterSwapTransaction(ctx context.Context, quote json.RawMessage, owner solanago.PublicKey, priorityFee uint64) (*solanago.Transaction, error) {
	payload := map[string]any{
		"quoteResponse":    quote,
		"userPublicKey":    owner.String(),
		"wrapAndUnwrapSol": true,
	}
	if priorityFee > 0 {
		payload["computeUnitPriceMicroLamports"] = priorityFee
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.JupiterSwapURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("swap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swap request failed: %s", resp.Status)
	}

	var swap swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&swap); err != nil {
		return nil, fmt.Errorf("decode swap response: %w", err)
	}

	rawTx, err := base64.StdEncoding.DecodeString(swap.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}

	tx, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return nil, fmt.Errorf("deserialize swap transaction: %w", err)
	}
	return tx, nil
}

func (c *Client) latestBlockhash(ctx context.Context, current solanago.Hash) (solanago.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return current, fmt.Errorf("get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

func (c *Client) awaitConfirmation(ctx context.Context, sig solanago.Signature) error {
	deadline := time.Now().Add(45 * time.Second)
	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(out.Value) > 0 && out.Value[0] != nil {
			st := out.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction %s failed on chain", sig)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("transaction %s not confirmed in time", sig)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// CancelPendingSwap is chain-side cancellation for orders that never reached
// submission. Swaps are atomic on Solana, so there is nothing to revoke.
func (c *Client) CancelPendingSwap(context.Context, *domain.Order) error {
	return nil
}

func (c *Client) GetRecentTrades(ctx context.Context, wallet string, limit int) ([]domain.WalletTrade, error) {
	pubkey, err := solanago.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}
	if limit <= 0 {
		limit = 10
	}

	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, pubkey, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("get signatures: %w", err)
	}

	maxVersion := uint64(0)
	var trades []domain.WalletTrade
	for _, sigInfo := range sigs {
		if sigInfo.Err != nil || sigInfo.BlockTime == nil {
			continue
		}

		tx, err := c.rpc.GetTransaction(ctx, sigInfo.Signature, &rpc.GetTransactionOpts{
			Encoding:                       solanago.EncodingJSONParsed,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		if err != nil || tx == nil || tx.Meta == nil {
			continue
		}

		if trade, ok := tradeFromBalances(wallet, sigInfo.Signature.String(), sigInfo.BlockTime.Time().Unix(), tx.Meta); ok {
			trades = append(trades, trade)
		}
	}
	return trades, nil
}

// tradeFromBalances derives a swap direction from the owner's SPL balance
// delta across the transaction.
func tradeFromBalances(wallet, signature string, blockTime int64, meta *rpc.TransactionMeta) (domain.WalletTrade, bool) {
	pre := make(map[string]float64)
	for _, b := range meta.PreTokenBalances {
		if b.Owner != nil && b.Owner.String() == wallet && b.UiTokenAmount != nil && b.UiTokenAmount.UiAmount != nil {
			pre[b.Mint.String()] = *b.UiTokenAmount.UiAmount
		}
	}

	for _, b := range meta.PostTokenBalances {
		if b.Owner == nil || b.Owner.String() != wallet || b.UiTokenAmount == nil || b.UiTokenAmount.UiAmount == nil {
			continue
		}
		mint := b.Mint.String()
		if mint == wrappedSOLMint {
			continue
		}
		delta := *b.UiTokenAmount.UiAmount - pre[mint]
		if delta == 0 {
			continue
		}

		trade := domain.WalletTrade{
			Wallet:    wallet,
			TokenMint: mint,
			Signature: signature,
			Timestamp: blockTime,
		}
		if delta > 0 {
			trade.Side = domain.OrderSideBuy
			trade.Amount = delta
		} else {
			trade.Side = domain.OrderSideSell
			trade.Amount = -delta
		}
		return trade, true
	}
	return domain.WalletTrade{}, false
}
