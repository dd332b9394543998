package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// evmDecimals is the exponent of the smallest unit of a standard EVM
// native currency (wei).
const evmDecimals = 18

// Client queries JSON-RPC nodes for transaction fees and DEX subgraphs for
// historical spot prices. Every result is memoized for the lifetime of the
// client, and calls per chain are rate limited.
type Client struct {
	chains   map[string]ChainConfig
	http     *http.Client
	cache    *cache.Cache
	limiters map[string]*rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimit sets the per-chain request rate (default 5 req/s).
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		for chain := range c.chains {
			c.limiters[chain] = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewClient creates a client for the given chain set.
func NewClient(chains map[string]ChainConfig, opts ...Option) *Client {
	c := &Client{
		chains:   chains,
		http:     &http.Client{Timeout: 30 * time.Second},
		cache:    cache.New(cache.NoExpiration, cache.NoExpiration),
		limiters: make(map[string]*rate.Limiter),
	}
	for chain := range chains {
		c.limiters[chain] = rate.NewLimiter(rate.Limit(5), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TransactionFee returns the gas fee paid by a transaction, in the chain's
// native asset, or converted to USD at the spot price of the transaction's
// block when convertToUSD is set.
func (c *Client) TransactionFee(ctx context.Context, chain, txHash string, convertToUSD bool) (decimal.Decimal, error) {
	key := fmt.Sprintf("fee|%s|%s|%t", chain, txHash, convertToUSD)
	if v, ok := c.cache.Get(key); ok {
		return v.(decimal.Decimal), nil
	}

	cfg, ok := c.chains[chain]
	if !ok {
		return decimal.Zero, &ChainNotConfiguredError{Chain: chain}
	}

	receipt, err := c.transactionReceipt(ctx, cfg, chain, txHash)
	if err != nil {
		return decimal.Zero, err
	}
	gasPrice, err := c.transactionGasPrice(ctx, cfg, chain, txHash)
	if err != nil {
		return decimal.Zero, err
	}

	// gasUsed × gasPrice is in wei.
	wei := new(big.Int).Mul(receipt.gasUsed, gasPrice)
	fee := decimal.NewFromBigInt(wei, -evmDecimals)

	if convertToUSD {
		spot, err := c.SpotPrice(ctx, chain, receipt.blockNumber)
		if err != nil {
			return decimal.Zero, err
		}
		fee = fee.Mul(spot)
	}

	c.cache.Set(key, fee, cache.NoExpiration)
	return fee, nil
}

// SpotPrice returns the USD price of the chain's native asset at a block,
// read from the configured liquidity pair.
func (c *Client) SpotPrice(ctx context.Context, chain string, block uint64) (decimal.Decimal, error) {
	key := fmt.Sprintf("spot|%s|%d", chain, block)
	if v, ok := c.cache.Get(key); ok {
		return v.(decimal.Decimal), nil
	}

	cfg, ok := c.chains[chain]
	if !ok {
		return decimal.Zero, &ChainNotConfiguredError{Chain: chain}
	}
	if cfg.SubgraphEndpoint == "" {
		return decimal.Zero, &ChainNotConfiguredError{Chain: chain}
	}

	field := "token1Price"
	if cfg.PriceToken0 {
		field = "token0Price"
	}
	query := fmt.Sprintf(`query {
		pair(id: %q, block: { number: %d }) {
			%s
		}
	}`, cfg.PairID, block, field)

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return decimal.Zero, err
	}
	raw, err := c.post(ctx, chain, cfg.SubgraphEndpoint, body)
	if err != nil {
		return decimal.Zero, &LookupError{Chain: chain, Ref: fmt.Sprintf("block %d", block), Err: err}
	}

	var resp struct {
		Data struct {
			Pair map[string]string `json:"pair"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return decimal.Zero, &LookupError{Chain: chain, Ref: fmt.Sprintf("block %d", block), Err: err}
	}
	priceStr, ok := resp.Data.Pair[field]
	if resp.Data.Pair == nil || !ok || priceStr == "" {
		return decimal.Zero, &PriceUnavailableError{Chain: chain, Block: block}
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, &LookupError{Chain: chain, Ref: fmt.Sprintf("block %d", block), Err: err}
	}

	c.cache.Set(key, price, cache.NoExpiration)
	return price, nil
}

type receipt struct {
	gasUsed     *big.Int
	blockNumber uint64
}

func (c *Client) transactionReceipt(ctx context.Context, cfg ChainConfig, chain, txHash string) (*receipt, error) {
	var result struct {
		GasUsed     string `json:"gasUsed"`
		BlockNumber string `json:"blockNumber"`
	}
	if err := c.rpc(ctx, cfg, chain, "eth_getTransactionReceipt", []any{txHash}, &result); err != nil {
		return nil, &LookupError{Chain: chain, Ref: txHash, Err: err}
	}
	gasUsed, err := hexToBig(result.GasUsed)
	if err != nil {
		return nil, &LookupError{Chain: chain, Ref: txHash, Err: err}
	}
	blockNumber, err := hexToBig(result.BlockNumber)
	if err != nil {
		return nil, &LookupError{Chain: chain, Ref: txHash, Err: err}
	}
	return &receipt{gasUsed: gasUsed, blockNumber: blockNumber.Uint64()}, nil
}

func (c *Client) transactionGasPrice(ctx context.Context, cfg ChainConfig, chain, txHash string) (*big.Int, error) {
	var result struct {
		GasPrice string `json:"gasPrice"`
	}
	if err := c.rpc(ctx, cfg, chain, "eth_getTransactionByHash", []any{txHash}, &result); err != nil {
		return nil, &LookupError{Chain: chain, Ref: txHash, Err: err}
	}
	gasPrice, err := hexToBig(result.GasPrice)
	if err != nil {
		return nil, &LookupError{Chain: chain, Ref: txHash, Err: err}
	}
	return gasPrice, nil
}

// rpc performs one JSON-RPC 2.0 call. A null result means the node does not
// know the reference.
func (c *Client) rpc(ctx context.Context, cfg ChainConfig, chain, method string, params []any, result any) error {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	})
	if err != nil {
		return err
	}
	raw, err := c.post(ctx, chain, cfg.RPCEndpoint, body)
	if err != nil {
		return err
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	if envelope.Error != nil {
		return fmt.Errorf("rpc error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return fmt.Errorf("%s returned no data", method)
	}
	return json.Unmarshal(envelope.Result, result)
}

func (c *Client) post(ctx context.Context, chain, url string, body []byte) ([]byte, error) {
	if limiter := c.limiters[chain]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func hexToBig(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("empty hex quantity %q", s)
	}
	n, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return n, nil
}
